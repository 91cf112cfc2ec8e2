package auth

import (
	"github.com/statbricks/mbiz-backend/internal/tenants"
	"github.com/statbricks/mbiz-backend/internal/users"
)

// RegisterRequest captures a new organization signup with its owner
// account.
type RegisterRequest struct {
	OrganizationName string  `json:"organization_name" validate:"required"`
	Subdomain        string  `json:"subdomain" validate:"required"`
	Email            string  `json:"email" validate:"required,email"`
	Password         string  `json:"password" validate:"required,min=8"`
	FirstName        string  `json:"first_name" validate:"required"`
	LastName         string  `json:"last_name"`
	Phone            *string `json:"phone,omitempty"`
	Address          *string `json:"address,omitempty"`
}

// RegisterResponse returns the freshly created organization and a
// signed-in owner session.
type RegisterResponse struct {
	AccessToken  string             `json:"access_token"`
	User         *users.UserDTO     `json:"user"`
	Organization *tenants.TenantDTO `json:"organization"`
}

// LoginRequest captures sign-in credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns a signed-in session.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	User        *users.UserDTO `json:"user"`
}
