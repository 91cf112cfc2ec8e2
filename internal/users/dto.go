package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/enums"
)

// UserDTO is the API shape of an operator account.
type UserDTO struct {
	ID          uuid.UUID        `json:"id"`
	TenantID    uuid.UUID        `json:"tenant_id"`
	Email       string           `json:"email"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	Role        enums.MemberRole `json:"role"`
	IsActive    bool             `json:"is_active"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// FromModel converts a user row into its DTO.
func FromModel(user *models.User) *UserDTO {
	if user == nil {
		return nil
	}
	return &UserDTO{
		ID:          user.ID,
		TenantID:    user.TenantID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Role:        user.Role,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

// FromModels converts a list of user rows.
func FromModels(users []models.User) []UserDTO {
	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, *FromModel(&users[i]))
	}
	return out
}
