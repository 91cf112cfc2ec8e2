package tenants

import (
	"time"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/enums"
)

// TenantDTO exposes safe tenant data in API responses.
type TenantDTO struct {
	ID                 uuid.UUID                `json:"id"`
	ParentTenantID     *uuid.UUID               `json:"parent_tenant_id,omitempty"`
	Name               string                   `json:"name"`
	Subdomain          string                   `json:"subdomain"`
	Email              *string                  `json:"email,omitempty"`
	Phone              *string                  `json:"phone,omitempty"`
	Address            *string                  `json:"address,omitempty"`
	BillingCycle       enums.BillingCycle       `json:"billing_cycle"`
	SubscriptionStatus enums.SubscriptionStatus `json:"subscription_status"`
	TrialEndsAt        *time.Time               `json:"trial_ends_at,omitempty"`
	NextBillingDate    *time.Time               `json:"next_billing_date,omitempty"`
	IsActive           bool                     `json:"is_active"`
	LogoKey            *string                  `json:"logo_key,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// FromModel maps the persisted tenant into a DTO.
func FromModel(m *models.Tenant) *TenantDTO {
	if m == nil {
		return nil
	}
	return &TenantDTO{
		ID:                 m.ID,
		ParentTenantID:     m.ParentTenantID,
		Name:               m.Name,
		Subdomain:          m.Subdomain,
		Email:              m.Email,
		Phone:              m.Phone,
		Address:            m.Address,
		BillingCycle:       m.BillingCycle,
		SubscriptionStatus: m.SubscriptionStatus,
		TrialEndsAt:        m.TrialEndsAt,
		NextBillingDate:    m.NextBillingDate,
		IsActive:           m.IsActive,
		LogoKey:            m.LogoKey,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// FromModels maps a slice of tenants.
func FromModels(list []models.Tenant) []TenantDTO {
	out := make([]TenantDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}
