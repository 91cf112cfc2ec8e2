package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/pkg/enums"
)

// Tenant represents one business location. The organization root has a
// nil ParentTenantID; every branch points back at it. Branches share
// the organization's product catalog but own their stock and
// subscription state.
type Tenant struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ParentTenantID *uuid.UUID `gorm:"column:parent_tenant_id;type:uuid;index"`
	Name           string     `gorm:"column:name;not null"`
	Subdomain      string     `gorm:"column:subdomain;not null;uniqueIndex"`
	Email          *string    `gorm:"column:email"`
	Phone          *string    `gorm:"column:phone"`
	Address        *string    `gorm:"column:address"`

	BillingCycle       enums.BillingCycle       `gorm:"column:billing_cycle;not null;default:'monthly'"`
	SubscriptionStatus enums.SubscriptionStatus `gorm:"column:subscription_status;not null;default:'trial'"`
	TrialEndsAt        *time.Time               `gorm:"column:trial_ends_at"`
	NextBillingDate    *time.Time               `gorm:"column:next_billing_date"`

	// ManuallyBlocked is a platform-admin override that forces the
	// whole hierarchy read-only regardless of subscription state.
	ManuallyBlocked bool `gorm:"column:manually_blocked;not null;default:false"`

	IsActive      bool       `gorm:"column:is_active;not null;default:true"`
	DeactivatedAt *time.Time `gorm:"column:deactivated_at"`
	LogoKey       *string    `gorm:"column:logo_key"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsOrganization reports whether the tenant is a hierarchy root.
func (t *Tenant) IsOrganization() bool {
	return t.ParentTenantID == nil
}

// OnTrial reports whether the organization's trial window is still open.
func (t *Tenant) OnTrial(now time.Time) bool {
	return t.SubscriptionStatus == enums.SubscriptionStatusTrial &&
		t.TrialEndsAt != nil && t.TrialEndsAt.After(now)
}
