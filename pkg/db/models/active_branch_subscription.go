package models

import (
	"time"

	"github.com/google/uuid"
)

// ActiveBranchSubscription is the current-state cache read by the
// write gate. Exactly one row per (organization, branch) pair; it is
// upserted on every successful payment verification, never appended.
// The organization's own subscription is the row where ParentTenantID
// equals BranchTenantID.
type ActiveBranchSubscription struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ParentTenantID      uuid.UUID  `gorm:"column:parent_tenant_id;type:uuid;not null;uniqueIndex:idx_active_branch_sub_pair"`
	BranchTenantID      uuid.UUID  `gorm:"column:branch_tenant_id;type:uuid;not null;uniqueIndex:idx_active_branch_sub_pair"`
	IsActive            bool       `gorm:"column:is_active;not null;default:false"`
	SubscriptionEndDate time.Time  `gorm:"column:subscription_end_date;not null"`
	IsCancelled         bool       `gorm:"column:is_cancelled;not null;default:false"`
	CancelledAt         *time.Time `gorm:"column:cancelled_at"`
	LastTransactionID   *uuid.UUID `gorm:"column:last_transaction_id;type:uuid"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Covers reports whether the row grants write access at the given time.
func (a *ActiveBranchSubscription) Covers(now time.Time) bool {
	return a.IsActive && a.SubscriptionEndDate.After(now)
}
