package models

import (
	"time"

	"github.com/google/uuid"
)

// BranchSubscription is the append-only historical fact that a branch
// was included in a transaction. One row per (transaction, branch).
type BranchSubscription struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID uuid.UUID `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex:idx_branch_subscription_tx_tenant"`
	TenantID      uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_branch_subscription_tx_tenant"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
