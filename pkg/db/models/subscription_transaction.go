package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/pkg/enums"
)

// Transaction purposes.
const (
	TransactionPurposeSubscription   = "subscription"
	TransactionPurposeBranchAddition = "branch_addition"
	TransactionPurposeUpgrade        = "upgrade"
)

// SubscriptionTransaction is the immutable record of one payment
// event. It is created pending at initialization and moves to success
// exactly once, on verification. The branch selection it paid for is
// frozen into the row as JSON.
type SubscriptionTransaction struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	TenantID     uuid.UUID               `gorm:"column:tenant_id;type:uuid;not null;index"`
	Reference    string                  `gorm:"column:reference;not null;uniqueIndex"`
	Purpose      string                  `gorm:"column:purpose;not null;default:'subscription'"`
	AmountKobo   int64                   `gorm:"column:amount_kobo;not null"`
	BillingCycle enums.BillingCycle      `gorm:"column:billing_cycle;not null"`
	Status       enums.TransactionStatus `gorm:"column:status;not null;default:'pending'"`

	// BranchSelection holds the JSON-encoded list of branch tenant ids
	// this payment covers.
	BranchSelection string `gorm:"column:branch_selection;not null;default:'[]'"`

	SubscriptionStartDate *time.Time `gorm:"column:subscription_start_date"`
	SubscriptionEndDate   *time.Time `gorm:"column:subscription_end_date"`
	PaidAt                *time.Time `gorm:"column:paid_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// SetBranchIDs freezes the selection into the row.
func (t *SubscriptionTransaction) SetBranchIDs(ids []uuid.UUID) error {
	encoded, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode branch selection: %w", err)
	}
	t.BranchSelection = string(encoded)
	return nil
}

// BranchIDs decodes the frozen selection.
func (t *SubscriptionTransaction) BranchIDs() ([]uuid.UUID, error) {
	if t.BranchSelection == "" {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(t.BranchSelection), &ids); err != nil {
		return nil, fmt.Errorf("decode branch selection: %w", err)
	}
	return ids, nil
}
