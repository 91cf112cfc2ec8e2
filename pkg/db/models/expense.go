package models

import (
	"time"

	"github.com/google/uuid"
)

// Expense categories.
const (
	ExpenseCategorySubscription = "subscription"
	ExpenseCategoryGeneral      = "general"
)

// Expense is a business cost recorded for profit reporting. A
// successful subscription payment auto-creates one.
type Expense struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	Description string    `gorm:"column:description;not null"`
	Category    string    `gorm:"column:category;not null;default:'general'"`
	AmountKobo  int64     `gorm:"column:amount_kobo;not null"`
	IncurredAt  time.Time `gorm:"column:incurred_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
