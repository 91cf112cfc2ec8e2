package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/pkg/enums"
)

// StockMovement records one signed quantity change against a location.
// BranchID is set if and only if LocationKind is branch.
type StockMovement struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	TenantID     uuid.UUID               `gorm:"column:tenant_id;type:uuid;not null;index"`
	LocationKind enums.LocationKind      `gorm:"column:location_kind;not null"`
	BranchID     *uuid.UUID              `gorm:"column:branch_id;type:uuid;index"`
	ProductID    uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	Type         enums.StockMovementType `gorm:"column:type;not null"`
	Delta        int                     `gorm:"column:delta;not null"`
	Note         *string                 `gorm:"column:note"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
}
