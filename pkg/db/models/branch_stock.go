package models

import (
	"time"

	"github.com/google/uuid"
)

// BranchStock tracks one branch's quantity of one catalog product,
// with an optional selling price override. At most one row exists per
// (branch, product) pair; rows are fanned out at quantity zero when
// either side is created.
type BranchStock struct {
	ID                       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID                 uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_branch_stock_tenant_product"`
	ProductID                uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_branch_stock_tenant_product"`
	Quantity                 int       `gorm:"column:quantity;not null;default:0"`
	OverrideSellingPriceKobo *int64    `gorm:"column:override_selling_price_kobo"`
	CreatedAt                time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
