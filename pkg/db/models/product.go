package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry owned by the organization root. Quantity
// on the product itself is the main location's stock; branch stock
// lives in BranchStock rows.
type Product struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID         uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name             string    `gorm:"column:name;not null"`
	SKU              string    `gorm:"column:sku;not null"`
	Category         *string   `gorm:"column:category"`
	Unit             *string   `gorm:"column:unit"`
	CostPriceKobo    int64     `gorm:"column:cost_price_kobo;not null;default:0"`
	SellingPriceKobo int64     `gorm:"column:selling_price_kobo;not null"`
	Quantity         int       `gorm:"column:quantity;not null;default:0"`
	ReorderLevel     int       `gorm:"column:reorder_level;not null;default:0"`
	ImageKey         *string   `gorm:"column:image_key"`
	IsActive         bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
