package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/pkg/enums"
)

// Sale records one checkout at a location.
type Sale struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	TenantID       uuid.UUID          `gorm:"column:tenant_id;type:uuid;not null;index"`
	LocationKind   enums.LocationKind `gorm:"column:location_kind;not null"`
	BranchID       *uuid.UUID         `gorm:"column:branch_id;type:uuid;index"`
	TotalKobo      int64              `gorm:"column:total_kobo;not null"`
	AmountPaidKobo int64              `gorm:"column:amount_paid_kobo;not null"`
	CustomerName   *string            `gorm:"column:customer_name"`
	Items          []SaleItem         `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// SaleItem is one product line within a sale.
type SaleItem struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SaleID        uuid.UUID `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Quantity      int       `gorm:"column:quantity;not null"`
	UnitPriceKobo int64     `gorm:"column:unit_price_kobo;not null"`
}
