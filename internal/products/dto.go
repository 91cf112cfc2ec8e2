package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/internal/billing"
	"github.com/statbricks/mbiz-backend/pkg/db/models"
)

// ProductDTO exposes catalog data in API responses.
type ProductDTO struct {
	ID                  uuid.UUID `json:"id"`
	TenantID            uuid.UUID `json:"tenant_id"`
	Name                string    `json:"name"`
	SKU                 string    `json:"sku"`
	Category            *string   `json:"category,omitempty"`
	Unit                *string   `json:"unit,omitempty"`
	CostPriceKobo       int64     `json:"cost_price_kobo"`
	SellingPriceKobo    int64     `json:"selling_price_kobo"`
	SellingPriceDisplay string    `json:"selling_price_display"`
	Quantity            int       `json:"quantity"`
	ReorderLevel        int       `json:"reorder_level"`
	ImageKey            *string   `json:"image_key,omitempty"`
	IsActive            bool      `json:"is_active"`
	LowStock            bool      `json:"low_stock"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// FromModel maps the persisted product into a DTO.
func FromModel(m *models.Product) *ProductDTO {
	if m == nil {
		return nil
	}
	return &ProductDTO{
		ID:                  m.ID,
		TenantID:            m.TenantID,
		Name:                m.Name,
		SKU:                 m.SKU,
		Category:            m.Category,
		Unit:                m.Unit,
		CostPriceKobo:       m.CostPriceKobo,
		SellingPriceKobo:    m.SellingPriceKobo,
		SellingPriceDisplay: billing.MajorUnits(m.SellingPriceKobo),
		Quantity:            m.Quantity,
		ReorderLevel:        m.ReorderLevel,
		ImageKey:            m.ImageKey,
		IsActive:            m.IsActive,
		LowStock:            m.Quantity <= m.ReorderLevel,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// FromModels maps a slice of products.
func FromModels(list []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}
