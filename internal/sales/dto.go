package sales

import (
	"time"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/internal/billing"
	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/types"
)

// SaleDTO is the API shape of one recorded sale.
type SaleDTO struct {
	ID             uuid.UUID      `json:"id"`
	Location       types.Location `json:"location"`
	TotalKobo      int64          `json:"total_kobo"`
	TotalDisplay   string         `json:"total_display"`
	AmountPaidKobo int64          `json:"amount_paid_kobo"`
	CustomerName   *string        `json:"customer_name,omitempty"`
	Items          []SaleItemDTO  `json:"items"`
	CreatedAt      time.Time      `json:"created_at"`
}

// SaleItemDTO is one product line within a sale.
type SaleItemDTO struct {
	ProductID     uuid.UUID `json:"product_id"`
	Quantity      int       `json:"quantity"`
	UnitPriceKobo int64     `json:"unit_price_kobo"`
	LineTotalKobo int64     `json:"line_total_kobo"`
}

// FromModel converts a sale row into its DTO.
func FromModel(sale *models.Sale) *SaleDTO {
	loc := types.MainLocation()
	if sale.BranchID != nil {
		loc = types.BranchLocation(*sale.BranchID)
	}
	items := make([]SaleItemDTO, 0, len(sale.Items))
	for i := range sale.Items {
		item := sale.Items[i]
		items = append(items, SaleItemDTO{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			UnitPriceKobo: item.UnitPriceKobo,
			LineTotalKobo: item.UnitPriceKobo * int64(item.Quantity),
		})
	}
	return &SaleDTO{
		ID:             sale.ID,
		Location:       loc,
		TotalKobo:      sale.TotalKobo,
		TotalDisplay:   billing.MajorUnits(sale.TotalKobo),
		AmountPaidKobo: sale.AmountPaidKobo,
		CustomerName:   sale.CustomerName,
		Items:          items,
		CreatedAt:      sale.CreatedAt,
	}
}

// FromModels converts a page of sales.
func FromModels(sales []models.Sale) []SaleDTO {
	out := make([]SaleDTO, 0, len(sales))
	for i := range sales {
		out = append(out, *FromModel(&sales[i]))
	}
	return out
}
