package stock

import (
	"time"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/types"
)

// LevelDTO is one product's stock position at one location.
type LevelDTO struct {
	ProductID        uuid.UUID      `json:"product_id"`
	Name             string         `json:"name"`
	SKU              string         `json:"sku"`
	Location         types.Location `json:"location"`
	Quantity         int            `json:"quantity"`
	SellingPriceKobo int64          `json:"selling_price_kobo"`
	ReorderLevel     int            `json:"reorder_level"`
	LowStock         bool           `json:"low_stock"`
}

// MovementDTO exposes one historical quantity change.
type MovementDTO struct {
	ID        uuid.UUID      `json:"id"`
	Location  types.Location `json:"location"`
	Type      string         `json:"type"`
	Delta     int            `json:"delta"`
	Note      *string        `json:"note,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func movementFromModel(m *models.StockMovement) MovementDTO {
	loc := types.MainLocation()
	if m.BranchID != nil {
		loc = types.BranchLocation(*m.BranchID)
	}
	return MovementDTO{
		ID:        m.ID,
		Location:  loc,
		Type:      m.Type.String(),
		Delta:     m.Delta,
		Note:      m.Note,
		CreatedAt: m.CreatedAt,
	}
}
