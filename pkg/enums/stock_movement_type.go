package enums

import "fmt"

// StockMovementType labels why a stock quantity changed.
//
// Adjustments are always signed deltas against the current quantity,
// never absolute targets.
type StockMovementType string

const (
	StockMovementSale       StockMovementType = "sale"
	StockMovementReceipt    StockMovementType = "receipt"
	StockMovementAdjustment StockMovementType = "adjustment"
)

var validStockMovementTypes = []StockMovementType{
	StockMovementSale,
	StockMovementReceipt,
	StockMovementAdjustment,
}

// String implements fmt.Stringer.
func (s StockMovementType) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s StockMovementType) IsValid() bool {
	for _, candidate := range validStockMovementTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockMovementType converts raw input into a StockMovementType.
func ParseStockMovementType(value string) (StockMovementType, error) {
	for _, candidate := range validStockMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement type %q", value)
}
