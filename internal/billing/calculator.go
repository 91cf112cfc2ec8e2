package billing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/statbricks/mbiz-backend/pkg/enums"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
)

// branchRate is the fraction of the main-location price a branch pays.
const branchRate = 0.8

// Calculator prices subscriptions from a per-cycle base price table.
// All amounts are kobo.
type Calculator struct {
	prices map[enums.BillingCycle]int64
}

// NewCalculator validates the price table and builds a calculator.
func NewCalculator(prices map[enums.BillingCycle]int64) (*Calculator, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("price table is required")
	}
	for _, cycle := range enums.BillingCycles() {
		price, ok := prices[cycle]
		if !ok {
			return nil, fmt.Errorf("price table missing cycle %q", cycle)
		}
		if price <= 0 {
			return nil, fmt.Errorf("price for cycle %q must be positive", cycle)
		}
	}
	cloned := make(map[enums.BillingCycle]int64, len(prices))
	for cycle, price := range prices {
		cloned[cycle] = price
	}
	return &Calculator{prices: cloned}, nil
}

// BasePrice returns the main-location price for the cycle.
func (c *Calculator) BasePrice(cycle enums.BillingCycle) (int64, error) {
	if !cycle.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid billing cycle %q", cycle))
	}
	return c.prices[cycle], nil
}

// BranchPrice returns the per-branch price for the cycle: 80% of the
// base price, rounded to the nearest kobo.
func (c *Calculator) BranchPrice(cycle enums.BillingCycle) (int64, error) {
	base, err := c.BasePrice(cycle)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(float64(base) * branchRate)), nil
}

// Quote is the priced breakdown for one subscription payment.
type Quote struct {
	Cycle           enums.BillingCycle
	MainPriceKobo   int64
	BranchPriceKobo int64
	BranchCount     int
	TotalKobo       int64
}

// QuoteSelection prices the main location plus the given number of
// branches for one cycle. The main location is always included.
func (c *Calculator) QuoteSelection(cycle enums.BillingCycle, branchCount int) (*Quote, error) {
	if branchCount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch count cannot be negative")
	}
	base, err := c.BasePrice(cycle)
	if err != nil {
		return nil, err
	}
	branch, err := c.BranchPrice(cycle)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Cycle:           cycle,
		MainPriceKobo:   base,
		BranchPriceKobo: branch,
		BranchCount:     branchCount,
		TotalKobo:       base + branch*int64(branchCount),
	}, nil
}

// ProrataBranchPrice charges a branch joining mid-cycle for the days
// left until the organization's next billing date. The fraction is
// truncated toward zero, never rounded up.
func (c *Calculator) ProrataBranchPrice(cycle enums.BillingCycle, daysRemaining int) (int64, error) {
	if daysRemaining <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "days remaining must be positive")
	}
	branch, err := c.BranchPrice(cycle)
	if err != nil {
		return 0, err
	}
	cycleDays := cycle.Days()
	if daysRemaining > cycleDays {
		daysRemaining = cycleDays
	}
	return branch * int64(daysRemaining) / int64(cycleDays), nil
}

// UpgradeCharge prices moving the whole selection to a higher cycle
// mid-term. The unused value of the current cycle, pro-rated by days
// remaining and truncated, is credited against the new cycle's full
// price. The charge never goes below zero.
func (c *Calculator) UpgradeCharge(current, target enums.BillingCycle, branchCount, daysRemaining int) (int64, error) {
	if !current.IsValid() || !target.IsValid() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid billing cycle")
	}
	if target.Rank() <= current.Rank() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "target cycle must be longer than current cycle")
	}
	if daysRemaining < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "days remaining cannot be negative")
	}

	newQuote, err := c.QuoteSelection(target, branchCount)
	if err != nil {
		return 0, err
	}
	if daysRemaining == 0 {
		return newQuote.TotalKobo, nil
	}

	oldQuote, err := c.QuoteSelection(current, branchCount)
	if err != nil {
		return 0, err
	}
	currentDays := current.Days()
	if daysRemaining > currentDays {
		daysRemaining = currentDays
	}
	credit := oldQuote.TotalKobo * int64(daysRemaining) / int64(currentDays)

	charge := newQuote.TotalKobo - credit
	if charge < 0 {
		charge = 0
	}
	return charge, nil
}

// MajorUnits renders a kobo amount in naira with two decimal places,
// for receipts and API display fields.
func MajorUnits(amountKobo int64) string {
	return decimal.NewFromInt(amountKobo).Div(decimal.NewFromInt(100)).StringFixed(2)
}
