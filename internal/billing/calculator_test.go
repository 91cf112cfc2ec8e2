package billing

import (
	"testing"

	"github.com/statbricks/mbiz-backend/pkg/enums"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
)

func testPrices() map[enums.BillingCycle]int64 {
	return map[enums.BillingCycle]int64{
		enums.BillingCycleMonthly:   2000,
		enums.BillingCycleQuarterly: 5400,
		enums.BillingCycleBiannual:  10200,
		enums.BillingCycleAnnual:    19200,
	}
}

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(testPrices())
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	return calc
}

func TestNewCalculatorValidation(t *testing.T) {
	if _, err := NewCalculator(nil); err == nil {
		t.Fatal("expected error for empty price table")
	}

	missing := testPrices()
	delete(missing, enums.BillingCycleAnnual)
	if _, err := NewCalculator(missing); err == nil {
		t.Fatal("expected error for missing cycle")
	}

	zero := testPrices()
	zero[enums.BillingCycleMonthly] = 0
	if _, err := NewCalculator(zero); err == nil {
		t.Fatal("expected error for non-positive price")
	}
}

func TestBranchPriceIsEightyPercentRounded(t *testing.T) {
	calc := newTestCalculator(t)

	price, err := calc.BranchPrice(enums.BillingCycleMonthly)
	if err != nil {
		t.Fatalf("BranchPrice: %v", err)
	}
	if price != 1600 {
		t.Fatalf("BranchPrice = %d, want 1600", price)
	}

	// 19200 * 0.8 = 15360, exact
	price, err = calc.BranchPrice(enums.BillingCycleAnnual)
	if err != nil {
		t.Fatalf("BranchPrice: %v", err)
	}
	if price != 15360 {
		t.Fatalf("BranchPrice = %d, want 15360", price)
	}
}

func TestQuoteSelection(t *testing.T) {
	calc := newTestCalculator(t)

	quote, err := calc.QuoteSelection(enums.BillingCycleMonthly, 2)
	if err != nil {
		t.Fatalf("QuoteSelection: %v", err)
	}
	if quote.MainPriceKobo != 2000 {
		t.Fatalf("MainPriceKobo = %d, want 2000", quote.MainPriceKobo)
	}
	if quote.BranchPriceKobo != 1600 {
		t.Fatalf("BranchPriceKobo = %d, want 1600", quote.BranchPriceKobo)
	}
	if quote.TotalKobo != 5200 {
		t.Fatalf("TotalKobo = %d, want 5200 (2000 + 1600 + 1600)", quote.TotalKobo)
	}

	quote, err = calc.QuoteSelection(enums.BillingCycleMonthly, 0)
	if err != nil {
		t.Fatalf("QuoteSelection: %v", err)
	}
	if quote.TotalKobo != 2000 {
		t.Fatalf("TotalKobo = %d, want main price only", quote.TotalKobo)
	}

	if _, err := calc.QuoteSelection(enums.BillingCycleMonthly, -1); err == nil {
		t.Fatal("expected error for negative branch count")
	}
	if _, err := calc.QuoteSelection(enums.BillingCycle("weekly"), 1); err == nil {
		t.Fatal("expected error for unknown cycle")
	}
}

func TestProrataBranchPrice(t *testing.T) {
	calc := newTestCalculator(t)

	// 1600 * 15 / 30 = 800
	price, err := calc.ProrataBranchPrice(enums.BillingCycleMonthly, 15)
	if err != nil {
		t.Fatalf("ProrataBranchPrice: %v", err)
	}
	if price != 800 {
		t.Fatalf("ProrataBranchPrice = %d, want 800", price)
	}

	// 1600 * 7 / 30 = 373.33, truncated
	price, err = calc.ProrataBranchPrice(enums.BillingCycleMonthly, 7)
	if err != nil {
		t.Fatalf("ProrataBranchPrice: %v", err)
	}
	if price != 373 {
		t.Fatalf("ProrataBranchPrice = %d, want 373 (truncated)", price)
	}

	// capped at the full cycle
	price, err = calc.ProrataBranchPrice(enums.BillingCycleMonthly, 45)
	if err != nil {
		t.Fatalf("ProrataBranchPrice: %v", err)
	}
	if price != 1600 {
		t.Fatalf("ProrataBranchPrice = %d, want full branch price", price)
	}
}

func TestProrataRejectsNonPositiveDays(t *testing.T) {
	calc := newTestCalculator(t)

	for _, days := range []int{0, -1} {
		_, err := calc.ProrataBranchPrice(enums.BillingCycleMonthly, days)
		domainErr := pkgerrors.As(err)
		if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
			t.Fatalf("days=%d: expected validation error, got %v", days, err)
		}
	}
}

func TestUpgradeCharge(t *testing.T) {
	calc := newTestCalculator(t)

	// Current monthly with one branch: 2000 + 1600 = 3600.
	// Credit at 15 of 30 days: 1800.
	// Target quarterly with one branch: 5400 + 4320 = 9720.
	charge, err := calc.UpgradeCharge(enums.BillingCycleMonthly, enums.BillingCycleQuarterly, 1, 15)
	if err != nil {
		t.Fatalf("UpgradeCharge: %v", err)
	}
	if charge != 7920 {
		t.Fatalf("UpgradeCharge = %d, want 7920", charge)
	}

	// No days remaining means no credit.
	charge, err = calc.UpgradeCharge(enums.BillingCycleMonthly, enums.BillingCycleQuarterly, 1, 0)
	if err != nil {
		t.Fatalf("UpgradeCharge: %v", err)
	}
	if charge != 9720 {
		t.Fatalf("UpgradeCharge = %d, want full target price", charge)
	}

	if _, err := calc.UpgradeCharge(enums.BillingCycleQuarterly, enums.BillingCycleMonthly, 0, 10); err == nil {
		t.Fatal("expected error for downgrade")
	}
	if _, err := calc.UpgradeCharge(enums.BillingCycleMonthly, enums.BillingCycleMonthly, 0, 10); err == nil {
		t.Fatal("expected error for same-cycle change")
	}
}

func TestMajorUnits(t *testing.T) {
	cases := map[int64]string{
		500000: "5000.00",
		1600:   "16.00",
		373:    "3.73",
		0:      "0.00",
	}
	for amount, want := range cases {
		if got := MajorUnits(amount); got != want {
			t.Fatalf("MajorUnits(%d) = %q, want %q", amount, got, want)
		}
	}
}
