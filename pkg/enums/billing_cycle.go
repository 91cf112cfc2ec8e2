package enums

import "fmt"

// BillingCycle defines the cadence for a subscription period.
type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "monthly"
	BillingCycleQuarterly BillingCycle = "quarterly"
	BillingCycleBiannual  BillingCycle = "biannual"
	BillingCycleAnnual    BillingCycle = "annual"
)

var validBillingCycles = []BillingCycle{
	BillingCycleMonthly,
	BillingCycleQuarterly,
	BillingCycleBiannual,
	BillingCycleAnnual,
}

var billingCycleDays = map[BillingCycle]int{
	BillingCycleMonthly:   30,
	BillingCycleQuarterly: 90,
	BillingCycleBiannual:  180,
	BillingCycleAnnual:    365,
}

// BillingCycles returns the known cycles ordered by period length.
func BillingCycles() []BillingCycle {
	out := make([]BillingCycle, len(validBillingCycles))
	copy(out, validBillingCycles)
	return out
}

// String implements fmt.Stringer.
func (b BillingCycle) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingCycle.
func (b BillingCycle) IsValid() bool {
	for _, candidate := range validBillingCycles {
		if candidate == b {
			return true
		}
	}
	return false
}

// Days returns the length of one billing period in days.
func (b BillingCycle) Days() int {
	return billingCycleDays[b]
}

// Rank orders cycles by period length, used to decide whether a cycle
// change is an upgrade.
func (b BillingCycle) Rank() int {
	for i, candidate := range validBillingCycles {
		if candidate == b {
			return i
		}
	}
	return -1
}

// ParseBillingCycle converts raw input into a BillingCycle.
func ParseBillingCycle(value string) (BillingCycle, error) {
	for _, candidate := range validBillingCycles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing cycle %q", value)
}
