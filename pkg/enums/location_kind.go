package enums

import "fmt"

// LocationKind distinguishes the organization's main location from a
// branch. Sales and stock mutations always name their location
// explicitly instead of leaning on a nullable branch id.
type LocationKind string

const (
	LocationKindMain   LocationKind = "main"
	LocationKindBranch LocationKind = "branch"
)

var validLocationKinds = []LocationKind{
	LocationKindMain,
	LocationKindBranch,
}

// String implements fmt.Stringer.
func (l LocationKind) String() string {
	return string(l)
}

// IsValid reports whether the value is known.
func (l LocationKind) IsValid() bool {
	for _, candidate := range validLocationKinds {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLocationKind converts raw input into a LocationKind.
func ParseLocationKind(value string) (LocationKind, error) {
	for _, candidate := range validLocationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid location kind %q", value)
}
