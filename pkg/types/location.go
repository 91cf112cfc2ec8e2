package types

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/pkg/enums"
)

// Location names where a sale or stock mutation happens: the
// organization's main location, or a specific branch. The explicit
// variant replaces the old null-branch-id-means-main convention.
type Location struct {
	Kind     enums.LocationKind `json:"kind"`
	BranchID *uuid.UUID         `json:"branch_id,omitempty"`
}

// MainLocation returns the main-location variant.
func MainLocation() Location {
	return Location{Kind: enums.LocationKindMain}
}

// BranchLocation returns the branch variant for the given tenant id.
func BranchLocation(branchID uuid.UUID) Location {
	return Location{Kind: enums.LocationKindBranch, BranchID: &branchID}
}

// Validate checks the kind/branch-id pairing.
func (l Location) Validate() error {
	switch l.Kind {
	case enums.LocationKindMain:
		if l.BranchID != nil {
			return fmt.Errorf("main location must not carry a branch id")
		}
	case enums.LocationKindBranch:
		if l.BranchID == nil || *l.BranchID == uuid.Nil {
			return fmt.Errorf("branch location requires a branch id")
		}
	default:
		return fmt.Errorf("invalid location kind %q", l.Kind)
	}
	return nil
}

// IsBranch reports whether the location is a branch.
func (l Location) IsBranch() bool {
	return l.Kind == enums.LocationKindBranch
}
