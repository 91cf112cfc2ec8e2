package models

import (
	"time"

	"github.com/google/uuid"
)

// RenewalSelection marks a branch for inclusion in the organization's
// next renewal payment. A normalized join table instead of a
// serialized id list on the organization row.
type RenewalSelection struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:idx_renewal_selection_pair"`
	BranchTenantID uuid.UUID `gorm:"column:branch_tenant_id;type:uuid;not null;uniqueIndex:idx_renewal_selection_pair"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
