package tenants

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
)

// Repository handles tenant persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to tenant operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new tenant row.
func (r *Repository) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(tenant).Error
}

// CreateWithTx persists a new tenant using the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, tenant *models.Tenant) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	return tx.Create(tenant).Error
}

// FindByID loads a tenant by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// FindByIDWithTx loads a tenant using the provided transaction.
func (r *Repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Tenant, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var tenant models.Tenant
	if err := tx.First(&tenant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// FindBySubdomain loads a tenant by its unique subdomain.
func (r *Repository) FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).
		Where("subdomain = ?", subdomain).
		First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// Update saves the provided tenant.
func (r *Repository) Update(ctx context.Context, tenant *models.Tenant) error {
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	return r.db.WithContext(ctx).Save(tenant).Error
}

// UpdateWithTx persists the tenant using the provided transaction.
func (r *Repository) UpdateWithTx(tx *gorm.DB, tenant *models.Tenant) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	return tx.Save(tenant).Error
}

// ListOrganizations returns every active root tenant.
func (r *Repository) ListOrganizations(ctx context.Context) ([]models.Tenant, error) {
	var orgs []models.Tenant
	if err := r.db.WithContext(ctx).
		Where("parent_tenant_id IS NULL AND is_active = ?", true).
		Order("created_at ASC").
		Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

// ListBranches returns every branch of the organization.
func (r *Repository) ListBranches(ctx context.Context, organizationID uuid.UUID) ([]models.Tenant, error) {
	var branches []models.Tenant
	if err := r.db.WithContext(ctx).
		Where("parent_tenant_id = ?", organizationID).
		Order("created_at ASC").
		Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}

// ListBranchesWithTx returns branches using the provided transaction.
func (r *Repository) ListBranchesWithTx(tx *gorm.DB, organizationID uuid.UUID) ([]models.Tenant, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var branches []models.Tenant
	if err := tx.
		Where("parent_tenant_id = ?", organizationID).
		Order("created_at ASC").
		Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}
