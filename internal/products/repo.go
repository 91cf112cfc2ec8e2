package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/pagination"
)

// Repository handles catalog persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to product operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	if product == nil {
		return fmt.Errorf("product is required")
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(product).Error
}

// CreateWithTx persists a new product using the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, product *models.Product) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if product == nil {
		return fmt.Errorf("product is required")
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return tx.Create(product).Error
}

// FindByID loads a product by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDWithTx loads a product using the provided transaction.
func (r *Repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var product models.Product
	if err := tx.First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySKU loads a product by SKU within one catalog.
func (r *Repository) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sku = ?", tenantID, sku).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Update saves the provided product.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	if product == nil {
		return fmt.Errorf("product is required")
	}
	return r.db.WithContext(ctx).Save(product).Error
}

// UpdateWithTx persists the product using the provided transaction.
func (r *Repository) UpdateWithTx(tx *gorm.DB, product *models.Product) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if product == nil {
		return fmt.Errorf("product is required")
	}
	return tx.Save(product).Error
}

// ListByTenant returns one page of the catalog using cursor pagination.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Product, string, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Product
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	pageSize := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

// ListByTenantWithTx returns the full catalog using the provided transaction.
func (r *Repository) ListByTenantWithTx(tx *gorm.DB, tenantID uuid.UUID) ([]models.Product, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var rows []models.Product
	if err := tx.
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveByTenant returns every active catalog entry.
func (r *Repository) ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
