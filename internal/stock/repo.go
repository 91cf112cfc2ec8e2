package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
)

// Repository handles branch stock rows and movement history.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to stock operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateRowWithTx inserts one branch stock row in the provided transaction.
func (r *Repository) CreateRowWithTx(tx *gorm.DB, row *models.BranchStock) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if row == nil {
		return fmt.Errorf("branch stock row is required")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return tx.Create(row).Error
}

// FindRow loads one (branch, product) stock row.
func (r *Repository) FindRow(ctx context.Context, tenantID, productID uuid.UUID) (*models.BranchStock, error) {
	var row models.BranchStock
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindRowWithTx loads one stock row in the provided transaction.
func (r *Repository) FindRowWithTx(tx *gorm.DB, tenantID, productID uuid.UUID) (*models.BranchStock, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var row models.BranchStock
	if err := tx.
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateRowWithTx saves a stock row in the provided transaction.
func (r *Repository) UpdateRowWithTx(tx *gorm.DB, row *models.BranchStock) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if row == nil {
		return fmt.Errorf("branch stock row is required")
	}
	return tx.Save(row).Error
}

// ListRowsByBranch returns every stock row for one branch.
func (r *Repository) ListRowsByBranch(ctx context.Context, tenantID uuid.UUID) ([]models.BranchStock, error) {
	var rows []models.BranchStock
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListRowsByBranchWithTx returns a branch's stock rows in the provided transaction.
func (r *Repository) ListRowsByBranchWithTx(tx *gorm.DB, tenantID uuid.UUID) ([]models.BranchStock, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var rows []models.BranchStock
	if err := tx.
		Where("tenant_id = ?", tenantID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateMovementWithTx appends one movement row in the provided transaction.
func (r *Repository) CreateMovementWithTx(tx *gorm.DB, movement *models.StockMovement) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if movement == nil {
		return fmt.Errorf("stock movement is required")
	}
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	return tx.Create(movement).Error
}

// ListMovements returns movement history for one product within an
// organization, newest first.
func (r *Repository) ListMovements(ctx context.Context, organizationID, productID uuid.UUID) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", organizationID, productID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
