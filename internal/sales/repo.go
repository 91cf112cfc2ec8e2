package sales

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/pagination"
)

// Repository persists sales and their line items.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithTx inserts a sale and its items using the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, sale *models.Sale) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	for i := range sale.Items {
		if sale.Items[i].ID == uuid.Nil {
			sale.Items[i].ID = uuid.New()
		}
		sale.Items[i].SaleID = sale.ID
	}
	return tx.Create(sale).Error
}

// FindByID loads one sale with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListByTenant returns one page of sales, newest first, using cursor
// pagination.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Sale, string, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	query := r.db.WithContext(ctx).
		Preload("Items").
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

	var rows []models.Sale
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
