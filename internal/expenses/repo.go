package expenses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/pagination"
)

// Repository persists expenses.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts one expense.
func (r *Repository) Create(ctx context.Context, expense *models.Expense) error {
	if expense.ID == uuid.Nil {
		expense.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(expense).Error
}

// CreateWithTx inserts one expense using the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, expense *models.Expense) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if expense.ID == uuid.Nil {
		expense.ID = uuid.New()
	}
	return tx.Create(expense).Error
}

// FindByID loads one expense.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Expense, error) {
	var expense models.Expense
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

// Delete removes one expense.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Expense{}).Error
}

// ListByTenant returns one page of expenses, newest first, using
// cursor pagination.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Expense, string, error) {
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

	var rows []models.Expense
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
