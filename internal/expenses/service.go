package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/internal/billing"
	"github.com/statbricks/mbiz-backend/pkg/db/models"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/pagination"
)

// Service exposes expense bookkeeping. Subscription expenses are
// created by the billing flow, not through this surface.
type Service interface {
	Record(ctx context.Context, organizationID uuid.UUID, input RecordExpenseInput) (*ExpenseDTO, error)
	Delete(ctx context.Context, organizationID, expenseID uuid.UUID) error
	List(ctx context.Context, organizationID uuid.UUID, params pagination.Params) ([]ExpenseDTO, string, error)
}

// ServiceParams groups dependencies for the expense service.
type ServiceParams struct {
	Repo *Repository
	Now  func() time.Time
}

// RecordExpenseInput captures one manually entered expense.
type RecordExpenseInput struct {
	Description string
	AmountKobo  int64
	IncurredAt  *time.Time
}

// ExpenseDTO is the API shape of one expense.
type ExpenseDTO struct {
	ID            uuid.UUID `json:"id"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	AmountKobo    int64     `json:"amount_kobo"`
	AmountDisplay string    `json:"amount_display"`
	IncurredAt    time.Time `json:"incurred_at"`
}

type service struct {
	repo *Repository
	now  func() time.Time
}

// NewService builds an expense service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("expense repo required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, now: now}, nil
}

// Record stores a general expense against the organization.
func (s *service) Record(ctx context.Context, organizationID uuid.UUID, input RecordExpenseInput) (*ExpenseDTO, error) {
	if organizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id is required")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if input.AmountKobo <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	incurredAt := s.now().UTC()
	if input.IncurredAt != nil {
		incurredAt = input.IncurredAt.UTC()
	}

	expense := &models.Expense{
		ID:          uuid.New(),
		TenantID:    organizationID,
		Description: description,
		Category:    models.ExpenseCategoryGeneral,
		AmountKobo:  input.AmountKobo,
		IncurredAt:  incurredAt,
	}
	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create expense")
	}
	return fromModel(expense), nil
}

// Delete removes a general expense. Subscription expenses are part of
// the billing record and cannot be deleted.
func (s *service) Delete(ctx context.Context, organizationID, expenseID uuid.UUID) error {
	if expenseID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "expense id is required")
	}
	expense, err := s.repo.FindByID(ctx, expenseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "expense not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load expense")
	}
	if expense.TenantID != organizationID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "expense not found")
	}
	if expense.Category == models.ExpenseCategorySubscription {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription expenses cannot be deleted")
	}
	if err := s.repo.Delete(ctx, expenseID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete expense")
	}
	return nil
}

// List returns one page of expenses, newest first.
func (s *service) List(ctx context.Context, organizationID uuid.UUID, params pagination.Params) ([]ExpenseDTO, string, error) {
	rows, next, err := s.repo.ListByTenant(ctx, organizationID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expenses")
	}
	out := make([]ExpenseDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *fromModel(&rows[i]))
	}
	return out, next, nil
}

func fromModel(e *models.Expense) *ExpenseDTO {
	return &ExpenseDTO{
		ID:            e.ID,
		Description:   e.Description,
		Category:      e.Category,
		AmountKobo:    e.AmountKobo,
		AmountDisplay: billing.MajorUnits(e.AmountKobo),
		IncurredAt:    e.IncurredAt,
	}
}
