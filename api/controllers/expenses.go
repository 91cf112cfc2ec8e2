package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/statbricks/mbiz-backend/api/responses"
	"github.com/statbricks/mbiz-backend/api/validators"
	expensesvc "github.com/statbricks/mbiz-backend/internal/expenses"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

type recordExpenseRequest struct {
	Description string  `json:"description" validate:"required,min=2"`
	AmountKobo  int64   `json:"amount_kobo" validate:"required,min=1"`
	IncurredAt  *string `json:"incurred_at,omitempty"`
}

// RecordExpense books one manually entered expense.
func RecordExpense(svc expensesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordExpenseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var incurredAt *time.Time
		if payload.IncurredAt != nil {
			parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*payload.IncurredAt))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid incurred_at"))
				return
			}
			incurredAt = &parsed
		}

		expense, err := svc.Record(r.Context(), orgID, expensesvc.RecordExpenseInput{
			Description: validators.SanitizeString(payload.Description, 255),
			AmountKobo:  payload.AmountKobo,
			IncurredAt:  incurredAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, expense)
	}
}

// ListExpenses pages through the organization's expenses.
func ListExpenses(svc expensesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expenses, next, err := svc.List(r.Context(), orgID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"expenses":    expenses,
			"next_cursor": next,
		})
	}
}

// DeleteExpense removes a manually entered expense. Subscription
// expenses are system-generated and refuse deletion.
func DeleteExpense(svc expensesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		expenseID, err := uuidParam(r, "expenseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), orgID, expenseID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
