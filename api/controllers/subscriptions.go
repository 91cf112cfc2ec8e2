package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/api/responses"
	"github.com/statbricks/mbiz-backend/api/validators"
	subsvc "github.com/statbricks/mbiz-backend/internal/subscriptions"
	"github.com/statbricks/mbiz-backend/pkg/enums"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

type initializeSubscriptionRequest struct {
	BillingCycle string   `json:"billing_cycle" validate:"required"`
	BranchIDs    []string `json:"branch_ids,omitempty" validate:"omitempty,dive,uuid"`
}

// InitializeSubscription opens a checkout for the selected cycle and
// branch set.
func InitializeSubscription(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initializeSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cycle, err := enums.ParseBillingCycle(strings.TrimSpace(payload.BillingCycle))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing cycle"))
			return
		}

		branchIDs := make([]uuid.UUID, 0, len(payload.BranchIDs))
		for _, raw := range payload.BranchIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch id"))
				return
			}
			branchIDs = append(branchIDs, id)
		}

		checkout, err := svc.Initialize(r.Context(), orgID, subsvc.InitializeInput{
			Cycle:     cycle,
			BranchIDs: branchIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}

type verifySubscriptionRequest struct {
	Reference string `json:"reference" validate:"required"`
}

// VerifySubscription settles a payment reference against the gateway
// and activates the coverage it paid for. Safe to call repeatedly.
func VerifySubscription(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload verifySubscriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.Verify(r.Context(), strings.TrimSpace(payload.Reference))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, outcome)
	}
}

type subscriptionBranchRequest struct {
	BranchID string `json:"branch_id" validate:"required,uuid"`
}

// AddSubscriptionBranch opens a pro-rata checkout covering one branch
// for the remainder of the current billing period.
func AddSubscriptionBranch(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload subscriptionBranchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		branchID, err := uuid.Parse(payload.BranchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch id"))
			return
		}

		checkout, err := svc.AddBranch(r.Context(), orgID, branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}

type upgradeSubscriptionRequest struct {
	TargetCycle string `json:"target_cycle" validate:"required"`
}

// UpgradeSubscription opens a checkout for a longer cycle, crediting
// the unused value of the current period.
func UpgradeSubscription(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload upgradeSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseBillingCycle(strings.TrimSpace(payload.TargetCycle))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target cycle"))
			return
		}

		checkout, err := svc.Upgrade(r.Context(), orgID, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}

type branchAction func(svc subsvc.Service, orgID, branchID uuid.UUID, r *http.Request) error

func branchSubscriptionHandler(svc subsvc.Service, logg *logger.Logger, action branchAction, result string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		branchID, err := uuidParam(r, "branchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := action(svc, orgID, branchID, r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{result: true})
	}
}

// CancelBranchSubscription stops a branch from renewing; coverage runs
// until the paid period ends.
func CancelBranchSubscription(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return branchSubscriptionHandler(svc, logg, func(svc subsvc.Service, orgID, branchID uuid.UUID, r *http.Request) error {
		return svc.CancelBranch(r.Context(), orgID, branchID)
	}, "cancelled")
}

// ReactivateBranchSubscription undoes a cancellation before the paid
// period lapses.
func ReactivateBranchSubscription(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return branchSubscriptionHandler(svc, logg, func(svc subsvc.Service, orgID, branchID uuid.UUID, r *http.Request) error {
		return svc.ReactivateBranch(r.Context(), orgID, branchID)
	}, "reactivated")
}

// SelectBranchForRenewal includes a branch in the next renewal quote.
func SelectBranchForRenewal(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return branchSubscriptionHandler(svc, logg, func(svc subsvc.Service, orgID, branchID uuid.UUID, r *http.Request) error {
		return svc.SelectForRenewal(r.Context(), orgID, branchID)
	}, "selected")
}

// DeselectBranchForRenewal drops a branch from the next renewal quote.
func DeselectBranchForRenewal(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return branchSubscriptionHandler(svc, logg, func(svc subsvc.Service, orgID, branchID uuid.UUID, r *http.Request) error {
		return svc.DeselectForRenewal(r.Context(), orgID, branchID)
	}, "deselected")
}

// SubscriptionStatus summarizes the organization's coverage.
func SubscriptionStatus(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.GetStatus(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}

// ListSubscriptionTransactions returns the payment history.
func ListSubscriptionTransactions(svc subsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transactions, err := svc.ListTransactions(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transactions)
	}
}
