package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/api/responses"
	"github.com/statbricks/mbiz-backend/api/validators"
	stocksvc "github.com/statbricks/mbiz-backend/internal/stock"
	"github.com/statbricks/mbiz-backend/pkg/enums"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

// StockLevels lists per-product quantities for one location, selected
// with an optional ?branch_id= filter.
func StockLevels(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loc, err := locationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		levels, err := svc.Levels(r.Context(), orgID, loc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, levels)
	}
}

type adjustStockRequest struct {
	Location  locationRequest `json:"location" validate:"required"`
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Type      string          `json:"type" validate:"required"`
	Delta     int             `json:"delta" validate:"required"`
	Note      *string         `json:"note,omitempty"`
}

// AdjustStock applies one signed stock movement at a location.
func AdjustStock(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loc, err := payload.Location.toLocation()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		movementType, err := enums.ParseStockMovementType(strings.TrimSpace(payload.Type))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement type"))
			return
		}

		movement, err := svc.Adjust(r.Context(), orgID, stocksvc.AdjustInput{
			Location:  loc,
			ProductID: productID,
			Type:      movementType,
			Delta:     payload.Delta,
			Note:      payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, movement)
	}
}

// ReconcileStock backfills missing branch stock rows across the
// organization's catalog.
func ReconcileStock(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Reconcile(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{"rows_created": created})
	}
}

// StockMovements returns the movement history for one product.
func StockMovements(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movements, err := svc.ListMovements(r.Context(), orgID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, movements)
	}
}

type branchPriceRequest struct {
	BranchID     string `json:"branch_id" validate:"required,uuid"`
	OverrideKobo *int64 `json:"override_kobo,omitempty" validate:"omitempty,min=0"`
}

// SetBranchPrice sets or clears a branch-local selling price override.
// A null override reverts the branch to the catalog price.
func SetBranchPrice(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload branchPriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		branchID, err := uuid.Parse(payload.BranchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch id"))
			return
		}

		if err := svc.SetPriceOverride(r.Context(), orgID, branchID, productID, payload.OverrideKobo); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"updated": true})
	}
}
