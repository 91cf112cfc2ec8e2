package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/api/responses"
	"github.com/statbricks/mbiz-backend/api/validators"
	salesvc "github.com/statbricks/mbiz-backend/internal/sales"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

type saleItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type recordSaleRequest struct {
	Location       locationRequest   `json:"location" validate:"required"`
	Items          []saleItemRequest `json:"items" validate:"required,min=1,dive"`
	AmountPaidKobo int64             `json:"amount_paid_kobo" validate:"min=0"`
	CustomerName   *string           `json:"customer_name,omitempty"`
}

// RecordSale books one checkout and decrements stock at its location.
func RecordSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loc, err := payload.Location.toLocation()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]salesvc.SaleItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			items = append(items, salesvc.SaleItemInput{
				ProductID: productID,
				Quantity:  item.Quantity,
			})
		}

		sale, err := svc.RecordSale(r.Context(), orgID, salesvc.RecordSaleInput{
			Location:       loc,
			Items:          items,
			AmountPaidKobo: payload.AmountPaidKobo,
			CustomerName:   payload.CustomerName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

// ListSales pages through the organization's sales, newest first.
func ListSales(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		sales, next, err := svc.List(r.Context(), orgID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"sales":       sales,
			"next_cursor": next,
		})
	}
}

func GetSale(svc salesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saleID, err := uuidParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.GetByID(r.Context(), orgID, saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}
