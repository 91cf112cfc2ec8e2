package controllers

import (
	"net/http"
	"strings"

	"github.com/statbricks/mbiz-backend/api/responses"
	"github.com/statbricks/mbiz-backend/api/validators"
	productsvc "github.com/statbricks/mbiz-backend/internal/products"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

type createProductRequest struct {
	Name             string  `json:"name" validate:"required,min=2"`
	SKU              string  `json:"sku" validate:"required"`
	Category         *string `json:"category,omitempty"`
	Unit             *string `json:"unit,omitempty"`
	CostPriceKobo    int64   `json:"cost_price_kobo" validate:"min=0"`
	SellingPriceKobo int64   `json:"selling_price_kobo" validate:"required,min=0"`
	Quantity         int     `json:"quantity" validate:"min=0"`
	ReorderLevel     int     `json:"reorder_level" validate:"min=0"`
}

// CreateProduct adds a catalog entry and seeds a stock row for every
// active branch.
func CreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), orgID, productsvc.CreateProductInput{
			Name:             strings.TrimSpace(payload.Name),
			SKU:              strings.TrimSpace(payload.SKU),
			Category:         payload.Category,
			Unit:             payload.Unit,
			CostPriceKobo:    payload.CostPriceKobo,
			SellingPriceKobo: payload.SellingPriceKobo,
			Quantity:         payload.Quantity,
			ReorderLevel:     payload.ReorderLevel,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ListProducts pages through the organization's catalog.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		products, next, err := svc.List(r.Context(), orgID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"products":    products,
			"next_cursor": next,
		})
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		product, err := svc.GetByID(r.Context(), orgID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

type updateProductRequest struct {
	Name             *string `json:"name,omitempty" validate:"omitempty,min=2"`
	Category         *string `json:"category,omitempty"`
	Unit             *string `json:"unit,omitempty"`
	CostPriceKobo    *int64  `json:"cost_price_kobo,omitempty" validate:"omitempty,min=0"`
	SellingPriceKobo *int64  `json:"selling_price_kobo,omitempty" validate:"omitempty,min=0"`
	ReorderLevel     *int    `json:"reorder_level,omitempty" validate:"omitempty,min=0"`
}

func UpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), orgID, productID, productsvc.UpdateProductInput{
			Name:             payload.Name,
			Category:         payload.Category,
			Unit:             payload.Unit,
			CostPriceKobo:    payload.CostPriceKobo,
			SellingPriceKobo: payload.SellingPriceKobo,
			ReorderLevel:     payload.ReorderLevel,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func DeactivateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.Deactivate(r.Context(), orgID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"deactivated": true})
	}
}
