package controllers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/statbricks/mbiz-backend/api/responses"
	productsvc "github.com/statbricks/mbiz-backend/internal/products"
	tenantsvc "github.com/statbricks/mbiz-backend/internal/tenants"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

// maxUploadBytes caps logo and product image uploads.
const maxUploadBytes = 5 << 20

type objectStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	PublicURL(key string) string
}

func readImageUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	contentType := strings.TrimSpace(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "an image content type is required")
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if len(body) == 0 {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "upload body is empty")
	}
	return body, contentType, nil
}

// UploadOrganizationLogo stores the organization's logo and records
// its object key.
func UploadOrganizationLogo(store objectStore, svc tenantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "object storage unavailable"))
			return
		}

		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		body, contentType, err := readImageUpload(w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key := fmt.Sprintf("logos/%s", orgID)
		if err := store.Put(r.Context(), key, body, contentType); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateLogoKey(r.Context(), orgID, key); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"key": key,
			"url": store.PublicURL(key),
		})
	}
}

// UploadProductImage stores a product image and records its object key.
func UploadProductImage(store objectStore, svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "object storage unavailable"))
			return
		}

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

		body, contentType, err := readImageUpload(w, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key := fmt.Sprintf("products/%s/%s", orgID, productID)
		if err := store.Put(r.Context(), key, body, contentType); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateImageKey(r.Context(), orgID, productID, key); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"key": key,
			"url": store.PublicURL(key),
		})
	}
}
