package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/api/responses"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

type writeAccessChecker interface {
	CheckWriteAccess(ctx context.Context, tenantID uuid.UUID) error
}

// SubscriptionGuard rejects mutating requests from tenants whose
// subscription has lapsed. Reads always pass; a running trial or a
// covering paid row unlocks writes.
func SubscriptionGuard(checker writeAccessChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			tenantID, err := uuid.Parse(TenantIDFromContext(r.Context()))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing tenant context"))
				return
			}
			if err := checker.CheckWriteAccess(r.Context(), tenantID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
