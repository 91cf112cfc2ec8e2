package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/api/responses"
	usersvc "github.com/statbricks/mbiz-backend/internal/users"
	"github.com/statbricks/mbiz-backend/pkg/db/models"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

type userLister interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.User, error)
}

// ListUsers returns the operator accounts under the tenant.
func ListUsers(repo userLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user repo unavailable"))
			return
		}

		tenantID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		users, err := repo.ListByTenant(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users"))
			return
		}

		out := make([]usersvc.UserDTO, 0, len(users))
		for i := range users {
			out = append(out, *usersvc.FromModel(&users[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
