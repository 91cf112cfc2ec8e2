package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/statbricks/mbiz-backend/api/middleware"
	"github.com/statbricks/mbiz-backend/api/validators"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/pagination"
	"github.com/statbricks/mbiz-backend/pkg/types"
)

// tenantFromContext resolves the authenticated tenant id seeded by the
// auth middleware.
func tenantFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.TenantIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid tenant context")
	}
	return id, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

// locationRequest is the wire shape of a sale or stock location: the
// organization's main counter, or one branch.
type locationRequest struct {
	Kind     string  `json:"kind" validate:"required,oneof=main branch"`
	BranchID *string `json:"branch_id,omitempty"`
}

func (l locationRequest) toLocation() (types.Location, error) {
	switch l.Kind {
	case "main":
		if l.BranchID != nil {
			return types.Location{}, pkgerrors.New(pkgerrors.CodeValidation, "main location must not carry a branch id")
		}
		return types.MainLocation(), nil
	case "branch":
		if l.BranchID == nil {
			return types.Location{}, pkgerrors.New(pkgerrors.CodeValidation, "branch location requires a branch id")
		}
		id, err := uuid.Parse(*l.BranchID)
		if err != nil {
			return types.Location{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch id")
		}
		return types.BranchLocation(id), nil
	default:
		return types.Location{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid location kind")
	}
}

// locationFromQuery reads an optional ?branch_id= filter, defaulting to
// the main location.
func locationFromQuery(r *http.Request) (types.Location, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("branch_id"))
	if raw == "" {
		return types.MainLocation(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return types.Location{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch_id")
	}
	return types.BranchLocation(id), nil
}
