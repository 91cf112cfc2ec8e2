package controllers

import (
	"net/http"

	"github.com/statbricks/mbiz-backend/api/responses"
	"github.com/statbricks/mbiz-backend/api/validators"
	tenantsvc "github.com/statbricks/mbiz-backend/internal/tenants"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

// GetOrganization returns the authenticated organization's profile.
func GetOrganization(svc tenantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tenant, err := svc.GetByID(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tenant)
	}
}

type updateTenantRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=2"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

// UpdateOrganization patches the organization's contact profile.
func UpdateOrganization(svc tenantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateTenantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tenant, err := svc.Update(r.Context(), orgID, tenantsvc.UpdateTenantInput{
			Name:    payload.Name,
			Email:   payload.Email,
			Phone:   payload.Phone,
			Address: payload.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tenant)
	}
}

type createBranchRequest struct {
	Name      string  `json:"name" validate:"required,min=2"`
	Subdomain string  `json:"subdomain" validate:"required"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
}

// CreateBranch opens a new branch under the organization and fans the
// catalog out to it.
func CreateBranch(svc tenantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createBranchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		branch, err := svc.CreateBranch(r.Context(), orgID, tenantsvc.CreateBranchInput{
			Name:      validators.SanitizeString(payload.Name, 120),
			Subdomain: payload.Subdomain,
			Email:     payload.Email,
			Phone:     payload.Phone,
			Address:   payload.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, branch)
	}
}

// ListBranches returns every active branch under the organization.
func ListBranches(svc tenantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, err := tenantFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		branches, err := svc.ListBranches(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, branches)
	}
}

// DeactivateBranch retires a branch from the organization.
func DeactivateBranch(svc tenantsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.Deactivate(r.Context(), orgID, branchID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"deactivated": true})
	}
}
