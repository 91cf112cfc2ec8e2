package controllers

import (
	"net/http"

	"github.com/statbricks/mbiz-backend/api/middleware"
	"github.com/statbricks/mbiz-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"message": "pong"})
	}
}

// PrivatePing echoes the authenticated identity so clients can verify
// their token wiring.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"message":   "pong",
			"user_id":   middleware.UserIDFromContext(r.Context()),
			"tenant_id": middleware.TenantIDFromContext(r.Context()),
			"role":      middleware.RoleFromContext(r.Context()),
		})
	}
}
