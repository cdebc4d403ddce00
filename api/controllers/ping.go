package controllers

import (
	"net/http"

	"github.com/angelmondragon/shipment-console/api/middleware"
	"github.com/angelmondragon/shipment-console/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// PrivatePing echoes the operator identity the token resolved to.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{
			"scope":   "private",
			"status":  "ok",
			"user_id": middleware.UserIDFromContext(r.Context()),
			"role":    middleware.RoleFromContext(r.Context()),
		}
		if vendor := middleware.VendorIDFromContext(r.Context()); vendor != "" {
			payload["vendor_id"] = vendor
		}
		responses.WriteSuccess(w, payload)
	}
}
