package middleware

import (
	"net/http"

	"github.com/angelmondragon/shipment-console/api/responses"
	"github.com/angelmondragon/shipment-console/pkg/enums"
	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
	"github.com/angelmondragon/shipment-console/pkg/logger"
)

// RequireRole admits operators holding one of the allowed roles.
func RequireRole(logg *logger.Logger, allowed ...enums.OperatorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := enums.OperatorRole(RoleFromContext(r.Context()))
			for _, candidate := range allowed {
				if candidate == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
		})
	}
}
