package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/shipment-console/api/responses"
	pkgAuth "github.com/angelmondragon/shipment-console/pkg/auth"
	"github.com/angelmondragon/shipment-console/pkg/config"
	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
	"github.com/angelmondragon/shipment-console/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the operator identity.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			ctx = WithRole(ctx, string(claims.Role))
			if claims.VendorScoped() {
				ctx = WithVendorID(ctx, claims.VendorID)
			}

			if logg != nil {
				vendorID := ""
				if claims.VendorScoped() {
					vendorID = claims.VendorID
				}
				ctx = logg.WithOperator(ctx, claims.UserID, vendorID, string(claims.Role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
