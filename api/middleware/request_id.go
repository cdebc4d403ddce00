package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/shipment-console/api/responses"
	"github.com/angelmondragon/shipment-console/api/validators"
	"github.com/angelmondragon/shipment-console/pkg/logger"
)

const maxRequestIDLength = 64

// RequestID propagates a caller supplied X-Request-Id or mints one, echoes it on
// the response and tags the request logger with it.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := validators.SanitizeString(r.Header.Get(responses.RequestIDHeader), maxRequestIDLength)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(responses.RequestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
