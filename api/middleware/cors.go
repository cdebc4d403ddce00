package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/shipment-console/api/responses"
)

// CORS admits the console front ends. A "*" entry opens the API to any
// origin but then drops credentialed requests.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	wildcard := false
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if origin == "*" {
			wildcard = true
		}
		allowed = append(allowed, origin)
	}
	if len(allowed) == 0 {
		allowed = []string{"http://localhost:3000"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			IdempotencyKeyHeader, responses.RequestIDHeader,
		},
		ExposedHeaders:   []string{responses.RequestIDHeader, ReplayedHeader, "Retry-After"},
		AllowCredentials: !wildcard,
		MaxAge:           600,
	})
}
