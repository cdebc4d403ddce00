package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shipment-console/api/controllers"
	"github.com/angelmondragon/shipment-console/api/controllers/shipments"
	"github.com/angelmondragon/shipment-console/api/middleware"
	"github.com/angelmondragon/shipment-console/pkg/config"
	"github.com/angelmondragon/shipment-console/pkg/db/models"
	"github.com/angelmondragon/shipment-console/pkg/enums"
	"github.com/angelmondragon/shipment-console/pkg/logger"
)

// RequestStore backs idempotent replays and mutation throttling.
type RequestStore interface {
	middleware.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// DeadLetterLister reads the outbox dead letter queue.
type DeadLetterLister interface {
	List(ctx context.Context, limit int, reason enums.OutboxDLQErrorReason) ([]models.OutboxDLQ, error)
}

// Dependencies groups what the HTTP surface needs to serve requests.
type Dependencies struct {
	Console     shipments.Console
	Checks      map[string]controllers.Pinger
	Store       RequestStore
	DeadLetters DeadLetterLister
	Metrics     http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	mutationPolicy := middleware.NewRateLimitPolicy(
		"shipment-mutation",
		cfg.HTTP.MutationRateWindow,
		cfg.HTTP.MutationRateLimit,
	)
	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Checks))
	})
	r.Handle("/metrics", metricsHandler)

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/console/sessions", func(r chi.Router) {
			console := deps.Console
			r.Post("/", shipments.CreateSession(console, logg))
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", shipments.GetSession(console, logg))
				r.Delete("/", shipments.CloseSession(console, logg))
				r.Post("/search", shipments.Search(console, logg))
				r.Post("/detail", shipments.OpenDetail(console, logg))
				r.Put("/lines/{lineNo}/expiries", shipments.ReplaceExpiries(console, logg))
				r.Post("/lines/{lineNo}/expiries", shipments.AddExpiry(console, logg))
				r.Put("/lines/{lineNo}/expiries/{index}", shipments.UpdateExpiry(console, logg))
				r.Delete("/lines/{lineNo}/expiries/{index}", shipments.RemoveExpiry(console, logg))
				r.Patch("/shipment", shipments.SetShipmentFields(console, logg))
				r.Post("/selection", shipments.UpdateSelection(console, logg))
				r.Post("/reset", shipments.Reset(console, logg))

				guarded := r.With(
					middleware.RateLimit(mutationPolicy, deps.Store, logg),
					middleware.Idempotency(deps.Store, logg),
				)
				guarded.Post("/confirm", shipments.Confirm(console, logg))
				guarded.Post("/cancel", shipments.Cancel(console, logg))
			})
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.OperatorRoleAdmin))
		r.Get("/v1/outbox/dead-letters", controllers.AdminDeadLetters(deps.DeadLetters, logg))
	})

	return r
}
