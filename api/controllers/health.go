package controllers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/shipment-console/api/responses"
	"github.com/angelmondragon/shipment-console/pkg/config"
	pkgerrors "github.com/angelmondragon/shipment-console/pkg/errors"
	"github.com/angelmondragon/shipment-console/pkg/logger"
)

const (
	envHeader          = "X-Shipconsole-Env"
	readinessTimeout   = 2 * time.Second
	readinessCheckDown = "down"
	readinessCheckUp   = "up"
)

// Pinger is one readiness dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency; nil pingers are skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		var errs error
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = readinessCheckDown
				errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name))
				continue
			}
			checks[name] = readinessCheckUp
		}

		if errs != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "dependency unavailable").
				WithDetails(map[string]any{"checks": checks}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
