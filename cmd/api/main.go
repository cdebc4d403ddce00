package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/shipment-console/api/controllers"
	"github.com/angelmondragon/shipment-console/api/routes"
	"github.com/angelmondragon/shipment-console/internal/fulfillment"
	"github.com/angelmondragon/shipment-console/internal/shipments"
	"github.com/angelmondragon/shipment-console/pkg/config"
	"github.com/angelmondragon/shipment-console/pkg/db"
	"github.com/angelmondragon/shipment-console/pkg/logger"
	"github.com/angelmondragon/shipment-console/pkg/metrics"
	"github.com/angelmondragon/shipment-console/pkg/migrate"
	"github.com/angelmondragon/shipment-console/pkg/outbox"
	"github.com/angelmondragon/shipment-console/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := shipments.NewService(shipments.ServiceParams{
		DB:         dbClient,
		Repository: shipments.NewRepository(dbClient.DB()),
		Outbox:     outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create shipment service", err)
		os.Exit(1)
	}

	store := fulfillment.NewStore(cfg.Console.SessionTTL)
	console, err := fulfillment.NewConsole(fulfillment.ConsoleParams{
		Gateway:          gateway,
		Recorder:         metrics.NewShipmentMetrics(prometheus.DefaultRegisterer),
		Logger:           logg,
		Store:            store,
		SearchWindowDays: cfg.Console.SearchWindowDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create console", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go store.Run(ctx, cfg.Console.SweepInterval)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Console: console,
			Checks: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
			},
			Store:       redisClient,
			DeadLetters: outbox.NewDLQRepository(dbClient.DB()),
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGracePeriod)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}
