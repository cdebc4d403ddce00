package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/shipment-console/internal/warehouse/router"
	"github.com/angelmondragon/shipment-console/internal/warehouse/worker"
	"github.com/angelmondragon/shipment-console/internal/warehouse/writer"
	"github.com/angelmondragon/shipment-console/pkg/bigquery"
	"github.com/angelmondragon/shipment-console/pkg/config"
	"github.com/angelmondragon/shipment-console/pkg/logger"
	"github.com/angelmondragon/shipment-console/pkg/outbox/idempotency"
	"github.com/angelmondragon/shipment-console/pkg/pubsub"
	"github.com/angelmondragon/shipment-console/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "warehouse-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "warehouse-worker"

	logg = logger.New(logger.Options{
		ServiceName: "warehouse-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, []string{cfg.PubSub.ShipmentsTopic}, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	subscription, err := pubsubClient.Subscriber(ctx, cfg.PubSub.WarehouseSubscription)
	requireResource(ctx, logg, "warehouse subscription", err)

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	ledger, err := idempotency.NewLedger(redisClient, worker.ConsumerName, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "delivery ledger", err)

	factWriter, err := writer.New(bqClient, writer.Config{
		FactsTable: cfg.BigQuery.ShipmentFactsTable,
		LotsTable:  cfg.BigQuery.ShipmentLotsTable,
		BatchSize:  cfg.BigQuery.BatchSize,
	})
	requireResource(ctx, logg, "warehouse writer", err)

	routingHandler, err := router.NewRouter(factWriter, logg, nil)
	requireResource(ctx, logg, "warehouse router", err)

	service, err := worker.NewService(subscription, routingHandler, ledger, logg)
	requireResource(ctx, logg, "warehouse worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"subscription": cfg.PubSub.WarehouseSubscription,
	})
	logg.Info(runCtx, "warehouse worker ready")

	runErr := service.Run(runCtx)
	if err := factWriter.Flush(context.Background()); err != nil {
		logg.Error(runCtx, "failed to flush buffered rows", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(runCtx, "warehouse worker failed", runErr)
		os.Exit(1)
	}
	logg.Info(runCtx, "warehouse worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
