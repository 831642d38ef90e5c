package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/migrate"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/registry"
)

const serviceKind = "outbox-publisher"

func main() {
	requeue := flag.String("requeue", "", "re-arm the dead-lettered event with this id and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()
	deadLetters := outbox.NewDeadLetters(dbClient.DB())

	if *requeue != "" {
		if err := requeueEvent(ctx, logg, deadLetters, *requeue); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	eventBroker, topics, err := newBroker(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap broker", err)
		os.Exit(1)
	}
	defer func() {
		if err := eventBroker.Close(); err != nil {
			logg.Error(context.Background(), "error closing broker", err)
		}
	}()

	eventRegistry, err := registry.NewEventRegistry(topics)
	if err != nil {
		logg.Error(ctx, "failed to build event registry", err)
		os.Exit(1)
	}
	publisher, err := NewPublisher(PublisherParams{
		Outbox:      cfg.Outbox,
		Logger:      logg,
		DB:          dbClient,
		Broker:      eventBroker,
		Repository:  outbox.NewRepository(dbClient.DB()),
		Registry:    eventRegistry,
		DeadLetters: deadLetters,
		Metrics:     metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(ctx, "failed to create outbox publisher", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"broker":      eventBroker.Name(),
	})

	metricsServer := &http.Server{
		Addr:              cfg.Outbox.MetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()

	logg.Info(ctx, "starting outbox publisher")
	runErr := publisher.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "metrics server shutdown failed", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", runErr)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shut down gracefully")
}

func requeueEvent(ctx context.Context, logg *logger.Logger, dead *outbox.DeadLetters, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		logg.Error(ctx, "invalid -requeue event id", err)
		return err
	}
	ctx = logg.WithField(ctx, "event_id", id.String())
	entry, err := dead.Get(ctx, id)
	if err != nil {
		logg.Error(ctx, "dead letter lookup failed", err)
		return err
	}
	if err := dead.Requeue(ctx, id); err != nil {
		logg.Error(ctx, "requeue failed", err)
		return err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"event_type":   entry.EventType,
		"error_reason": entry.ErrorReason,
	}), "dead letter requeued")
	return nil
}
