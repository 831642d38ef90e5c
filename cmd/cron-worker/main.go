package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bazaar-backend/internal/bargains"
	"github.com/angelmondragon/bazaar-backend/internal/cron"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/products"
	"github.com/angelmondragon/bazaar-backend/internal/settlement"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/instance"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/migrate"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/payout"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	loops, err := buildLoops(ctx, cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(ctx, "failed to wire cron loops", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	metricsServer := &http.Server{
		Addr:              cfg.Cron.MetricsAddr,
		Handler:           metricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()

	var wg sync.WaitGroup
	for _, loop := range loops {
		wg.Add(1)
		go func(svc *cron.Service) {
			defer wg.Done()
			if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "cron loop stopped unexpectedly", err)
			}
		}(loop)
	}
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "metrics server shutdown failed", err)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func buildLoops(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) ([]*cron.Service, error) {
	conn := dbClient.DB()
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	outboxRepo := outbox.NewRepository(conn)
	outboxSvc := outbox.NewService(outboxRepo, logg)
	notificationRepo := notifications.NewRepository(conn)
	notifier, err := notifications.NewDispatcher(notificationRepo, logg)
	if err != nil {
		return nil, err
	}

	bargainSvc, err := bargains.NewService(bargains.ServiceParams{
		DB:       dbClient,
		Repo:     bargains.NewRepository(conn),
		Products: products.NewRepository(conn),
		Outbox:   outboxSvc,
		Notifier: notifier,
		Logger:   logg,
		Config:   cfg.Marketplace,
	})
	if err != nil {
		return nil, err
	}

	gateway, err := payout.New(ctx, cfg.Payout, cfg.Stripe, logg)
	if err != nil {
		return nil, err
	}
	settlementSvc, err := settlement.NewService(settlement.ServiceParams{
		DB:       dbClient,
		Repo:     settlement.NewRepository(conn),
		Stores:   stores.NewRepository(conn),
		Gateway:  gateway,
		Outbox:   outboxSvc,
		Notifier: notifier,
		Logger:   logg,
		Metrics:  metrics.NewSettlementMetrics(prometheus.DefaultRegisterer),
		Config:   cfg.Settlement,
		Currency: cfg.Marketplace.Currency,
	})
	if err != nil {
		return nil, err
	}

	expiryJob, err := cron.NewBargainExpiryJob(cron.BargainExpiryJobParams{Logger: logg, Bargains: bargainSvc})
	if err != nil {
		return nil, err
	}
	notificationRetention, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:      "notification-retention",
		Logger:    logg,
		Purge:     notificationRepo.DeleteOlderThan,
		Retention: cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, err
	}
	outboxRetention, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:      "outbox-retention",
		Logger:    logg,
		Purge:     outboxRepo.DeletePublishedBefore,
		Retention: cfg.Cron.OutboxRetention,
	})
	if err != nil {
		return nil, err
	}
	settlementJob, err := cron.NewSettlementJob(cron.SettlementJobParams{Logger: logg, Settlement: settlementSvc})
	if err != nil {
		return nil, err
	}

	schedules := []struct {
		loop     string
		interval time.Duration
		jobs     []cron.Job
	}{
		{loop: cron.LoopExpiry, interval: cfg.Cron.ExpiryInterval, jobs: []cron.Job{expiryJob, notificationRetention, outboxRetention}},
		{loop: cron.LoopSettlement, interval: cfg.Cron.SettlementInterval, jobs: []cron.Job{settlementJob}},
	}

	loops := make([]*cron.Service, 0, len(schedules))
	for _, sched := range schedules {
		lock, err := cron.NewRedisLock(redisClient, redisClient.CronLockKey(cfg.App.Env, sched.loop), 0)
		if err != nil {
			return nil, err
		}
		registry, err := cron.NewRegistry(sched.jobs...)
		if err != nil {
			return nil, err
		}
		svc, err := cron.NewService(cron.ServiceParams{
			Loop:     sched.loop,
			Logger:   logg,
			Registry: registry,
			Lock:     lock,
			Metrics:  cronMetrics,
			Interval: sched.interval,
		})
		if err != nil {
			return nil, err
		}
		loops = append(loops, svc)
	}
	return loops, nil
}
