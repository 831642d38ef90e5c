package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bazaar-backend/api/routes"
	"github.com/angelmondragon/bazaar-backend/internal/auth"
	"github.com/angelmondragon/bazaar-backend/internal/bargains"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/products"
	"github.com/angelmondragon/bazaar-backend/internal/settlement"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/internal/users"
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

const shutdownTimeout = 15 * time.Second

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

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	svc, err := buildServices(ctx, cfg, logg, dbClient)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}

func buildServices(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	conn := dbClient.DB()

	userRepo := users.NewRepository(conn)
	storeRepo := stores.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	notificationRepo := notifications.NewRepository(conn)

	notifier, err := notifications.NewDispatcher(notificationRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		StoreRepo:      storeRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	storeSvc, err := stores.NewService(storeRepo)
	if err != nil {
		return routes.Services{}, err
	}

	productSvc, err := products.NewService(productRepo, storeRepo)
	if err != nil {
		return routes.Services{}, err
	}

	bargainSvc, err := bargains.NewService(bargains.ServiceParams{
		DB:       dbClient,
		Repo:     bargains.NewRepository(conn),
		Products: productRepo,
		Outbox:   outboxSvc,
		Notifier: notifier,
		Logger:   logg,
		Config:   cfg.Marketplace,
	})
	if err != nil {
		return routes.Services{}, err
	}

	gateway, err := payout.New(ctx, cfg.Payout, cfg.Stripe, logg)
	if err != nil {
		return routes.Services{}, err
	}

	settlementSvc, err := settlement.NewService(settlement.ServiceParams{
		DB:       dbClient,
		Repo:     settlement.NewRepository(conn),
		Stores:   storeRepo,
		Gateway:  gateway,
		Outbox:   outboxSvc,
		Notifier: notifier,
		Logger:   logg,
		Metrics:  metrics.NewSettlementMetrics(prometheus.DefaultRegisterer),
		Config:   cfg.Settlement,
		Currency: cfg.Marketplace.Currency,
	})
	if err != nil {
		return routes.Services{}, err
	}

	orderSvc, err := orders.NewService(orders.ServiceParams{
		DB:       dbClient,
		Repo:     orders.NewRepository(conn),
		Products: productRepo,
		Bargains: bargainSvc,
		Ledger:   settlementSvc,
		Outbox:   outboxSvc,
		Notifier: notifier,
		Logger:   logg,
		Config:   cfg.Marketplace,
	})
	if err != nil {
		return routes.Services{}, err
	}

	notificationSvc, err := notifications.NewService(notificationRepo)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:          authSvc,
		Stores:        storeSvc,
		Products:      productSvc,
		Bargains:      bargainSvc,
		Orders:        orderSvc,
		Settlement:    settlementSvc,
		Notifications: notificationSvc,
	}, nil
}
