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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/ldraney/pal-e-billing/api/routes"
	"github.com/ldraney/pal-e-billing/internal/entitlements"
	"github.com/ldraney/pal-e-billing/internal/portal"
	"github.com/ldraney/pal-e-billing/internal/subscribers"
	stripewebhook "github.com/ldraney/pal-e-billing/internal/webhooks/stripe"
	"github.com/ldraney/pal-e-billing/pkg/config"
	"github.com/ldraney/pal-e-billing/pkg/db"
	"github.com/ldraney/pal-e-billing/pkg/logger"
	"github.com/ldraney/pal-e-billing/pkg/metrics"
	"github.com/ldraney/pal-e-billing/pkg/migrate"
	"github.com/ldraney/pal-e-billing/pkg/redis"
	pkgstripe "github.com/ldraney/pal-e-billing/pkg/stripe"
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

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": cfg.HTTP.Addr(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.Evolve(ctx, dbClient.DB(), logg); err != nil {
		return err
	}

	// Event de-duplication is optional; without Redis every delivery is processed.
	var (
		redisPinger redis.Pinger
		guard       *stripewebhook.IdempotencyGuard
	)
	if cfg.Redis.Enabled() {
		var redisClient *redis.Client
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		redisPinger = redisClient
		guard, err = stripewebhook.NewIdempotencyGuard(redisClient, cfg.Redis.IdempotencyTTL, stripewebhook.IdempotencyScope)
		if err != nil {
			return err
		}
	} else {
		logg.Warn(ctx, "redis not configured, webhook de-duplication disabled")
	}

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return err
	}

	repo := subscribers.NewRepository(dbClient.DB())

	entitlementService, err := entitlements.NewService(repo, dbClient)
	if err != nil {
		return err
	}
	portalService, err := portal.NewService(repo, stripeClient, cfg.Portal.ReturnURL)
	if err != nil {
		return err
	}
	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Repo:              repo,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisPinger,
			registry,
			entitlementService,
			portalService,
			stripeClient,
			webhookService,
			guard,
			webhookMetrics,
		),
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
