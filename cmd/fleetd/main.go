package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/fleetops/fleetops/internal/accounts"
	"github.com/fleetops/fleetops/internal/app"
	"github.com/fleetops/fleetops/internal/authz"
	"github.com/fleetops/fleetops/internal/customers"
	"github.com/fleetops/fleetops/internal/dispatch"
	"github.com/fleetops/fleetops/internal/identity"
	"github.com/fleetops/fleetops/internal/journeys"
	"github.com/fleetops/fleetops/internal/locations"
	"github.com/fleetops/fleetops/internal/observability"
	"github.com/fleetops/fleetops/internal/platform/cache"
	"github.com/fleetops/fleetops/internal/platform/db"
	"github.com/fleetops/fleetops/internal/shared"
	"github.com/fleetops/fleetops/internal/tenants"
	"github.com/fleetops/fleetops/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokens := identity.NewTokenManager(redisClient, cfg.TokenTTL)
	identityRepo := identity.NewRepository(pool)
	resolver := identity.NewResolver(identityRepo)
	identityHandler := identity.NewHandler(logger, resolver, tokens)

	gate := authz.NewGate()
	dispatcher := dispatch.NewDispatcher(resolver, gate, logger)

	auditRecorder := shared.NewAuditRecorder(pool, logger)

	journeysRepo := journeys.NewRepository(pool)
	customersRepo := customers.NewRepository(pool)

	locationsRepo := locations.NewRepository(pool)
	locationsService := locations.NewService(locationsRepo, journeysRepo, customersRepo, auditRecorder, logger)
	locationsHandler := locations.NewHandler(logger, dispatcher, locationsService)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	journeysHandler := journeys.NewHandler(logger, dispatcher, journeysRepo, jobsClient)

	customersHandler := customers.NewHandler(logger, dispatcher, customersRepo)
	accountsHandler := accounts.NewHandler(logger, dispatcher, identityRepo)

	tenantsRepo := tenants.NewRepository(pool)
	tenantsHandler := tenants.NewHandler(logger, dispatcher, tenantsRepo)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()
	metrics.Registerer().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Tokens:           tokens,
		IdentityHandler:  identityHandler,
		LocationsHandler: locationsHandler,
		JourneysHandler:  journeysHandler,
		CustomersHandler: customersHandler,
		AccountsHandler:  accountsHandler,
		TenantsHandler:   tenantsHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
