package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/fleetops/fleetops/internal/app"
	"github.com/fleetops/fleetops/internal/journeys"
	"github.com/fleetops/fleetops/internal/observability"
	"github.com/fleetops/fleetops/internal/optimizer"
	"github.com/fleetops/fleetops/internal/platform/db"
	"github.com/fleetops/fleetops/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	metrics := observability.NewMetrics()
	metrics.Registerer().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	journeysRepo := journeys.NewRepository(pool)
	optimizerClient := optimizer.New(optimizer.Config{
		Endpoint:   cfg.OptimizerURL,
		Username:   cfg.OptimizerUser,
		Password:   cfg.OptimizerPassword,
		HTTPClient: &http.Client{Timeout: cfg.OptimizerTimeout},
		Logger:     logger,
		Metrics:    metrics,
	})
	reoptimizer := jobs.NewRouteReoptimizer(journeysRepo, optimizerClient, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeRouteReoptimize, Handler: reoptimizer.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
