package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/yont-erp/yont-erp/internal/app"
	"github.com/yont-erp/yont-erp/internal/authz"
	"github.com/yont-erp/yont-erp/internal/geo"
	jobmetrics "github.com/yont-erp/yont-erp/internal/jobs"
	"github.com/yont-erp/yont-erp/internal/platform/cache"
	"github.com/yont-erp/yont-erp/internal/platform/db"
	"github.com/yont-erp/yont-erp/internal/profiles"
	"github.com/yont-erp/yont-erp/jobs"
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
		logger.Error("connect database", slog.Any("error", err))
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

	geoRepo := geo.NewRepository(pool)
	geoService := geo.NewService(geoRepo, logger)
	hierarchy, err := geoService.LoadSnapshot(ctx)
	if err != nil {
		logger.Error("load geographic hierarchy", slog.Any("error", err))
		os.Exit(1)
	}
	engine := authz.NewEngine(hierarchy)

	profileRepo := profiles.NewRepository(pool)
	profileService := profiles.NewService(profileRepo)
	registry := profiles.NewRegistry(profileService, engine, redisClient, logger)

	metrics := jobmetrics.NewMetrics(nil)

	geoRefreshTask, err := jobs.NewGeoRefreshTask(jobs.GeoRefreshPayload{Reason: "scheduled"})
	if err != nil {
		logger.Error("build geo refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGeoRefresh, Handler: jobs.NewGeoRefreshHandler(geoService, engine, logger, metrics)},
			{Type: jobs.TaskProfilesSweep, Handler: jobs.NewProfilesSweepHandler(profileRepo, registry, logger, metrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.GeoRefreshCron, Task: geoRefreshTask},
			{Spec: cfg.ProfileSweepCron, Task: jobs.NewProfilesSweepTask()},
		},
	})
	if err != nil {
		logger.Error("configure worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
