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

	"github.com/yont-erp/yont-erp/internal/app"
	"github.com/yont-erp/yont-erp/internal/authz"
	"github.com/yont-erp/yont-erp/internal/geo"
	"github.com/yont-erp/yont-erp/internal/observability"
	"github.com/yont-erp/yont-erp/internal/platform/cache"
	"github.com/yont-erp/yont-erp/internal/platform/db"
	"github.com/yont-erp/yont-erp/internal/profiles"
	"github.com/yont-erp/yont-erp/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	geoRepo := geo.NewRepository(dbpool)
	geoService := geo.NewService(geoRepo, logger)
	hierarchy, err := geoService.LoadSnapshot(ctx)
	if err != nil {
		logger.Error("load geographic hierarchy", slog.Any("error", err))
		os.Exit(1)
	}
	engine := authz.NewEngine(hierarchy)

	profileRepo := profiles.NewRepository(dbpool)
	profileService := profiles.NewService(profileRepo)
	registry := profiles.NewRegistry(profileService, engine, redisClient, logger)
	go func() {
		if err := registry.Listen(ctx); err != nil && ctx.Err() == nil {
			logger.Error("profile invalidation listener", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	authzMiddleware := authz.Middleware{Engine: engine, Profiles: registry, Logger: logger}
	authzHandler := authz.NewHandler(logger, engine, registry, metrics)
	geoHandler := geo.NewHandler(logger, engine, registry)
	profilesHandler := profiles.NewHandler(logger, registry)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("configure job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthzHandler:    authzHandler,
		GeoHandler:      geoHandler,
		ProfilesHandler: profilesHandler,
		JobHandler:      jobHandler,
		AuthzMiddleware: authzMiddleware,
		Metrics:         metrics,
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
