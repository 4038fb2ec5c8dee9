package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/emarket-np/storefront/internal/cron"
	"github.com/emarket-np/storefront/internal/orders"
	"github.com/emarket-np/storefront/pkg/config"
	"github.com/emarket-np/storefront/pkg/logger"
	"github.com/emarket-np/storefront/pkg/metrics"
	"github.com/emarket-np/storefront/pkg/redis"
	"github.com/emarket-np/storefront/pkg/restclient"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweep-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sweep-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	orderRest, err := restclient.New(cfg.Services.OrderBaseURL, cfg.Services.Timeout, logg)
	if err != nil {
		logg.Error(ctx, "failed to build order rest client", err)
		os.Exit(1)
	}
	orderClient, err := orders.NewClient(orderRest)
	if err != nil {
		logg.Error(ctx, "failed to build order client", err)
		os.Exit(1)
	}
	orderService, err := orders.NewService(orders.ServiceParams{
		API:        orderClient,
		PendingTTL: cfg.Sweep.PendingTTL,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build order service", err)
		os.Exit(1)
	}

	sweepMetrics := metrics.NewSweepJobMetrics(prometheus.DefaultRegisterer)

	staleJob, err := cron.NewStaleOrdersJob(cron.StaleOrdersJobParams{
		Logger:  logg,
		Sweeper: orderService,
		Metrics: sweepMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to build stale orders job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("sweep-worker"), cfg.Sweep.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to build worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(staleJob),
		Lock:     lock,
		Metrics:  sweepMetrics,
		Interval: cfg.Sweep.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to build worker service", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg.Info(runCtx, "starting sweep worker")
	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "sweep worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "sweep worker stopped")
}
