// Package main runs the out-of-band worker: tenant schema provisioning
// jobs from the Redis queue, and optionally a coordinated migration run at
// startup.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atelier-lms/backend/config"
	"github.com/atelier-lms/backend/internal/provision"
	"github.com/atelier-lms/backend/internal/tenancy"
	"github.com/atelier-lms/backend/internal/worker"
	"github.com/atelier-lms/backend/pkg/cache"
	"github.com/atelier-lms/backend/pkg/database"
	"github.com/atelier-lms/backend/pkg/metrics"
	"github.com/atelier-lms/backend/pkg/queue"
	"github.com/atelier-lms/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	source, err := provision.LoadSource()
	if err != nil {
		logger.Fatal("load migrations", zap.Error(err))
	}

	promMetrics := metrics.New(prometheus.DefaultRegisterer)
	tenantCache := cache.NewRedisCache(rdb.Client)
	registry := tenancy.NewRegistry(pool, tenantCache, cfg.Tenancy.CacheTTL, promMetrics, logger)
	manager := provision.NewSchemaManager(pool, promMetrics, logger)
	provisioner := provision.NewProvisioner(manager, registry, source, promMetrics, logger)

	if cfg.Provision.MigrateOnStart {
		coordinator := provision.NewCoordinator(manager, registry, source, cfg.Provision.FanOutWidth, promMetrics, logger)
		report, err := coordinator.ApplyPending(ctx)
		if err != nil {
			// Schemas that did migrate stay migrated; the report says
			// which ones are behind. Keep the worker up so provisioning
			// jobs still drain.
			logger.Error("coordinated migration run failed",
				zap.Error(err),
				zap.Any("report", report))
		} else {
			logger.Info("coordinated migration run complete",
				zap.Int("tenant_schemas", len(report.Tenants)),
				zap.Int("shared_version", report.Shared.LastVersion))
		}
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewProvisionProcessor(provisioner, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < cfg.Provision.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			processor.Run(workerCtx)
		}()
	}
	logger.Info("provisioning workers started", zap.Int("count", cfg.Provision.Workers))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("workers did not stop in time")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
