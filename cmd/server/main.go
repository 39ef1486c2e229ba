// Package main runs the multi-tenant workshop platform HTTP server with
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atelier-lms/backend/config"
	"github.com/atelier-lms/backend/internal/middleware"
	"github.com/atelier-lms/backend/internal/provision"
	"github.com/atelier-lms/backend/internal/tenancy"
	"github.com/atelier-lms/backend/internal/tenants"
	"github.com/atelier-lms/backend/internal/workshops"
	"github.com/atelier-lms/backend/pkg/cache"
	"github.com/atelier-lms/backend/pkg/database"
	"github.com/atelier-lms/backend/pkg/metrics"
	"github.com/atelier-lms/backend/pkg/queue"
	"github.com/atelier-lms/backend/pkg/redis"
	"github.com/atelier-lms/backend/pkg/response"

	"github.com/atelier-lms/backend/internal/auth"
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

	// Tenancy core: registry + resolver over the shared cache, schema
	// router over the shared pool.
	tenantCache := cache.NewRedisCache(rdb.Client)
	registry := tenancy.NewRegistry(pool, tenantCache, cfg.Tenancy.CacheTTL, promMetrics, logger)
	resolver := tenancy.NewResolver(registry, promMetrics, logger)
	schemaRouter := database.NewRouter(pool, logger)
	scoped := tenancy.NewScopedPool(schemaRouter)

	manager := provision.NewSchemaManager(pool, promMetrics, logger)
	coordinator := provision.NewCoordinator(manager, registry, source, cfg.Provision.FanOutWidth, promMetrics, logger)

	// The registry table must exist before the first request.
	if _, err := coordinator.ApplyShared(ctx); err != nil {
		logger.Fatal("shared schema migration", zap.Error(err))
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	tenantHandler := tenants.NewHandler(registry, jobQueue, logger)
	migrationsHandler := tenants.NewMigrationsHandler(coordinator, logger)
	workshopRepo := workshops.NewRepository(scoped)
	workshopHandler := workshops.NewHandler(workshopRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins, cfg.Tenancy.Header))
	router.Use(middleware.Logger(logger))

	// Health and metrics
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Tenant signup and the status poll after it: the caller has no
	// tenant-bound token yet, so neither route sits behind JWT.
	router.POST("/tenants", tenantHandler.Create)
	router.GET("/tenants/:id", tenantHandler.Get)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/tenants", middleware.RequireRole("admin"), tenantHandler.List)
		api.PATCH("/tenants/:id/status", middleware.RequireRole("admin"), tenantHandler.UpdateStatus)
		api.POST("/admin/migrations/run", middleware.RequireRole("admin"), migrationsHandler.Run)

		// Tenant-scoped data plane. RequireTenant resolves the header,
		// cross-checks the token claim, and attaches the tenant context
		// every repository call routes by.
		scoped := api.Group("")
		scoped.Use(middleware.RequireTenant(resolver, cfg.Tenancy.Header, logger))
		{
			scoped.GET("/workshops", workshopHandler.List)
			scoped.POST("/workshops", middleware.RequireRole("admin", "instructor"), workshopHandler.Create)
			scoped.GET("/workshops/:id", workshopHandler.Get)
			scoped.POST("/workshops/:id/enrollments", workshopHandler.Enroll)
			scoped.GET("/workshops/:id/enrollments", middleware.RequireRole("admin", "instructor"), workshopHandler.ListEnrollments)
			scoped.PATCH("/enrollments/:id/progress", workshopHandler.UpdateProgress)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
