package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/bulkupload"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/handler"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/imagestore"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/inventory"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/lock"
	mid "github.com/baawa1/baawa-accessories-inventory-sub000/internal/middleware"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/reconciliation"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/store"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/store/memstore"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/config"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/database"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/jwtutil"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/logger"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/metrics"
	"github.com/baawa1/baawa-accessories-inventory-sub000/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const serviceName = "inventory-service"

func main() {
	// Load configuration
	cfg, err := config.Load(serviceName)
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: serviceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting "+serviceName, cfg.LogConfig()...)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Initialize Prometheus metrics
	reg := promclient.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prometheus.InitMetrics(cfg.Metrics.Prefix, reg)
	httpMetrics := metrics.NewHTTPMetrics(serviceName, cfg.Metrics.Prefix, reg)
	log.Info("Prometheus metrics initialized", zap.String("metrics_prefix", cfg.Metrics.Prefix))

	// Initialize the record store
	var repo store.Repository
	switch cfg.DB.Driver {
	case config.StoreDriverMemory:
		log.Warn("Using in-memory store, data is lost on restart")
		repo = memstore.New()
	default:
		db, err := database.InitDB(&cfg.DB, log)
		if err != nil {
			log.Fatal("Failed to initialize database", zap.Error(err))
		}
		defer database.Close(db)
		if cfg.DB.AutoMigrate {
			if err := database.MigrateModels(db, model.AllModels()...); err != nil {
				log.Fatal("Failed to migrate database", zap.Error(err))
			}
			log.Info("Database migrations completed")
		}
		repo = store.New(db)
	}

	// Locks guard reconciliation decisions and product quantity writes
	var locker lock.Locker
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(sigCtx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.String("address", cfg.Redis.Address), zap.Error(err))
		}
		locker = lock.NewRedis(rdb, cfg.Redis.LockTTL)
		log.Info("Using redis locks", zap.String("address", cfg.Redis.Address))
	} else {
		locker = lock.NewLocal()
		log.Info("Using in-process locks")
	}

	// Product images are optional
	var storage handler.ImageStorage
	if cfg.Storage.Enabled() {
		images, err := imagestore.New(sigCtx, &cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize image storage", zap.Error(err))
		}
		storage = images
		log.Info("Image storage initialized", zap.String("bucket", cfg.Storage.Bucket))
	}

	inv := inventory.NewService(repo, locker)
	reconciliations := reconciliation.NewService(repo, locker)
	processor := bulkupload.NewProcessor(repo, cfg.BulkUpload.RowTimeout)

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()

	// Middleware, order matters
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(mid.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(httpMetrics.Middleware())

	e.GET("/health", handler.HealthCheck(serviceName))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(reg)))

	api := e.Group("/api")
	if cfg.JWT.Enabled {
		api.Use(mid.JWTAuthMiddleware(jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
			SigningKey:      cfg.JWT.SigningKey,
			ExpirationHours: cfg.JWT.ExpirationHours,
		})))
	} else {
		log.Warn("Authentication is disabled")
	}

	products := api.Group("/products")
	handler.NewProductHandler(repo, inv).Register(products)
	handler.NewBulkUploadHandler(processor, cfg.BulkUpload.MaxBytes).Register(products)
	handler.NewImageHandler(repo, storage).Register(products)
	handler.NewReferenceHandler(repo).Register(api)
	handler.NewReconciliationHandler(reconciliations).Register(api.Group("/stock-reconciliations"))
	handler.NewStockAdjustmentHandler(inv).Register(api.Group("/stock-adjustments"))

	// Start server
	serverErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		serverErrCh <- e.Start(":" + cfg.Server.Port)
	}()

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server stopped unexpectedly", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}
