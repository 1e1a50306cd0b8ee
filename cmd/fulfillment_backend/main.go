package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/ports/repositories"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/services"
	"github.com/SscSPs/food_erp_fulfillment/internal/handlers"
	"github.com/SscSPs/food_erp_fulfillment/internal/middleware"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/config"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/events"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/locking"
	"github.com/SscSPs/food_erp_fulfillment/internal/repositories/database/pgsql"
	"github.com/SscSPs/food_erp_fulfillment/internal/repositories/memory"
	"github.com/SscSPs/food_erp_fulfillment/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// @title Food ERP Fulfillment API
// @version 1.0
// @description Purchase and sales order fulfillment with a stock ledger.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeStorage, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.String("driver", cfg.StorageDriver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStorage()

	opts := []services.ServiceOption{services.WithParallelism(cfg.ReconcileParallelism)}

	if cfg.RedisAddress != "" {
		rdb, err := database.NewRedisClient(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("Failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer rdb.Close()
		opts = append(opts, services.WithLocker(locking.NewRedisLocker(rdb, cfg.LockTTL)))
		logger.Info("Order locks shared through Redis", slog.String("address", cfg.RedisAddress))
	}

	if cfg.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("Failed to connect to message broker", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			if cerr := publisher.Close(); cerr != nil {
				logger.Error("Error closing event publisher", slog.String("error", cerr.Error()))
			}
		}()
		opts = append(opts, services.WithPublisher(publisher))
		logger.Info("Publishing stock events", slog.String("exchange", cfg.AMQPExchange))
	}

	serviceContainer := services.NewServiceContainer(repos, opts...)

	if cfg.ReconcileInterval > 0 {
		go services.RunReconciliation(ctx, serviceContainer.Reconciliation, cfg.ReconcileInterval, cfg.ReconcileRepair, logger)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Request-ID", "X-User-ID")
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}

	// Global middleware (cors, logging, metrics, recovery)
	r.Use(cors.New(corsConfig), middleware.StructuredLoggingMiddleware(logger), middleware.MetricsMiddleware(), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := handlers.RegisterRoutes(r, cfg, serviceContainer); err != nil {
		logger.Error("Failed to register routes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}
}

// setupStorage builds the repositories for the configured driver and returns
// a function releasing what it opened.
func setupStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.RepositoryProvider, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		var opts []memory.Option
		if cfg.MasterDataFile != "" {
			items, warehouses, err := memory.LoadMasterData(cfg.MasterDataFile)
			if err != nil {
				return repositories.RepositoryProvider{}, nil, err
			}
			opts = append(opts, memory.WithItems(items...), memory.WithWarehouses(warehouses...))
			logger.Info("Master data loaded", slog.Int("items", len(items)), slog.Int("warehouses", len(warehouses)))
		} else {
			logger.Warn("MASTER_DATA_FILE not set; the memory store starts without items or warehouses")
		}
		return memory.NewRepositoryProvider(memory.NewStore(opts...)), func() {}, nil
	}

	// Initialize database connection pool (for application use)
	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.EnableDBCheck)
	if err != nil {
		return repositories.RepositoryProvider{}, nil, err
	}
	logger.Info("Database connection pool established.")

	logger.Info("Running database migrations...")
	applied, err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath)
	if err != nil {
		database.ClosePgxPool(dbPool, logger)
		return repositories.RepositoryProvider{}, nil, err
	}
	if applied {
		logger.Info("Database migrations applied successfully.")
	} else {
		logger.Info("No new migrations to apply.")
	}

	return pgsql.NewRepositoryProvider(dbPool), func() { database.ClosePgxPool(dbPool, logger) }, nil
}
