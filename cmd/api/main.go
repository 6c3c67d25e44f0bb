// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/stockledger/internal/adapters/db"
	redis_a "github.com/ammerola/stockledger/internal/adapters/redis_adapter"
	"github.com/ammerola/stockledger/internal/adapters/storage"
	"github.com/ammerola/stockledger/internal/core/ports"
	"github.com/ammerola/stockledger/internal/core/services"
	"github.com/ammerola/stockledger/internal/handlers"
	"github.com/ammerola/stockledger/internal/pkg/config"
	"github.com/ammerola/stockledger/internal/pkg/logger"
	"github.com/ammerola/stockledger/internal/workers"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

func main() {
	log := logger.SetupLogger("debug", "json")

	log.Info("starting stock ledger api",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion),
	)

	cfg, err := config.Load(log.Logger)
	if err != nil {
		log.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	log = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	log.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("log_level", cfg.App.LogLevel),
		slog.String("report_timezone", cfg.App.ReportTimezone),
	)

	ctx := context.Background()

	if cfg.Database.AutoMigrate {
		if err := runMigrations(ctx, cfg, log.Logger); err != nil {
			log.Error("failed to run migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	deps, err := initializeDependencies(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()

	server := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        handlers.NewRouter(deps.handlers, cfg, log),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server",
			slog.String("address", server.Addr),
			slog.Bool("tls", cfg.Server.TLSEnabled),
		)

		if cfg.Server.TLSEnabled {
			serverErrors <- server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		log.Info("server shutdown complete")
	}
}

// dependencies holds the long lived clients and the mounted handlers
type dependencies struct {
	database       ports.Database
	redisClient    *redis.Client
	asynqClient    *asynq.Client
	asynqInspector *asynq.Inspector
	handlers       handlers.Handlers
}

func (d *dependencies) cleanup() {
	if d.asynqInspector != nil {
		d.asynqInspector.Close()
	}
	if d.asynqClient != nil {
		d.asynqClient.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.database != nil {
		d.database.Close()
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, log *logger.Logger) (*dependencies, error) {
	slogger := log.Logger
	deps := &dependencies{}

	loc, err := cfg.ReportLocation()
	if err != nil {
		return nil, err
	}

	slogger.Info("connecting to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name),
	)
	database, err := db.NewDatabase(ctx, db.ConfigFrom(cfg.Database), slogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.database = database

	slogger.Info("connecting to Redis", slog.String("addr", cfg.GetRedisAddr()))
	redisClient, err := redis_a.NewClient(ctx, cfg.Redis)
	if err != nil {
		deps.cleanup()
		return nil, err
	}
	deps.redisClient = redisClient

	cache := redis_a.NewCache(redisClient, cfg.Redis.TTL, slogger)
	idempotency := redis_a.NewIdempotencyStore(redisClient, cfg.Ledger.IdempotencyTTL, slogger).
		WithPendingTTL(cfg.Server.WriteTimeout)

	asynqRedisOpt := workers.RedisOpt(cfg.Asynq)
	deps.asynqClient = asynq.NewClient(asynqRedisOpt)
	deps.asynqInspector = asynq.NewInspector(asynqRedisOpt)
	publisher := workers.NewPublisher(deps.asynqClient, cfg.Asynq.RetryMax, slogger)

	objects, err := storage.New(ctx, cfg, slogger)
	if err != nil {
		deps.cleanup()
		return nil, err
	}

	// Repositories
	products := db.NewProductRepository(database, slogger)
	txns := db.NewTransactionRepository(database, slogger)
	stockRepo := db.NewStockRepository(database, slogger)
	sales := db.NewSaleRepository(database, slogger)
	reports := db.NewReportRepository(database, slogger)

	// Services
	ledgerService := services.NewLedgerService(products, txns, publisher, cfg.Ledger.RecentLimit, slogger)
	stockService := services.NewStockService(stockRepo, slogger)
	saleService := services.NewSaleService(sales, idempotency, publisher, slogger)
	reportService := services.NewReportService(reports, sales, cache, cfg.Ledger.ReportCacheTTL, slogger)

	deps.handlers = handlers.Handlers{
		Ledger: handlers.NewLedgerHandler(ledgerService, slogger),
		Stock:  handlers.NewStockHandler(stockService, slogger),
		Sales:  handlers.NewSaleHandler(saleService, reportService, loc, slogger),
		Reports: handlers.NewReportHandler(reportService, handlers.ReportHandlerConfig{
			Tasks:     publisher,
			Storage:   objects,
			Inspector: deps.asynqInspector,
			Location:  loc,
			URLExpiry: cfg.Storage.ExportURLExpiry,
		}, slogger),
		Imports: handlers.NewImportHandler(objects, publisher, deps.asynqInspector,
			int64(cfg.Storage.MaxUploadSizeMB)<<20, slogger),
		Health: handlers.NewHealthHandler(database, redisClient, deps.asynqInspector, cfg, slogger),
	}

	slogger.Info("all dependencies initialized successfully")
	return deps, nil
}

func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("running database migrations")

	return db.MigrateUp(ctx, &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		SourcePath:  cfg.Database.MigrationPath,
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}, logger, 3)
}
