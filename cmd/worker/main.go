// cmd/worker/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger/internal/adapters/db"
	redis_a "github.com/ammerola/stockledger/internal/adapters/redis_adapter"
	"github.com/ammerola/stockledger/internal/adapters/storage"
	"github.com/ammerola/stockledger/internal/core/services"
	"github.com/ammerola/stockledger/internal/pkg/config"
	"github.com/ammerola/stockledger/internal/pkg/logger"
	"github.com/ammerola/stockledger/internal/workers"
)

func main() {
	log := logger.SetupLogger("info", "json")

	cfg, err := config.Load(log.Logger)
	if err != nil {
		log.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	log = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger := log.Logger
	slogger.Info("starting worker",
		slog.String("environment", cfg.App.Environment),
		slog.String("redis_addr", cfg.Asynq.RedisAddr))

	ctx := context.Background()
	dbConfig := db.ConfigFrom(cfg.Database)
	dbConfig.MaxConnections = min(dbConfig.MaxConnections, 10)
	dbConfig.MinConnections = min(dbConfig.MinConnections, 2)
	database, err := db.NewDatabase(ctx, dbConfig, slogger)
	if err != nil {
		slogger.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	redisClient, err := redis_a.NewClient(ctx, cfg.Redis)
	if err != nil {
		slogger.Error("failed to connect to redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()
	cache := redis_a.NewCache(redisClient, cfg.Redis.TTL, slogger)

	objects, err := storage.New(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	redisOpt := workers.RedisOpt(cfg.Asynq)

	// Receipt imports publish low stock checks of their own
	client := asynq.NewClient(redisOpt)
	defer client.Close()
	publisher := workers.NewPublisher(client, cfg.Asynq.RetryMax, slogger)

	ledgerService := services.NewLedgerService(
		db.NewProductRepository(database, slogger),
		db.NewTransactionRepository(database, slogger),
		publisher, cfg.Ledger.RecentLimit, slogger)
	stockService := services.NewStockService(db.NewStockRepository(database, slogger), slogger)
	reportService := services.NewReportService(
		db.NewReportRepository(database, slogger),
		db.NewSaleRepository(database, slogger),
		cache, cfg.Ledger.ReportCacheTTL, slogger)

	mux := workers.NewServeMux(workers.Processors{
		LowStock: workers.NewLowStockProcessor(stockService, cache, cfg.Ledger.LowStockAlertWindow, slogger),
		Receipt:  workers.NewReceiptProcessor(ledgerService, objects, cfg.Ledger.ImportTimeout, slogger),
		Export:   workers.NewExportProcessor(reportService, objects, slogger),
		Cleanup:  workers.NewCleanupProcessor(objects, cfg.Storage.UploadRetention, slogger),
	}, slogger)

	srv := workers.NewServer(cfg.Asynq, slogger)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: workers.NewAsynqLogger(slogger),
	})
	if cfg.Asynq.CleanupSchedule != "" {
		entryID, err := scheduler.Register(cfg.Asynq.CleanupSchedule, workers.NewCleanupTask())
		if err != nil {
			slogger.Error("failed to register cleanup schedule",
				slog.String("schedule", cfg.Asynq.CleanupSchedule),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		slogger.Info("upload cleanup scheduled",
			slog.String("schedule", cfg.Asynq.CleanupSchedule),
			slog.String("entry_id", entryID))
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	if err := scheduler.Start(); err != nil {
		slogger.Error("failed to start scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}

	go func() {
		if err := srv.Run(mux); err != nil {
			slogger.Error("failed to run worker server", slog.String("error", err.Error()))
			shutdown <- syscall.SIGTERM
		}
	}()

	slogger.Info("worker started successfully",
		slog.Int("concurrency", cfg.Asynq.Concurrency),
		slog.Any("queues", cfg.Asynq.Queues))

	sig := <-shutdown
	slogger.Info("shutdown signal received", slog.String("signal", sig.String()))

	scheduler.Shutdown()
	srv.Shutdown()
	slogger.Info("worker shutdown complete")
}
