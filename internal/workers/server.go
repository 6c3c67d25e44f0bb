// internal/workers/server.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger/internal/pkg/config"
	"github.com/ammerola/stockledger/internal/pkg/logger"
)

// Processors groups the task handlers served by the worker
type Processors struct {
	LowStock *LowStockProcessor
	Receipt  *ReceiptProcessor
	Export   *ExportProcessor
	Cleanup  *CleanupProcessor
}

// RedisOpt is the broker connection shared by the publisher, the server and
// the inspector
func RedisOpt(c config.AsynqConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// NewServer configures the task server. Queue weights come from config; the
// critical queue carries low stock checks.
func NewServer(c config.AsynqConfig, log *slog.Logger) *asynq.Server {
	return asynq.NewServer(RedisOpt(c), asynq.Config{
		Concurrency:              c.Concurrency,
		Queues:                   c.Queues,
		StrictPriority:           c.StrictPriority,
		ErrorHandler:             ErrorHandler(log),
		RetryDelayFunc:           ExponentialBackoff,
		ShutdownTimeout:          c.ShutdownTimeout,
		HealthCheckInterval:      c.HealthCheckInterval,
		HealthCheckFunc:          brokerHealth(log),
		DelayedTaskCheckInterval: c.DelayedTaskCheckTime,
		Logger:                   NewAsynqLogger(log),
	})
}

func brokerHealth(log *slog.Logger) func(error) {
	return func(err error) {
		if err != nil {
			log.Error("worker lost the broker", slog.String("error", err.Error()))
		}
	}
}

// NewServeMux registers every non-nil processor
func NewServeMux(p Processors, log *slog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(loggingMiddleware(log))

	if p.LowStock != nil {
		mux.HandleFunc(TypeLowStockCheck, p.LowStock.CheckLowStock)
	}
	if p.Receipt != nil {
		mux.HandleFunc(TypeReceiptImport, p.Receipt.ImportReceipt)
	}
	if p.Export != nil {
		mux.HandleFunc(TypeSalesExport, p.Export.ExportSales)
	}
	if p.Cleanup != nil {
		mux.HandleFunc(TypeCleanupUploads, p.Cleanup.CleanupUploads)
	}
	return mux
}

// loggingMiddleware tags the context with the task type and id so every log
// line written while handling the task carries them
func loggingMiddleware(log *slog.Logger) asynq.MiddlewareFunc {
	log = log.With(slog.String("component", "worker"))
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			taskID, _ := asynq.GetTaskID(ctx)
			ctx = logger.WithValue(ctx, logger.ContextKeyTaskType, t.Type())
			ctx = logger.WithValue(ctx, logger.ContextKeyTaskID, taskID)

			start := time.Now()
			err := next.ProcessTask(ctx, t)
			if err != nil {
				log.WarnContext(ctx, "task failed",
					slog.String("task_type", t.Type()),
					slog.String("task_id", taskID),
					slog.Duration("duration", time.Since(start)),
					slog.String("error", err.Error()))
				return err
			}

			log.DebugContext(ctx, "task processed",
				slog.String("task_type", t.Type()),
				slog.String("task_id", taskID),
				slog.Duration("duration", time.Since(start)))
			return nil
		})
	}
}

// ErrorHandler logs tasks that exhausted processing
func ErrorHandler(log *slog.Logger) asynq.ErrorHandler {
	return asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		log.ErrorContext(ctx, "task processing failed",
			slog.String("type", task.Type()),
			slog.Int("retried", retried),
			slog.Int("max_retry", maxRetry),
			slog.String("error", err.Error()))
	})
}

// ExponentialBackoff doubles the delay per retry up to ten minutes
func ExponentialBackoff(n int, _ error, _ *asynq.Task) time.Duration {
	const (
		baseDelay = time.Second
		maxDelay  = 10 * time.Minute
	)
	if n < 0 {
		n = 0
	}
	if n > 20 {
		return maxDelay
	}
	delay := baseDelay * time.Duration(1<<uint(n))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// AsynqLogger adapts slog for asynq
type AsynqLogger struct {
	logger *slog.Logger
}

// NewAsynqLogger creates an asynq logger writing through logger
func NewAsynqLogger(logger *slog.Logger) *AsynqLogger {
	return &AsynqLogger{
		logger: logger.With(slog.String("component", "asynq")),
	}
}

func (l *AsynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *AsynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *AsynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *AsynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *AsynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
