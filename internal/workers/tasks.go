// internal/workers/tasks.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

const (
	TypeLowStockCheck  = "stock:low_check"
	TypeReceiptImport  = "receipt:import"
	TypeSalesExport    = "report:sales_export"
	TypeCleanupUploads = "cleanup:uploads"
)

// Queue names match the ASYNQ_QUEUES defaults
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// UploadPrefix is where delivery notes are stored before import
const UploadPrefix = "uploads/receipts/"

// ExportPrefix is where generated sales workbooks are stored
const ExportPrefix = "exports/sales/"

// LowStockCheckPayload lists the products whose stock may have dropped
type LowStockCheckPayload struct {
	ProductIDs []uuid.UUID `json:"product_ids"`
}

// SalesExportPayload describes one requested export
type SalesExportPayload struct {
	ExportID    string    `json:"export_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Timezone    string    `json:"timezone"`
	RequestedBy uuid.UUID `json:"requested_by"`
}

// ObjectKey is the storage key the export is written to
func (p SalesExportPayload) ObjectKey() string {
	return fmt.Sprintf("%s%s_%s_%s.xlsx", ExportPrefix, p.From, p.To, p.ExportID)
}

// Enqueuer is the subset of *asynq.Client the publisher needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher implements ports.TaskPublisher on top of asynq
type Publisher struct {
	client   Enqueuer
	retryMax int
	logger   *slog.Logger
}

var _ ports.TaskPublisher = (*Publisher)(nil)

// NewPublisher creates a new task publisher
func NewPublisher(client Enqueuer, retryMax int, logger *slog.Logger) *Publisher {
	if retryMax <= 0 {
		retryMax = 3
	}
	return &Publisher{
		client:   client,
		retryMax: retryMax,
		logger:   logger.With(slog.String("component", "task_publisher")),
	}
}

// EnqueueLowStockCheck schedules an alert check for the given products
func (p *Publisher) EnqueueLowStockCheck(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	_, err := p.enqueue(ctx, TypeLowStockCheck, LowStockCheckPayload{ProductIDs: productIDs},
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(p.retryMax),
		asynq.Timeout(30*time.Second))
	return err
}

// EnqueueReceiptImport schedules a delivery note import and returns the task id
func (p *Publisher) EnqueueReceiptImport(ctx context.Context, req ports.ReceiptImportRequest) (string, error) {
	return p.enqueue(ctx, TypeReceiptImport, req,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(p.retryMax),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(24*time.Hour))
}

// EnqueueSalesExport schedules a workbook export of r and returns the task id
func (p *Publisher) EnqueueSalesExport(ctx context.Context, r domain.DateRange, requestedBy uuid.UUID) (string, error) {
	payload := SalesExportPayload{
		ExportID:    uuid.NewString(),
		From:        r.From.Format(domain.DateLayout),
		To:          r.To.Format(domain.DateLayout),
		Timezone:    locationName(r.Location),
		RequestedBy: requestedBy,
	}

	return p.enqueue(ctx, TypeSalesExport, payload,
		asynq.Queue(QueueLow),
		asynq.TaskID(payload.ExportID),
		asynq.MaxRetry(p.retryMax),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour))
}

func (p *Publisher) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}

	info, err := p.client.EnqueueContext(ctx, asynq.NewTask(taskType, b), opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", taskType, err)
	}

	p.logger.DebugContext(ctx, "task enqueued",
		slog.String("task_type", taskType),
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue))

	return info.ID, nil
}

// NewCleanupTask is the periodic upload cleanup registered with the scheduler
func NewCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeCleanupUploads, nil, asynq.Queue(QueueLow), asynq.MaxRetry(1))
}

func locationName(loc *time.Location) string {
	if loc == nil {
		return "UTC"
	}
	return loc.String()
}
