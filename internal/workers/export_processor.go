// internal/workers/export_processor.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// ExportProcessor writes sales workbooks to object storage
type ExportProcessor struct {
	reports ports.ReportService
	storage ports.ObjectStorage
	logger  *slog.Logger
	now     func() time.Time
}

// NewExportProcessor creates a new export processor
func NewExportProcessor(reports ports.ReportService, storage ports.ObjectStorage, logger *slog.Logger) *ExportProcessor {
	return &ExportProcessor{
		reports: reports,
		storage: storage,
		logger:  logger.With(slog.String("processor", "sales_export")),
		now:     time.Now,
	}
}

// ExportSales builds the workbook for the payload's range and uploads it
func (p *ExportProcessor) ExportSales(ctx context.Context, t *asynq.Task) error {
	var payload SalesExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	loc, err := time.LoadLocation(payload.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", payload.Timezone, errors.Join(err, asynq.SkipRetry))
	}
	r, err := domain.NewDateRange(payload.From, payload.To, loc, p.now())
	if err != nil {
		return fmt.Errorf("invalid export range: %w", errors.Join(err, asynq.SkipRetry))
	}

	rows, err := p.reports.ExportSales(ctx, r)
	if err != nil {
		return fmt.Errorf("failed to load sales for export: %w", err)
	}

	data, err := BuildSalesWorkbook(r, rows)
	if err != nil {
		return err
	}

	key := payload.ObjectKey()
	location, err := p.storage.Upload(ctx, key, bytes.NewReader(data), XLSXContentType)
	if err != nil {
		return fmt.Errorf("failed to upload export: %w", err)
	}

	p.logger.InfoContext(ctx, "sales export written",
		slog.String("export_id", payload.ExportID),
		slog.String("key", key),
		slog.String("location", location),
		slog.String("requested_by", payload.RequestedBy.String()),
		slog.Int("rows", len(rows)))

	return nil
}
