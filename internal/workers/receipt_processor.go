// internal/workers/receipt_processor.go
package workers

import (
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

// ReceiptProcessor imports supplier delivery notes as stock-in entries
type ReceiptProcessor struct {
	ledger  ports.LedgerService
	storage ports.ObjectStorage
	timeout time.Duration
	logger  *slog.Logger
}

// NewReceiptProcessor creates a new receipt processor
func NewReceiptProcessor(ledger ports.LedgerService, storage ports.ObjectStorage, timeout time.Duration, logger *slog.Logger) *ReceiptProcessor {
	return &ReceiptProcessor{
		ledger:  ledger,
		storage: storage,
		timeout: timeout,
		logger:  logger.With(slog.String("processor", "receipt")),
	}
}

// ImportReceipt downloads, parses and appends one delivery note. Bad files
// and unknown SKUs are not retried.
func (p *ReceiptProcessor) ImportReceipt(ctx context.Context, t *asynq.Task) error {
	start := time.Now()

	var payload ports.ReceiptImportRequest
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.logger.InfoContext(ctx, "importing receipt",
		slog.String("file_key", payload.FileKey),
		slog.String("file_type", payload.FileType),
		slog.String("reference", payload.Reference))

	data, err := p.storage.Download(ctx, payload.FileKey)
	if err != nil {
		return fmt.Errorf("failed to download receipt: %w", err)
	}

	lines, err := ParseReceipt(payload.FileType, data)
	if err != nil {
		return p.permanent(ctx, payload, err)
	}
	if len(lines) == 0 {
		return p.permanent(ctx, payload, domain.NewValidationError("file", "no receipt lines found"))
	}

	txns, err := p.ledger.AppendReceipt(ctx, payload.ActorID, payload.Reference, lines)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound) {
			return p.permanent(ctx, payload, err)
		}
		return fmt.Errorf("failed to append receipt: %w", err)
	}

	p.logger.InfoContext(ctx, "receipt imported",
		slog.String("file_key", payload.FileKey),
		slog.Int("transactions", len(txns)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

func (p *ReceiptProcessor) permanent(ctx context.Context, payload ports.ReceiptImportRequest, err error) error {
	p.logger.WarnContext(ctx, "receipt rejected",
		slog.String("file_key", payload.FileKey),
		slog.String("error", err.Error()))
	return fmt.Errorf("receipt %s rejected: %w", payload.FileKey, errors.Join(err, asynq.SkipRetry))
}
