// internal/workers/stock_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// alertKeyPrefix namespaces alert claims in the shared cache
const alertKeyPrefix = "alert:low_stock"

// LowStockProcessor raises alerts for products at or below their reorder level
type LowStockProcessor struct {
	stock  ports.StockService
	cache  ports.CacheRepository
	window time.Duration
	logger *slog.Logger
}

// NewLowStockProcessor creates a new low stock processor. Alerts for the same
// product and status are raised at most once per window.
func NewLowStockProcessor(stock ports.StockService, cache ports.CacheRepository, window time.Duration, logger *slog.Logger) *LowStockProcessor {
	return &LowStockProcessor{
		stock:  stock,
		cache:  cache,
		window: window,
		logger: logger.With(slog.String("processor", "low_stock")),
	}
}

// CheckLowStock recomputes the stock of the payload's products and alerts on
// the low ones
func (p *LowStockProcessor) CheckLowStock(ctx context.Context, t *asynq.Task) error {
	var payload LowStockCheckPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if len(payload.ProductIDs) == 0 {
		return nil
	}

	levels, err := p.stock.StockLevelsFor(ctx, payload.ProductIDs)
	if err != nil {
		return fmt.Errorf("failed to compute stock levels: %w", err)
	}

	alerted := 0
	for _, level := range levels {
		if !level.IsLowStock {
			continue
		}
		if !p.claimAlert(ctx, level) {
			continue
		}
		p.alert(ctx, level)
		alerted++
	}

	p.logger.DebugContext(ctx, "low stock check completed",
		slog.Int("products", len(levels)),
		slog.Int("alerts", alerted))

	return nil
}

// claimAlert reports whether this alert has not been raised within the window.
// Without a cache every alert is raised.
func (p *LowStockProcessor) claimAlert(ctx context.Context, level domain.StockLevel) bool {
	if p.cache == nil || p.window <= 0 {
		return true
	}

	key := alertKey(level)
	ok, err := p.cache.Claim(ctx, key, level.CurrentStock, p.window)
	if err != nil {
		p.logger.WarnContext(ctx, "alert dedup unavailable",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return true
	}
	return ok
}

// alertKey is per product and status, so a product sliding from low stock to
// oversold alerts again inside the window
func alertKey(level domain.StockLevel) string {
	return fmt.Sprintf("%s:%s:%s", alertKeyPrefix, level.ProductID, level.Status)
}

func (p *LowStockProcessor) alert(ctx context.Context, level domain.StockLevel) {
	attrs := []any{
		slog.String("product_id", level.ProductID.String()),
		slog.String("sku", level.SKU),
		slog.String("name", level.Name),
		slog.Int64("current_stock", level.CurrentStock),
		slog.Int("reorder_level", level.ReorderLevel),
		slog.String("status", string(level.Status)),
	}

	if level.IsUrgent() {
		p.logger.ErrorContext(ctx, "stock alert: product needs restocking now", attrs...)
		return
	}
	p.logger.WarnContext(ctx, "stock alert: product at or below reorder level", attrs...)
}
