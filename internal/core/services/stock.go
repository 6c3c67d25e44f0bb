// internal/core/services/stock.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// StockService computes stock from the ledger. Nothing here is cached.
type StockService struct {
	repo   ports.StockRepository
	logger *slog.Logger
}

var _ ports.StockService = (*StockService)(nil)

// NewStockService creates a new stock service
func NewStockService(repo ports.StockRepository, logger *slog.Logger) *StockService {
	return &StockService{
		repo:   repo,
		logger: logger.With(slog.String("service", "stock")),
	}
}

// CurrentStock returns the signed stock of a product, zero with no history
func (s *StockService) CurrentStock(ctx context.Context, productID uuid.UUID) (int64, error) {
	level, err := s.StockLevel(ctx, productID)
	if err != nil {
		return 0, err
	}
	return level.CurrentStock, nil
}

// StockLevel returns the classified stock of a product
func (s *StockService) StockLevel(ctx context.Context, productID uuid.UUID) (*domain.StockLevel, error) {
	level, err := s.repo.StockLevel(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stock level: %w", err)
	}
	if level == nil {
		return nil, domain.NewNotFoundError("product", productID.String())
	}
	return level, nil
}

// AllStockLevels returns every product's stock in one pass
func (s *StockService) AllStockLevels(ctx context.Context) ([]domain.StockLevel, error) {
	levels, err := s.repo.StockLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stock levels: %w", err)
	}
	return levels, nil
}

// LowStockProducts returns products at or below reorder level, most urgent first
func (s *StockService) LowStockProducts(ctx context.Context) ([]domain.StockLevel, error) {
	levels, err := s.repo.LowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute low stock: %w", err)
	}

	oversold := 0
	for _, l := range levels {
		if l.Status == domain.StatusOversold {
			oversold++
		}
	}
	if oversold > 0 {
		s.logger.WarnContext(ctx, "oversold products detected", slog.Int("count", oversold))
	}

	return levels, nil
}

// StockLevelsFor returns stock for the given products. Unknown ids are skipped.
func (s *StockService) StockLevelsFor(ctx context.Context, productIDs []uuid.UUID) ([]domain.StockLevel, error) {
	if len(productIDs) == 0 {
		return []domain.StockLevel{}, nil
	}
	levels, err := s.repo.StockLevelsFor(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stock levels: %w", err)
	}
	return levels, nil
}
