// internal/core/services/sale.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// SaleService commits sales atomically and reads them back
type SaleService struct {
	sales       ports.SaleRepository
	idempotency ports.IdempotencyStore
	tasks       ports.TaskPublisher
	logger      *slog.Logger
}

var _ ports.SaleService = (*SaleService)(nil)

// NewSaleService creates a new sale service. idempotency and tasks are
// optional.
func NewSaleService(sales ports.SaleRepository, idempotency ports.IdempotencyStore,
	tasks ports.TaskPublisher, logger *slog.Logger) *SaleService {
	return &SaleService{
		sales:       sales,
		idempotency: idempotency,
		tasks:       tasks,
		logger:      logger.With(slog.String("service", "sale")),
	}
}

// CommitSale validates the request, then writes the header, items and stock
// deductions as one unit. Stock sufficiency is not checked; overselling shows
// up as negative stock.
func (s *SaleService) CommitSale(ctx context.Context, req *domain.CommitSaleRequest) (*domain.Sale, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := req.IdempotencyKey
	reserved := false
	if key != "" && s.idempotency != nil {
		ok, err := s.idempotency.Reserve(ctx, key)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "idempotency store unavailable, continuing without reservation",
				slog.String("error", err.Error()))
		case !ok:
			return s.replay(ctx, key)
		default:
			reserved = true
		}
	}

	sale := domain.NewSale(req)
	if err := s.sales.Commit(ctx, sale); err != nil {
		if errors.Is(err, domain.ErrDuplicateRequest) && key != "" {
			existing, findErr := s.sales.FindByIdempotencyKey(ctx, key)
			if findErr == nil && existing != nil {
				s.logger.InfoContext(ctx, "replaying committed sale",
					slog.String("sale_id", existing.ID.String()))
				return existing, nil
			}
		}

		if reserved {
			s.release(ctx, key)
		}
		s.logger.ErrorContext(ctx, "sale commit rolled back",
			slog.String("cashier_id", req.CashierID.String()),
			slog.Int("items", len(req.Items)),
			slog.String("error", err.Error()))
		return nil, &domain.CommitError{Err: err}
	}

	if reserved {
		if err := s.idempotency.Complete(ctx, key, sale.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to record idempotency key",
				slog.String("sale_id", sale.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	s.logger.InfoContext(ctx, "sale committed",
		slog.String("sale_id", sale.ID.String()),
		slog.String("cashier_id", sale.CashierID.String()),
		slog.String("total", sale.TotalAmount.StringFixed(2)),
		slog.String("payment_method", string(sale.PaymentMethod)),
		slog.Int("items", len(sale.Items)))

	if s.tasks != nil {
		if err := s.tasks.EnqueueLowStockCheck(ctx, sale.ProductIDs()); err != nil {
			s.logger.WarnContext(ctx, "failed to enqueue low stock check",
				slog.String("sale_id", sale.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	return sale, nil
}

// GetSale returns a sale with its items
func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	if sale == nil {
		return nil, domain.NewNotFoundError("sale", id.String())
	}
	return sale, nil
}

// replay answers a retried request. When redis holds no sale id for the key
// the database is checked, since Complete may have failed after the commit.
// Only a key with no committed sale is reported as a duplicate.
func (s *SaleService) replay(ctx context.Context, key string) (*domain.Sale, error) {
	saleID, lookupErr := s.idempotency.Lookup(ctx, key)
	if lookupErr == nil && saleID != uuid.Nil {
		sale, err := s.GetSale(ctx, saleID)
		if err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "replaying committed sale", slog.String("sale_id", sale.ID.String()))
		return sale, nil
	}

	sale, err := s.sales.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to find sale by idempotency key: %w", err)
	}
	if sale == nil {
		if lookupErr != nil {
			return nil, fmt.Errorf("failed to look up idempotency key: %w", lookupErr)
		}
		return nil, domain.ErrDuplicateRequest
	}

	if err := s.idempotency.Complete(ctx, key, sale.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to record idempotency key",
			slog.String("sale_id", sale.ID.String()),
			slog.String("error", err.Error()))
	}
	s.logger.InfoContext(ctx, "replaying committed sale",
		slog.String("sale_id", sale.ID.String()),
		slog.String("source", "database"))
	return sale, nil
}

func (s *SaleService) release(ctx context.Context, key string) {
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to release idempotency key", slog.String("error", err.Error()))
	}
}
