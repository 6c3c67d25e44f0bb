// internal/core/services/ledger.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
	// MaxReceiptLines bounds a single delivery note import
	MaxReceiptLines = 1000
)

// LedgerService appends to and reads from the transaction store
type LedgerService struct {
	products    ports.ProductRepository
	txns        ports.TransactionRepository
	tasks       ports.TaskPublisher
	recentLimit int
	logger      *slog.Logger
}

var _ ports.LedgerService = (*LedgerService)(nil)

// NewLedgerService creates a new ledger service. tasks may be nil, in which
// case no low stock checks are scheduled.
func NewLedgerService(products ports.ProductRepository, txns ports.TransactionRepository,
	tasks ports.TaskPublisher, recentLimit int, logger *slog.Logger) *LedgerService {
	if recentLimit <= 0 || recentLimit > MaxRecentLimit {
		recentLimit = DefaultRecentLimit
	}
	return &LedgerService{
		products:    products,
		txns:        txns,
		tasks:       tasks,
		recentLimit: recentLimit,
		logger:      logger.With(slog.String("service", "ledger")),
	}
}

// Append records a single stock movement
func (s *LedgerService) Append(ctx context.Context, txn *domain.InventoryTransaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	txn.PrepareForStorage()

	exists, err := s.products.Exists(ctx, txn.ProductID)
	if err != nil {
		return fmt.Errorf("failed to check product existence: %w", err)
	}
	if !exists {
		return domain.NewNotFoundError("product", txn.ProductID.String())
	}

	if err := s.txns.Append(ctx, txn); err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "transaction appended",
		slog.String("transaction_id", txn.ID.String()),
		slog.String("product_id", txn.ProductID.String()),
		slog.String("type", string(txn.Type)),
		slog.Int("quantity", txn.Quantity))

	if txn.LowersStock() {
		s.scheduleLowStockCheck(ctx, []uuid.UUID{txn.ProductID})
	}

	return nil
}

// AppendReceipt records a supplier delivery as stock-in rows. Either every
// line is written or none is.
func (s *LedgerService) AppendReceipt(ctx context.Context, actorID uuid.UUID, reference string,
	lines []domain.ReceiptLine) ([]*domain.InventoryTransaction, error) {
	if actorID == uuid.Nil {
		return nil, domain.NewValidationError("actor_id", "is required")
	}
	if len(lines) == 0 {
		return nil, domain.NewValidationError("lines", "receipt has no lines")
	}
	if len(lines) > MaxReceiptLines {
		return nil, domain.NewValidationError("lines", fmt.Sprintf("receipt exceeds %d lines", MaxReceiptLines))
	}

	skus := make([]string, 0, len(lines))
	for i := range lines {
		lines[i].SKU = strings.TrimSpace(lines[i].SKU)
		if err := lines[i].Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		skus = append(skus, lines[i].SKU)
	}

	products, err := s.products.FindBySKUs(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve receipt products: %w", err)
	}

	reference = strings.TrimSpace(reference)
	txns := make([]*domain.InventoryTransaction, 0, len(lines))
	for _, line := range lines {
		product, ok := products[line.SKU]
		if !ok {
			return nil, domain.NewNotFoundError("product", line.SKU)
		}
		notes := line.Notes
		if notes == "" && reference != "" {
			notes = "Receipt " + reference
		}
		txn := &domain.InventoryTransaction{
			ProductID: product.ID,
			Type:      domain.TransactionIn,
			Quantity:  line.Quantity,
			ActorID:   actorID,
			Notes:     notes,
		}
		if err := txn.Validate(); err != nil {
			return nil, err
		}
		txn.PrepareForStorage()
		txns = append(txns, txn)
	}

	if err := s.txns.AppendBatch(ctx, txns); err != nil {
		return nil, fmt.Errorf("failed to append receipt: %w", err)
	}

	s.logger.InfoContext(ctx, "receipt appended",
		slog.String("reference", reference),
		slog.String("actor_id", actorID.String()),
		slog.Int("lines", len(txns)))

	return txns, nil
}

// ListByProduct returns a product's history, newest first
func (s *LedgerService) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.InventoryTransaction, error) {
	exists, err := s.products.Exists(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to check product existence: %w", err)
	}
	if !exists {
		return nil, domain.NewNotFoundError("product", productID.String())
	}

	txns, err := s.txns.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product transactions: %w", err)
	}
	return txns, nil
}

// ListRecent returns the latest transactions across products
func (s *LedgerService) ListRecent(ctx context.Context, limit int) ([]domain.TransactionView, error) {
	if limit <= 0 {
		limit = s.recentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	views, err := s.txns.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent transactions: %w", err)
	}
	return views, nil
}

func (s *LedgerService) scheduleLowStockCheck(ctx context.Context, productIDs []uuid.UUID) {
	if s.tasks == nil {
		return
	}
	if err := s.tasks.EnqueueLowStockCheck(ctx, productIDs); err != nil {
		s.logger.WarnContext(ctx, "failed to enqueue low stock check",
			slog.Int("products", len(productIDs)),
			slog.String("error", err.Error()))
	}
}
