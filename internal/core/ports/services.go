// internal/core/ports/services.go
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/core/domain"
)

// LedgerService records stock movements
type LedgerService interface {
	Append(ctx context.Context, txn *domain.InventoryTransaction) error
	AppendReceipt(ctx context.Context, actorID uuid.UUID, reference string, lines []domain.ReceiptLine) ([]*domain.InventoryTransaction, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.InventoryTransaction, error)
	ListRecent(ctx context.Context, limit int) ([]domain.TransactionView, error)
}

// StockService answers stock questions from the ledger
type StockService interface {
	CurrentStock(ctx context.Context, productID uuid.UUID) (int64, error)
	StockLevel(ctx context.Context, productID uuid.UUID) (*domain.StockLevel, error)
	AllStockLevels(ctx context.Context) ([]domain.StockLevel, error)
	LowStockProducts(ctx context.Context) ([]domain.StockLevel, error)
	StockLevelsFor(ctx context.Context, productIDs []uuid.UUID) ([]domain.StockLevel, error)
}

// SaleService commits and reads sales
type SaleService interface {
	CommitSale(ctx context.Context, req *domain.CommitSaleRequest) (*domain.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
}

// ReportService aggregates sales history
type ReportService interface {
	Summary(ctx context.Context, r domain.DateRange) (*domain.SalesSummary, error)
	TopProducts(ctx context.Context, r domain.DateRange, limit int) ([]domain.TopProduct, error)
	ListSales(ctx context.Context, params SaleListParams) (*SaleListResult, error)
	SaleItems(ctx context.Context, saleID uuid.UUID) ([]domain.SaleItem, error)
	StockMovement(ctx context.Context, r domain.DateRange) ([]domain.DailyMovement, error)
	ExportSales(ctx context.Context, r domain.DateRange) ([]domain.SaleExportRow, error)
}

// SaleListParams holds filters and pagination for listing sales
type SaleListParams struct {
	Range         domain.DateRange
	CashierID     *uuid.UUID
	PaymentMethod domain.PaymentMethod
	Page          int
	PageSize      int
}

// Offset is the row offset for the requested page
func (p SaleListParams) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// SaleListResult holds one page of sale headers
type SaleListResult struct {
	Sales      []domain.Sale `json:"sales"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalCount int64         `json:"total_count"`
	TotalPages int           `json:"total_pages"`
}
