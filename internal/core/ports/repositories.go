// internal/core/ports/repositories.go
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/core/domain"
)

// ProductRepository reads the catalog. Lookups return nil, nil when the
// product does not exist.
type ProductRepository interface {
	Save(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindBySKUs(ctx context.Context, skus []string) (map[string]*domain.Product, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// TransactionRepository is the append-only transaction store. There is no
// update or delete.
type TransactionRepository interface {
	Append(ctx context.Context, txn *domain.InventoryTransaction) error
	AppendBatch(ctx context.Context, txns []*domain.InventoryTransaction) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.InventoryTransaction, error)
	ListRecent(ctx context.Context, limit int) ([]domain.TransactionView, error)
}

// StockRepository derives stock from the transaction store on every call.
// StockLevel returns nil, nil for an unknown product.
type StockRepository interface {
	StockLevel(ctx context.Context, productID uuid.UUID) (*domain.StockLevel, error)
	StockLevels(ctx context.Context) ([]domain.StockLevel, error)
	LowStock(ctx context.Context) ([]domain.StockLevel, error)
	StockLevelsFor(ctx context.Context, productIDs []uuid.UUID) ([]domain.StockLevel, error)
}

// SaleRepository persists sales. Commit writes the header, items and stock
// deductions in one database transaction.
type SaleRepository interface {
	Commit(ctx context.Context, sale *domain.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Sale, error)
	FindItems(ctx context.Context, saleID uuid.UUID) ([]domain.SaleItem, error)
	List(ctx context.Context, params SaleListParams) ([]domain.Sale, int64, error)
}

// ReportRepository runs the read-only aggregations over sales and transactions
type ReportRepository interface {
	Summary(ctx context.Context, r domain.DateRange) (*domain.SalesSummary, error)
	TopProducts(ctx context.Context, r domain.DateRange, limit int) ([]domain.TopProduct, error)
	DailyMovement(ctx context.Context, r domain.DateRange) ([]domain.DailyMovement, error)
	SalesForExport(ctx context.Context, r domain.DateRange) ([]domain.SaleExportRow, error)
}
