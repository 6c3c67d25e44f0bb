// internal/adapters/db/stock_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// stockExpr folds a product's ledger into a signed sum. It must agree with
// domain.FoldStock.
const stockExpr = `COALESCE(SUM(CASE
		WHEN t.transaction_type = 'in' THEN t.quantity
		WHEN t.transaction_type = 'out' THEN -t.quantity
		WHEN t.transaction_type = 'adjustment' AND t.direction = 'decrease' THEN -t.quantity
		WHEN t.transaction_type = 'adjustment' THEN t.quantity
		ELSE 0
	END), 0)::BIGINT`

// stockRepository implements ports.StockRepository. Every call aggregates
// inventory_transactions; nothing is stored or cached.
type stockRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db *Database, logger *slog.Logger) ports.StockRepository {
	return &stockRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "stock")),
	}
}

func stockLevelQuery() squirrel.SelectBuilder {
	return squirrel.Select(
		"p.id", "p.sku", "p.name", "p.unit_of_measure", "p.reorder_level",
		stockExpr+" AS current_stock",
	).
		From("products p").
		LeftJoin("inventory_transactions t ON t.product_id = p.id").
		GroupBy("p.id").
		PlaceholderFormat(squirrel.Dollar)
}

// StockLevel returns the classified level for one product, nil when unknown
func (r *stockRepository) StockLevel(ctx context.Context, productID uuid.UUID) (*domain.StockLevel, error) {
	levels, err := r.query(ctx, stockLevelQuery().Where("p.id = ?", productID))
	if err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return nil, nil
	}
	return &levels[0], nil
}

// StockLevels returns every product's level in one grouped pass, by SKU
func (r *stockRepository) StockLevels(ctx context.Context) ([]domain.StockLevel, error) {
	return r.query(ctx, stockLevelQuery().OrderBy("p.sku ASC"))
}

// LowStock returns products at or below their reorder level, most urgent first
func (r *stockRepository) LowStock(ctx context.Context) ([]domain.StockLevel, error) {
	qb := stockLevelQuery().
		Having(stockExpr + " <= p.reorder_level").
		OrderBy("current_stock ASC", "p.sku ASC")
	return r.query(ctx, qb)
}

// StockLevelsFor returns levels for the given products, by SKU
func (r *stockRepository) StockLevelsFor(ctx context.Context, productIDs []uuid.UUID) ([]domain.StockLevel, error) {
	if len(productIDs) == 0 {
		return []domain.StockLevel{}, nil
	}
	qb := stockLevelQuery().
		Where(squirrel.Expr("p.id = ANY(?)", productIDs)).
		OrderBy("p.sku ASC")
	return r.query(ctx, qb)
}

func (r *stockRepository) query(ctx context.Context, qb squirrel.SelectBuilder) ([]domain.StockLevel, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stock query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}

	levels, err := ScanMany(rows, scanStockLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stock levels: %w", err)
	}
	return levels, nil
}

func scanStockLevel(row pgx.Rows) (*domain.StockLevel, error) {
	var (
		id           uuid.UUID
		sku, name    string
		unit         string
		reorderLevel int
		stock        int64
	)
	if err := row.Scan(&id, &sku, &name, &unit, &reorderLevel, &stock); err != nil {
		return nil, err
	}
	level := domain.NewStockLevel(id, sku, name, unit, stock, reorderLevel)
	return &level, nil
}
