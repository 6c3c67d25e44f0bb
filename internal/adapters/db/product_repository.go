// internal/adapters/db/product_repository.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

const productColumns = `id, sku, name, unit_price, unit_of_measure, reorder_level, created_at, updated_at`

// productRepository implements ports.ProductRepository
type productRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *Database, logger *slog.Logger) ports.ProductRepository {
	return &productRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "product")),
	}
}

// Save inserts a catalog product
func (r *productRepository) Save(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		product.ID, product.SKU, product.Name, product.UnitPrice,
		product.UnitOfMeasure, product.ReorderLevel, product.CreatedAt, product.UpdatedAt,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	r.logger.DebugContext(ctx, "product saved",
		slog.String("product_id", product.ID.String()),
		slog.String("sku", product.SKU))

	return nil
}

// Update changes catalog fields. Past sales keep their snapshots.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products SET
			sku = $2, name = $3, unit_price = $4, unit_of_measure = $5,
			reorder_level = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		product.ID, product.SKU, product.Name, product.UnitPrice,
		product.UnitOfMeasure, product.ReorderLevel,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFoundError("product", product.ID.String())
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// FindByID returns the product or nil when it does not exist
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := ScanOne(r.db.QueryRow(ctx, query, id), scanProduct)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return product, nil
}

// FindBySKUs resolves SKUs in one round trip. Unknown SKUs are absent from the map.
func (r *productRepository) FindBySKUs(ctx context.Context, skus []string) (map[string]*domain.Product, error) {
	result := make(map[string]*domain.Product, len(skus))
	if len(skus) == 0 {
		return result, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE sku = ANY($1)`

	rows, err := r.db.Query(ctx, query, skus)
	if err != nil {
		return nil, fmt.Errorf("failed to query products by sku: %w", err)
	}

	products, err := ScanMany(rows, func(row pgx.Rows) (*domain.Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}

	for i := range products {
		result[products[i].SKU] = &products[i]
	}
	return result, nil
}

// Exists checks if a product exists
func (r *productRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	exists, err := r.db.Exists(ctx, `SELECT 1 FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}
	return exists, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.UnitPrice,
		&p.UnitOfMeasure, &p.ReorderLevel, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
