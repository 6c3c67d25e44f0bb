// internal/adapters/db/sale_repository.go
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

const saleColumns = `s.id, s.cashier_id, s.total_amount, s.cash_tendered, s.change_amount,
	s.payment_method, COALESCE(s.idempotency_key, ''), s.created_at`

// saleRepository implements ports.SaleRepository
type saleRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *Database, logger *slog.Logger) ports.SaleRepository {
	return &saleRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "sale")),
	}
}

// Commit writes the header, every item and one stock-out entry per item in a
// single database transaction. On error nothing is persisted and the sale's
// generated ids are cleared.
func (r *saleRepository) Commit(ctx context.Context, sale *domain.Sale) error {
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		var key *string
		if sale.IdempotencyKey != "" {
			key = &sale.IdempotencyKey
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO sales (
				cashier_id, total_amount, cash_tendered, change_amount, payment_method, idempotency_key
			) VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at`,
			sale.CashierID, sale.TotalAmount, sale.CashTendered, sale.ChangeAmount,
			string(sale.PaymentMethod), key,
		).Scan(&sale.ID, &sale.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert sale: %w", translateError(err, "cashier", sale.CashierID.String()))
		}

		for i := range sale.Items {
			item := &sale.Items[i]
			item.SaleID = sale.ID

			err := tx.QueryRow(ctx, `
				INSERT INTO sale_items (
					sale_id, line_number, product_id, product_name, unit_of_measure, unit_price, quantity, subtotal
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id`,
				item.SaleID, i+1, item.ProductID, item.ProductName, item.UnitOfMeasure,
				item.UnitPrice, item.Quantity, item.Subtotal,
			).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("failed to insert sale item %d: %w", i+1,
					translateError(err, "product", item.ProductID.String()))
			}

			deduction := domain.NewSaleDeduction(sale.ID, sale.CashierID, *item)
			err = tx.QueryRow(ctx, insertTransactionSQL, transactionArgs(deduction)...).
				Scan(&deduction.ID, &deduction.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to record stock deduction for item %d: %w", i+1,
					translateError(err, "product", item.ProductID.String()))
			}
		}

		return nil
	})
	if err != nil {
		sale.ID = uuid.Nil
		for i := range sale.Items {
			sale.Items[i].ID = uuid.Nil
			sale.Items[i].SaleID = uuid.Nil
		}
		return err
	}

	r.logger.DebugContext(ctx, "sale committed",
		slog.String("sale_id", sale.ID.String()),
		slog.Int("items", len(sale.Items)))

	return nil
}

// FindByID returns the sale with its items, or nil when it does not exist
func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	return r.findOne(ctx, `s.id = $1`, id)
}

// FindByIdempotencyKey returns the sale committed under key, or nil
func (r *saleRepository) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Sale, error) {
	return r.findOne(ctx, `s.idempotency_key = $1`, key)
}

func (r *saleRepository) findOne(ctx context.Context, where string, arg interface{}) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales s WHERE ` + where

	sale, err := ScanOne(r.db.QueryRow(ctx, query, arg), scanSale)
	if err != nil {
		return nil, fmt.Errorf("failed to find sale: %w", err)
	}
	if sale == nil {
		return nil, nil
	}

	sale.Items, err = r.FindItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// FindItems returns the snapshot lines of a sale in insertion order
func (r *saleRepository) FindItems(ctx context.Context, saleID uuid.UUID) ([]domain.SaleItem, error) {
	query := `
		SELECT si.id, si.sale_id, si.product_id, si.product_name, si.unit_of_measure,
			si.unit_price, si.quantity, si.subtotal
		FROM sale_items si
		WHERE si.sale_id = $1
		ORDER BY si.line_number`

	rows, err := r.db.Query(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale items: %w", err)
	}

	items, err := ScanMany(rows, func(row pgx.Rows) (*domain.SaleItem, error) {
		item := &domain.SaleItem{}
		err := row.Scan(
			&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.UnitOfMeasure,
			&item.UnitPrice, &item.Quantity, &item.Subtotal,
		)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan sale items: %w", err)
	}
	return items, nil
}

// List returns one page of sale headers, newest first, and the total count
func (r *saleRepository) List(ctx context.Context, params ports.SaleListParams) ([]domain.Sale, int64, error) {
	qb := squirrel.Select().
		From("sales s").
		Where("s.created_at >= ?", params.Range.Start()).
		Where("s.created_at < ?", params.Range.End()).
		PlaceholderFormat(squirrel.Dollar)

	if params.CashierID != nil {
		qb = qb.Where("s.cashier_id = ?", *params.CashierID)
	}
	if params.PaymentMethod != "" {
		qb = qb.Where(squirrel.Eq{"s.payment_method": string(params.PaymentMethod)})
	}

	countSQL, countArgs, err := qb.Column("1").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	total, err := r.db.Count(ctx, countSQL, countArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	qb = qb.Columns(saleColumns).
		OrderBy("s.created_at DESC", "s.id DESC").
		Limit(uint64(params.PageSize)).
		Offset(uint64(params.Offset()))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build sales query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query sales: %w", err)
	}

	sales, err := ScanMany(rows, func(row pgx.Rows) (*domain.Sale, error) {
		return scanSale(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan sales: %w", err)
	}
	return sales, total, nil
}

func scanSale(row pgx.Row) (*domain.Sale, error) {
	s := &domain.Sale{}
	var method string
	err := row.Scan(
		&s.ID, &s.CashierID, &s.TotalAmount, &s.CashTendered, &s.ChangeAmount,
		&method, &s.IdempotencyKey, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.PaymentMethod = domain.PaymentMethod(method)
	return s, nil
}
