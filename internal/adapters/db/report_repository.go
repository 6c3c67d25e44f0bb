// internal/adapters/db/report_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// reportRepository implements ports.ReportRepository. All figures come from
// sale_items snapshots, never from current catalog prices.
type reportRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *Database, logger *slog.Logger) ports.ReportRepository {
	return &reportRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "report")),
	}
}

func inRange(column string, r domain.DateRange) squirrel.And {
	return squirrel.And{
		squirrel.Expr(column+" >= ?", r.Start()),
		squirrel.Expr(column+" < ?", r.End()),
	}
}

// Summary returns revenue, sale count and items sold over the range
func (r *reportRepository) Summary(ctx context.Context, dr domain.DateRange) (*domain.SalesSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(s.total_amount), 0),
			COUNT(*),
			COALESCE((
				SELECT SUM(si.quantity)
				FROM sale_items si
				JOIN sales ss ON ss.id = si.sale_id
				WHERE ss.created_at >= $1 AND ss.created_at < $2
			), 0)::BIGINT
		FROM sales s
		WHERE s.created_at >= $1 AND s.created_at < $2`
	args := []interface{}{dr.Start(), dr.End()}

	var (
		revenue   decimal.Decimal
		count     int64
		itemsSold int64
	)
	if err := r.db.QueryRow(ctx, query, args...).Scan(&revenue, &count, &itemsSold); err != nil {
		return nil, fmt.Errorf("failed to query sales summary: %w", err)
	}

	return domain.NewSalesSummary(dr, revenue, count, itemsSold), nil
}

// TopProducts ranks products by quantity sold, then revenue
func (r *reportRepository) TopProducts(ctx context.Context, dr domain.DateRange, limit int) ([]domain.TopProduct, error) {
	qb := squirrel.Select(
		"si.product_id",
		"MAX(si.product_name)",
		"SUM(si.quantity)::BIGINT AS quantity_sold",
		"SUM(si.subtotal) AS revenue",
	).
		From("sale_items si").
		Join("sales s ON s.id = si.sale_id").
		Where(inRange("s.created_at", dr)).
		GroupBy("si.product_id").
		OrderBy("quantity_sold DESC", "revenue DESC", "si.product_id").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build top products query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}

	top, err := ScanMany(rows, func(row pgx.Rows) (*domain.TopProduct, error) {
		p := &domain.TopProduct{}
		return p, row.Scan(&p.ProductID, &p.ProductName, &p.QuantitySold, &p.Revenue)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan top products: %w", err)
	}
	return top, nil
}

// DailyMovement sums stock in, stock out and signed adjustments per
// calendar day in the range's time zone. Days without movement are omitted.
func (r *reportRepository) DailyMovement(ctx context.Context, dr domain.DateRange) ([]domain.DailyMovement, error) {
	zone := "UTC"
	if dr.Location != nil {
		zone = dr.Location.String()
	}

	qb := squirrel.Select().
		Column(squirrel.Expr("to_char(t.created_at AT TIME ZONE ?, 'YYYY-MM-DD') AS day", zone)).
		Columns(
			"COALESCE(SUM(t.quantity) FILTER (WHERE t.transaction_type = 'in'), 0)::BIGINT",
			"COALESCE(SUM(t.quantity) FILTER (WHERE t.transaction_type = 'out'), 0)::BIGINT",
			`COALESCE(SUM(CASE WHEN t.direction = 'decrease' THEN -t.quantity ELSE t.quantity END)
				FILTER (WHERE t.transaction_type = 'adjustment'), 0)::BIGINT`,
		).
		From("inventory_transactions t").
		Where(inRange("t.created_at", dr)).
		GroupBy("day").
		OrderBy("day").
		PlaceholderFormat(squirrel.Dollar)

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build movement query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movement: %w", err)
	}

	days, err := ScanMany(rows, func(row pgx.Rows) (*domain.DailyMovement, error) {
		d := &domain.DailyMovement{}
		return d, row.Scan(&d.Day, &d.QuantityIn, &d.QuantityOut, &d.NetAdjustments)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan stock movement: %w", err)
	}
	return days, nil
}

// SalesForExport flattens every sale line in the range, oldest first
func (r *reportRepository) SalesForExport(ctx context.Context, dr domain.DateRange) ([]domain.SaleExportRow, error) {
	qb := squirrel.Select(
		"s.id", "s.created_at", "COALESCE(u.display_name, s.cashier_id::TEXT)", "s.payment_method",
		"si.product_name", "si.unit_of_measure", "si.unit_price", "si.quantity", "si.subtotal",
	).
		From("sales s").
		Join("sale_items si ON si.sale_id = s.id").
		LeftJoin("users u ON u.id = s.cashier_id").
		Where(inRange("s.created_at", dr)).
		OrderBy("s.created_at", "s.id", "si.line_number").
		PlaceholderFormat(squirrel.Dollar)

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build export query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales for export: %w", err)
	}

	export, err := ScanMany(rows, func(row pgx.Rows) (*domain.SaleExportRow, error) {
		e := &domain.SaleExportRow{}
		var method string
		err := row.Scan(
			&e.SaleID, &e.CreatedAt, &e.CashierName, &method,
			&e.ProductName, &e.UnitOfMeasure, &e.UnitPrice, &e.Quantity, &e.Subtotal,
		)
		e.PaymentMethod = domain.PaymentMethod(method)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan sales for export: %w", err)
	}
	return export, nil
}
