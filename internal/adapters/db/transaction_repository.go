// internal/adapters/db/transaction_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

const (
	insertTransactionSQL = `
		INSERT INTO inventory_transactions (
			product_id, transaction_type, direction, quantity, actor_id, notes, sale_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	transactionColumns = `t.id, t.product_id, t.transaction_type, COALESCE(t.direction, ''),
		t.quantity, t.actor_id, t.notes, t.sale_id, t.created_at`
)

// transactionRepository implements ports.TransactionRepository
type transactionRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *Database, logger *slog.Logger) ports.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "transaction")),
	}
}

// Append inserts one ledger entry and fills its id and timestamp
func (r *transactionRepository) Append(ctx context.Context, txn *domain.InventoryTransaction) error {
	err := r.db.QueryRow(ctx, insertTransactionSQL, transactionArgs(txn)...).
		Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w",
			translateError(err, "product", txn.ProductID.String()))
	}

	r.logger.DebugContext(ctx, "transaction appended",
		slog.String("transaction_id", txn.ID.String()),
		slog.String("product_id", txn.ProductID.String()),
		slog.String("type", string(txn.Type)),
		slog.Int("quantity", txn.Quantity))

	return nil
}

// AppendBatch inserts all entries in one database transaction or none
func (r *transactionRepository) AppendBatch(ctx context.Context, txns []*domain.InventoryTransaction) error {
	if len(txns) == 0 {
		return nil
	}

	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, txn := range txns {
			batch.Queue(insertTransactionSQL, transactionArgs(txn)...)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for i, txn := range txns {
			if err := br.QueryRow().Scan(&txn.ID, &txn.CreatedAt); err != nil {
				return fmt.Errorf("failed to insert transaction %d: %w", i,
					translateError(err, "product", txn.ProductID.String()))
			}
		}

		return nil
	})
}

// ListByProduct returns the product's history, newest first
func (r *transactionRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.InventoryTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM inventory_transactions t
		WHERE t.product_id = $1
		ORDER BY t.created_at DESC, t.id DESC`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	txns, err := ScanMany(rows, func(row pgx.Rows) (*domain.InventoryTransaction, error) {
		txn := &domain.InventoryTransaction{}
		return txn, scanTransaction(row, txn)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan transactions: %w", err)
	}
	return txns, nil
}

// ListRecent returns the newest entries across all products with display fields
func (r *transactionRepository) ListRecent(ctx context.Context, limit int) ([]domain.TransactionView, error) {
	query := `
		SELECT ` + transactionColumns + `,
			p.sku, p.name, COALESCE(u.display_name, '')
		FROM inventory_transactions t
		JOIN products p ON p.id = t.product_id
		LEFT JOIN users u ON u.id = t.actor_id
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent transactions: %w", err)
	}

	views, err := ScanMany(rows, func(row pgx.Rows) (*domain.TransactionView, error) {
		v := &domain.TransactionView{}
		var txnType, direction string
		err := row.Scan(
			&v.ID, &v.ProductID, &txnType, &direction,
			&v.Quantity, &v.ActorID, &v.Notes, &v.SaleID, &v.CreatedAt,
			&v.ProductSKU, &v.ProductName, &v.ActorName,
		)
		v.Type = domain.TransactionType(txnType)
		v.Direction = domain.Direction(direction)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan recent transactions: %w", err)
	}
	return views, nil
}

func transactionArgs(txn *domain.InventoryTransaction) []interface{} {
	var direction *string
	if txn.Direction != "" {
		d := string(txn.Direction)
		direction = &d
	}
	return []interface{}{
		txn.ProductID, string(txn.Type), direction, txn.Quantity, txn.ActorID, txn.Notes, txn.SaleID,
	}
}

func scanTransaction(row pgx.Row, txn *domain.InventoryTransaction) error {
	var (
		txnType   string
		direction string
	)
	err := row.Scan(
		&txn.ID, &txn.ProductID, &txnType, &direction,
		&txn.Quantity, &txn.ActorID, &txn.Notes, &txn.SaleID, &txn.CreatedAt,
	)
	if err != nil {
		return err
	}
	txn.Type = domain.TransactionType(txnType)
	txn.Direction = domain.Direction(direction)
	return nil
}
