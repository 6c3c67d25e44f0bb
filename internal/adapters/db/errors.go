// internal/adapters/db/errors.go
package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ammerola/stockledger/internal/core/domain"
)

// Postgres error codes the repositories translate
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgRaiseException      = "P0001"
	pgSerialization       = "40001"
	pgDeadlockDetected    = "40P01"

	idempotencyConstraint = "uq_sales_idempotency_key"
)

// ErrAppendOnly is returned when the database rejects a mutation of ledger history
var ErrAppendOnly = errors.New("ledger tables are append-only")

// translateError maps constraint violations onto domain errors. Anything
// else is returned unchanged.
func translateError(err error, resource, id string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", domain.NewNotFoundError(resource, id), pgErr.ConstraintName)
	case pgUniqueViolation:
		if pgErr.ConstraintName == idempotencyConstraint {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateRequest, pgErr.ConstraintName)
		}
	case pgCheckViolation:
		return domain.NewValidationError(pgErr.ColumnName, fmt.Sprintf("violates %s", pgErr.ConstraintName))
	case pgRaiseException:
		return fmt.Errorf("%w: %s", ErrAppendOnly, pgErr.Message)
	}

	return err
}

// IsAppendOnlyViolation reports whether err came from the append-only trigger
func IsAppendOnlyViolation(err error) bool {
	if errors.Is(err, ErrAppendOnly) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgRaiseException
}

// isRetryable reports whether the server aborted the transaction in a way
// that a replay can resolve
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerialization || pgErr.Code == pgDeadlockDetected
}
