package db

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/pkg/config"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{
			name:     "foreign_key_is_not_found",
			err:      &pgconn.PgError{Code: "23503", ConstraintName: "inventory_transactions_product_id_fkey"},
			expected: domain.ErrNotFound,
		},
		{
			name:     "idempotency_key_is_duplicate",
			err:      &pgconn.PgError{Code: "23505", ConstraintName: "uq_sales_idempotency_key"},
			expected: domain.ErrDuplicateRequest,
		},
		{
			name:     "check_is_validation",
			err:      &pgconn.PgError{Code: "23514", ConstraintName: "inventory_transactions_quantity_check", ColumnName: "quantity"},
			expected: domain.ErrValidation,
		},
		{
			name:     "trigger_is_append_only",
			err:      &pgconn.PgError{Code: "P0001", Message: "sales is append-only: UPDATE rejected"},
			expected: ErrAppendOnly,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err, "product", "42")
			assert.ErrorIs(t, got, tt.expected)
		})
	}

	t.Run("other_unique_violation_unchanged", func(t *testing.T) {
		err := &pgconn.PgError{Code: "23505", ConstraintName: "products_sku_key"}
		assert.Same(t, err, translateError(err, "product", "42"))
	})

	t.Run("non_postgres_error_unchanged", func(t *testing.T) {
		err := errors.New("conn reset")
		assert.Equal(t, err, translateError(err, "product", "42"))
	})
}

func TestIsAppendOnlyViolation(t *testing.T) {
	assert.True(t, IsAppendOnlyViolation(&pgconn.PgError{Code: "P0001"}))
	assert.True(t, IsAppendOnlyViolation(translateError(&pgconn.PgError{Code: "P0001"}, "", "")))
	assert.False(t, IsAppendOnlyViolation(errors.New("nope")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization_failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("failed to insert sale: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique_violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain_error", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestConfig_ConnString(t *testing.T) {
	cfg := &Config{
		Host:           "db.internal",
		Port:           "5433",
		User:           "ledger",
		Password:       "p@ss/word",
		Database:       "stock_ledger",
		SSLMode:        "require",
		ConnectTimeout: 10 * time.Second,
	}

	u, err := url.Parse(cfg.ConnString())
	require.NoError(t, err)

	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:5433", u.Host)
	assert.Equal(t, "/stock_ledger", u.Path)
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss/word", password)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, "10", u.Query().Get("connect_timeout"))
	assert.Equal(t, "stockledger", u.Query().Get("application_name"))
}

func TestConfigFrom(t *testing.T) {
	c := ConfigFrom(config.DatabaseConfig{
		Host:               "db.internal",
		Port:               "5432",
		User:               "ledger",
		Name:               "stock_ledger",
		MaxConnections:     25,
		MinConnections:     5,
		StatementCacheMode: "exec",
		MigrationPath:      "/srv/migrations",
	})

	assert.Equal(t, "stock_ledger", c.Database)
	assert.Equal(t, int32(25), c.MaxConnections)
	assert.Equal(t, int32(5), c.MinConnections)
	assert.Equal(t, "exec", c.StatementCacheMode)
}

func TestNewPoolConfig(t *testing.T) {
	cfg := &Config{
		Host:               "localhost",
		Port:               "5432",
		User:               "ledger",
		Password:           "secret",
		Database:           "stock_ledger",
		SSLMode:            "disable",
		MaxConnections:     8,
		MinConnections:     2,
		StatementCacheMode: "simple",
		EnableQueryLogging: true,
	}

	poolConfig, err := newPoolConfig(cfg, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, int32(8), poolConfig.MaxConns)
	assert.Equal(t, "UTC", poolConfig.ConnConfig.RuntimeParams["timezone"])
	assert.NotNil(t, poolConfig.ConnConfig.Tracer)
	assert.Positive(t, poolConfig.HealthCheckPeriod)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelError, slogLevel(tracelog.LogLevelError))
	assert.Equal(t, slog.LevelWarn, slogLevel(tracelog.LogLevelWarn))
	assert.Equal(t, slog.LevelDebug, slogLevel(tracelog.LogLevelTrace))
}
