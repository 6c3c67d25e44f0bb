package db

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateMigrations(Migrations, migrationsDir))

	migrations, err := listMigrations(Migrations, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, uint(1), migrations[0].Version)
	assert.Equal(t, "init", migrations[0].Description)
}

func TestValidateMigrations(t *testing.T) {
	sqlFile := &fstest.MapFile{Data: []byte("SELECT 1;")}

	tests := []struct {
		name          string
		files         fstest.MapFS
		errorContains string
	}{
		{
			name: "contiguous_pairs",
			files: fstest.MapFS{
				"m/000001_init.up.sql":        sqlFile,
				"m/000001_init.down.sql":      sqlFile,
				"m/000002_add_index.up.sql":   sqlFile,
				"m/000002_add_index.down.sql": sqlFile,
			},
		},
		{
			name: "missing_down",
			files: fstest.MapFS{
				"m/000001_init.up.sql": sqlFile,
			},
			errorContains: "missing its up or down script",
		},
		{
			name: "version_gap",
			files: fstest.MapFS{
				"m/000001_init.up.sql":    sqlFile,
				"m/000001_init.down.sql":  sqlFile,
				"m/000003_later.up.sql":   sqlFile,
				"m/000003_later.down.sql": sqlFile,
			},
			errorContains: "expected 2, found 3",
		},
		{
			name: "bad_file_name",
			files: fstest.MapFS{
				"m/init.sql": sqlFile,
			},
			errorContains: "invalid migration file name",
		},
		{
			name: "duplicate_up",
			files: fstest.MapFS{
				"m/000001_init.up.sql":   sqlFile,
				"m/000001_other.up.sql":  sqlFile,
				"m/000001_init.down.sql": sqlFile,
			},
			errorContains: "duplicate up migration",
		},
		{
			name: "empty_directory",
			files: fstest.MapFS{
				"m": &fstest.MapFile{Mode: fs.ModeDir},
			},
			errorContains: "no migrations found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMigrations(tt.files, "m")

			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestReadSchemaVersion(t *testing.T) {
	const (
		existsQuery  = `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2)`
		versionQuery = `SELECT version, dirty FROM "public"."schema_migrations" LIMIT 1`
	)
	tableExists := func(mock sqlmock.Sqlmock, exists bool) {
		mock.ExpectQuery(existsQuery).
			WithArgs("public", "schema_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
	}

	tests := []struct {
		name            string
		setup           func(mock sqlmock.Sqlmock)
		expectedVersion uint
		expectedDirty   bool
		wantError       bool
	}{
		{
			name: "applied_version",
			setup: func(mock sqlmock.Sqlmock) {
				tableExists(mock, true)
				mock.ExpectQuery(versionQuery).WillReturnRows(
					sqlmock.NewRows([]string{"version", "dirty"}).AddRow(int64(1), false))
			},
			expectedVersion: 1,
		},
		{
			name: "dirty_version",
			setup: func(mock sqlmock.Sqlmock) {
				tableExists(mock, true)
				mock.ExpectQuery(versionQuery).WillReturnRows(
					sqlmock.NewRows([]string{"version", "dirty"}).AddRow(int64(2), true))
			},
			expectedVersion: 2,
			expectedDirty:   true,
		},
		{
			name: "fresh_database",
			setup: func(mock sqlmock.Sqlmock) {
				tableExists(mock, false)
			},
		},
		{
			name: "empty_version_table",
			setup: func(mock sqlmock.Sqlmock) {
				tableExists(mock, true)
				mock.ExpectQuery(versionQuery).WillReturnError(sql.ErrNoRows)
			},
		},
		{
			name: "nil_version_row",
			setup: func(mock sqlmock.Sqlmock) {
				tableExists(mock, true)
				mock.ExpectQuery(versionQuery).WillReturnRows(
					sqlmock.NewRows([]string{"version", "dirty"}).AddRow(int64(-1), false))
			},
		},
		{
			name: "catalog_lookup_failure",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(existsQuery).WillReturnError(errors.New("permission denied"))
			},
			wantError: true,
		},
		{
			name: "version_query_failure",
			setup: func(mock sqlmock.Sqlmock) {
				tableExists(mock, true)
				mock.ExpectQuery(versionQuery).WillReturnError(errors.New("relation does not exist"))
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
			require.NoError(t, err)
			defer conn.Close()

			tt.setup(mock)

			version, dirty, err := readSchemaVersion(context.Background(), conn, "public", "schema_migrations")

			if tt.wantError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedVersion, version)
				assert.Equal(t, tt.expectedDirty, dirty)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPlanStatus(t *testing.T) {
	files := []MigrationInfo{
		{Version: 1, Description: "init"},
		{Version: 2, Description: "sale_idempotency"},
		{Version: 3, Description: "receipt_imports"},
	}

	status := planStatus(files, 2, false)
	assert.Equal(t, uint(2), status.CurrentVersion)
	assert.Len(t, status.Applied, 2)
	require.Len(t, status.Pending, 1)
	assert.Equal(t, "receipt_imports", status.Pending[0].Description)

	fresh := planStatus(files, 0, false)
	assert.Empty(t, fresh.Applied)
	assert.Len(t, fresh.Pending, 3)
}

func TestMigrationConfig_Defaults(t *testing.T) {
	cfg := (&MigrationConfig{DatabaseURL: "postgres://x"}).withDefaults()
	assert.Equal(t, "schema_migrations", cfg.TableName)
	assert.Equal(t, "public", cfg.SchemaName)
	assert.Equal(t, 10*time.Minute, cfg.StatementTimeout)

	fsys, dir := cfg.source()
	assert.Equal(t, migrationsDir, dir)
	assert.NoError(t, ValidateMigrations(fsys, dir))

	_, err := NewMigrator(context.Background(), nil, nil)
	assert.Error(t, err)
}
