// internal/adapters/db/migrations.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Migrations holds the ledger schema shipped with the binary
//
//go:embed migrations/*.sql
var Migrations embed.FS

const (
	migrationsDir         = "migrations"
	defaultMigrationTable = "schema_migrations"
	defaultSchema         = "public"
)

// MigrationConfig holds migration configuration
type MigrationConfig struct {
	DatabaseURL string
	// SourcePath overrides the embedded migrations with a directory on disk
	SourcePath string
	TableName  string
	SchemaName string
	// ForceDirty clears a dirty flag left by a failed run before migrating up
	ForceDirty       bool
	StatementTimeout time.Duration
}

func (c *MigrationConfig) withDefaults() MigrationConfig {
	out := *c
	if out.TableName == "" {
		out.TableName = defaultMigrationTable
	}
	if out.SchemaName == "" {
		out.SchemaName = defaultSchema
	}
	if out.StatementTimeout <= 0 {
		out.StatementTimeout = 10 * time.Minute
	}
	return out
}

// source returns the migration files and the directory holding them
func (c *MigrationConfig) source() (fs.FS, string) {
	if c.SourcePath != "" {
		return os.DirFS(c.SourcePath), "."
	}
	return Migrations, migrationsDir
}

// Migrator applies the ledger schema with golang-migrate
type Migrator struct {
	m      *migrate.Migrate
	db     *sql.DB
	config MigrationConfig
	files  []MigrationInfo
	logger *slog.Logger
}

// NewMigrator validates the migration files and connects to the database
func NewMigrator(ctx context.Context, config *MigrationConfig, logger *slog.Logger) (*Migrator, error) {
	if config == nil {
		return nil, errors.New("migration config is required")
	}
	cfg := config.withDefaults()

	fsys, dir := cfg.source()
	files, err := listMigrations(fsys, dir)
	if err != nil {
		return nil, err
	}
	if err := checkSequence(files); err != nil {
		return nil, err
	}

	conn, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(2)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	m, err := newMigrate(conn, fsys, dir, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Migrator{
		m:      m,
		db:     conn,
		config: cfg,
		files:  files,
		logger: logger.With(slog.String("component", "migrator")),
	}, nil
}

func newMigrate(conn *sql.DB, fsys fs.FS, dir string, cfg MigrationConfig) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(conn, &postgres.Config{
		MigrationsTable:  cfg.TableName,
		SchemaName:       cfg.SchemaName,
		StatementTimeout: cfg.StatementTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

// Up applies every pending migration
func (m *Migrator) Up(ctx context.Context) error {
	before, err := m.Status(ctx)
	if err != nil {
		return err
	}

	if before.IsDirty {
		if !m.config.ForceDirty {
			return fmt.Errorf("schema is dirty at version %d, fix it and rerun with force", before.CurrentVersion)
		}
		m.logger.WarnContext(ctx, "clearing dirty schema version",
			slog.Uint64("version", uint64(before.CurrentVersion)))
		if err := m.m.Force(int(before.CurrentVersion)); err != nil {
			return fmt.Errorf("failed to force version %d: %w", before.CurrentVersion, err)
		}
	}

	if len(before.Pending) == 0 {
		m.logger.InfoContext(ctx, "schema is up to date",
			slog.Uint64("version", uint64(before.CurrentVersion)))
		return nil
	}

	start := time.Now()
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	m.logger.InfoContext(ctx, "migrations applied",
		slog.Uint64("from_version", uint64(before.CurrentVersion)),
		slog.Uint64("to_version", uint64(before.Pending[len(before.Pending)-1].Version)),
		slog.Int("applied", len(before.Pending)),
		slog.Duration("duration_ms", time.Since(start)))
	return nil
}

// Down reverts the most recent migration. Dropping the first migration
// drops the ledger tables and their data.
func (m *Migrator) Down(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if status.IsDirty {
		return fmt.Errorf("schema is dirty at version %d", status.CurrentVersion)
	}
	if status.CurrentVersion == 0 {
		m.logger.InfoContext(ctx, "nothing to roll back")
		return nil
	}

	if err := m.m.Steps(-1); err != nil {
		return fmt.Errorf("failed to roll back version %d: %w", status.CurrentVersion, err)
	}

	m.logger.WarnContext(ctx, "migration rolled back",
		slog.Uint64("version", uint64(status.CurrentVersion)))
	return nil
}

// Status reports the applied version against the migration files
func (m *Migrator) Status(ctx context.Context) (*MigrationStatus, error) {
	version, dirty, err := readSchemaVersion(ctx, m.db, m.config.SchemaName, m.config.TableName)
	if err != nil {
		return nil, err
	}
	return planStatus(m.files, version, dirty), nil
}

// Close releases the migration source and the database connection
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.m.Close()
	return errors.Join(sourceErr, dbErr)
}

// MigrationStatus compares the database with the migration files
type MigrationStatus struct {
	CurrentVersion uint            `json:"current_version"`
	IsDirty        bool            `json:"is_dirty"`
	Applied        []MigrationInfo `json:"applied"`
	Pending        []MigrationInfo `json:"pending"`
}

// MigrationInfo describes one migration in the source
type MigrationInfo struct {
	Version     uint   `json:"version"`
	Description string `json:"description"`
}

func planStatus(files []MigrationInfo, version uint, dirty bool) *MigrationStatus {
	status := &MigrationStatus{
		CurrentVersion: version,
		IsDirty:        dirty,
		Applied:        make([]MigrationInfo, 0, len(files)),
		Pending:        make([]MigrationInfo, 0),
	}
	for _, f := range files {
		if f.Version <= version {
			status.Applied = append(status.Applied, f)
		} else {
			status.Pending = append(status.Pending, f)
		}
	}
	return status
}

// readSchemaVersion reads the single row golang-migrate keeps. A missing
// table means nothing was applied yet.
func readSchemaVersion(ctx context.Context, conn *sql.DB, schema, table string) (uint, bool, error) {
	var exists bool
	err := conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2)`,
		schema, table).Scan(&exists)
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up %s.%s: %w", schema, table, err)
	}
	if !exists {
		return 0, false, nil
	}

	var (
		version int64
		dirty   bool
	)
	err = conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT version, dirty FROM %q.%q LIMIT 1`, schema, table)).
		Scan(&version, &dirty)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("failed to query migration version: %w", err)
	case version < 0:
		return 0, dirty, nil
	}
	return uint(version), dirty, nil
}

// MigrateUp connects with retries and applies pending migrations once.
// Only the connection is retried; a failed migration leaves the schema
// dirty and needs an operator.
func MigrateUp(ctx context.Context, config *MigrationConfig, logger *slog.Logger, attempts int) error {
	var (
		migrator *Migrator
		err      error
	)
	for attempt := 1; attempt <= max(attempts, 1); attempt++ {
		migrator, err = NewMigrator(ctx, config, logger)
		if err == nil {
			break
		}
		logger.WarnContext(ctx, "migrator not ready",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 2 * time.Second):
		}
	}
	if err != nil {
		return fmt.Errorf("migrator unavailable after %d attempts: %w", attempts, err)
	}

	return errors.Join(migrator.Up(ctx), migrator.Close())
}

// ValidateMigrations checks that every file in dir is a well formed
// migration, each version has both an up and a down script, and versions
// are contiguous from 1
func ValidateMigrations(fsys fs.FS, dir string) error {
	files, err := listMigrations(fsys, dir)
	if err != nil {
		return err
	}
	return checkSequence(files)
}

func checkSequence(files []MigrationInfo) error {
	if len(files) == 0 {
		return errors.New("no migrations found")
	}
	for i, f := range files {
		if want := uint(i + 1); f.Version != want {
			return fmt.Errorf("migration version gap: expected %d, found %d", want, f.Version)
		}
	}
	return nil
}

// listMigrations parses dir and returns one entry per version, in order
func listMigrations(fsys fs.FS, dir string) ([]MigrationInfo, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	type scripts struct {
		name     string
		up, down int
	}
	byVersion := make(map[uint]*scripts)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		mig, err := source.Parse(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("invalid migration file name %q: %w", entry.Name(), err)
		}

		s, ok := byVersion[mig.Version]
		if !ok {
			s = &scripts{name: mig.Identifier}
			byVersion[mig.Version] = s
		}
		if mig.Direction == source.Up {
			s.up++
		} else {
			s.down++
		}
		if s.up > 1 || s.down > 1 {
			return nil, fmt.Errorf("duplicate %s migration for version %d", mig.Direction, mig.Version)
		}
	}

	files := make([]MigrationInfo, 0, len(byVersion))
	for version, s := range byVersion {
		if s.up == 0 || s.down == 0 {
			return nil, fmt.Errorf("migration %d is missing its up or down script", version)
		}
		files = append(files, MigrationInfo{Version: version, Description: s.name})
	}
	slices.SortFunc(files, func(a, b MigrationInfo) int { return int(a.Version) - int(b.Version) })
	return files, nil
}
