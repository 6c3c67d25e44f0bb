// cmd/seeder/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/ammerola/stockledger/internal/adapters/db"
	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
	"github.com/ammerola/stockledger/internal/core/services"
	"github.com/ammerola/stockledger/internal/pkg/config"
	"github.com/ammerola/stockledger/internal/pkg/logger"
	"github.com/ammerola/stockledger/internal/workers"
)

// Catalog workbook columns
const (
	colSKU = iota
	colName
	colUnit
	colPrice
	colReorder
	colOpening
)

// seedUser is a staff account created with the shared seed password
type seedUser struct {
	Username    string
	DisplayName string
	Role        string
}

var defaultUsers = []seedUser{
	{Username: "admin", DisplayName: "Store Admin", Role: "admin"},
	{Username: "manager", DisplayName: "Floor Manager", Role: "manager"},
	{Username: "cashier", DisplayName: "Till Cashier", Role: "cashier"},
}

// catalogRow is one product line of the catalog workbook
type catalogRow struct {
	Product      *domain.Product
	OpeningStock int
}

// seederState tracks delivery notes already booked so reruns skip them
type seederState struct {
	ProcessedReceipts []string  `json:"processed_receipts"`
	LastUpdate        time.Time `json:"last_update"`
}

func (s *seederState) processed(name string) bool {
	for _, p := range s.ProcessedReceipts {
		if p == name {
			return true
		}
	}
	return false
}

func main() {
	var (
		catalogFile = flag.String("catalog", "./catalog.xlsx", "Excel workbook with the product catalog")
		receiptsDir = flag.String("receipts", "./receipts", "Directory containing delivery notes (pdf, xlsx)")
		stateFile   = flag.String("state", "./.seed_state.json", "State file for tracking processed receipts")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		password    = flag.String("password", os.Getenv("SEED_PASSWORD"), "Password for the seeded staff accounts")
		dryRun      = flag.Bool("dry-run", false, "Preview changes without modifying database")
		force       = flag.Bool("force", false, "Reprocess all receipts")
		migrateCmd  = flag.String("migrate", "", "Run a schema command instead of seeding (up, down, status)")
	)
	flag.Parse()

	log := logger.SetupLogger(*logLevel, "json").Logger

	if *migrateCmd != "" {
		if err := runMigrateCommand(*migrateCmd, *force, log); err != nil {
			log.Error("migration command failed", slog.String("command", *migrateCmd), slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	rows, err := loadCatalog(*catalogFile)
	if err != nil {
		log.Error("failed to load catalog", slog.String("file", *catalogFile), slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Printf("Catalog: %d products in %s\n", len(rows), *catalogFile)

	if *dryRun {
		for _, row := range rows {
			fmt.Printf("  - %s %q opening stock %d\n", row.Product.SKU, row.Product.Name, row.OpeningStock)
		}
		fmt.Println("\n[DRY RUN] No changes were made to the database")
		return
	}

	if *password == "" {
		log.Error("seed password is required, set -password or SEED_PASSWORD")
		os.Exit(1)
	}

	cfg, err := config.Load(log)
	if err != nil {
		log.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	dbConfig := db.ConfigFrom(cfg.Database)
	dbConfig.MaxConnections, dbConfig.MinConnections = 4, 1
	database, err := db.NewDatabase(ctx, dbConfig, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	adminID, err := seedUsers(ctx, database, *password)
	if err != nil {
		log.Error("failed to seed users", slog.String("error", err.Error()))
		os.Exit(1)
	}

	products := db.NewProductRepository(database, log)
	ledger := services.NewLedgerService(products, db.NewTransactionRepository(database, log), nil, 0, log)

	created, opening, err := seedCatalog(ctx, products, ledger, adminID, rows)
	if err != nil {
		log.Error("failed to seed catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var state seederState
	if !*force {
		if data, err := os.ReadFile(*stateFile); err == nil {
			if err := json.Unmarshal(data, &state); err != nil {
				log.Warn("ignoring unreadable state file", slog.String("error", err.Error()))
			}
		}
	}

	booked, failed := seedReceipts(ctx, ledger, adminID, *receiptsDir, &state, log)

	state.LastUpdate = time.Now()
	if data, err := json.MarshalIndent(state, "", "  "); err == nil {
		if err := os.WriteFile(*stateFile, data, 0o644); err != nil {
			log.Warn("failed to save state file", slog.String("error", err.Error()))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SEEDING SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Products created:        %d\n", created)
	fmt.Printf("Opening stock entries:   %d\n", opening)
	fmt.Printf("Receipt lines booked:    %d\n", booked)
	if len(failed) > 0 {
		fmt.Printf("\nFailed receipts (%d):\n", len(failed))
		for _, name := range failed {
			fmt.Printf("  - %s\n", name)
		}
	}

	log.Info("seed operation completed",
		slog.Int("products_created", created),
		slog.Int("opening_entries", opening),
		slog.Int("receipt_lines", booked),
		slog.Int("failed_receipts", len(failed)))
}

// runMigrateCommand applies, reverts or reports the schema. force clears a
// dirty version before migrating up.
func runMigrateCommand(command string, force bool, log *slog.Logger) error {
	cfg, err := config.Load(log)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	migrator, err := db.NewMigrator(ctx, &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		SourcePath:  cfg.Database.MigrationPath,
		ForceDirty:  force,
	}, log)
	if err != nil {
		return err
	}
	defer migrator.Close()

	switch command {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "status":
		var status *db.MigrationStatus
		if status, err = migrator.Status(ctx); err == nil {
			out, _ := json.MarshalIndent(status, "", "  ")
			fmt.Println(string(out))
		}
	default:
		err = fmt.Errorf("unknown migrate command %q", command)
	}
	return err
}

// loadCatalog reads the first sheet. The header row is skipped.
func loadCatalog(path string) ([]catalogRow, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	var rows []catalogRow
	line := 0
	err = file.Sheets[0].ForEachRow(func(r *xlsx.Row) error {
		line++
		if line == 1 {
			return nil
		}

		sku := strings.TrimSpace(r.GetCell(colSKU).Value)
		if sku == "" {
			return nil
		}

		price, err := decimal.NewFromString(strings.TrimSpace(r.GetCell(colPrice).Value))
		if err != nil {
			return fmt.Errorf("row %d: invalid unit price: %w", line, err)
		}
		reorder, err := cellInt(r.GetCell(colReorder))
		if err != nil {
			return fmt.Errorf("row %d: invalid reorder level: %w", line, err)
		}
		opening, err := cellInt(r.GetCell(colOpening))
		if err != nil {
			return fmt.Errorf("row %d: invalid opening stock: %w", line, err)
		}

		product := &domain.Product{
			SKU:           sku,
			Name:          strings.TrimSpace(r.GetCell(colName).Value),
			UnitOfMeasure: strings.TrimSpace(r.GetCell(colUnit).Value),
			UnitPrice:     price,
			ReorderLevel:  reorder,
		}
		if err := product.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", line, err)
		}
		if opening < 0 {
			return fmt.Errorf("row %d: opening stock cannot be negative", line)
		}

		rows = append(rows, catalogRow{Product: product, OpeningStock: opening})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func cellInt(c *xlsx.Cell) (int, error) {
	raw := strings.TrimSpace(c.Value)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// seedUsers creates the staff accounts and returns the admin id used as the
// actor of seeded ledger entries
func seedUsers(ctx context.Context, database ports.Database, password string) (uuid.UUID, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var adminID uuid.UUID
	for _, u := range defaultUsers {
		var id uuid.UUID
		err := database.QueryRow(ctx, `
			INSERT INTO users (username, display_name, password_hash, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (username) DO UPDATE SET display_name = EXCLUDED.display_name
			RETURNING id`,
			u.Username, u.DisplayName, string(hash), u.Role,
		).Scan(&id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to seed user %s: %w", u.Username, err)
		}
		fmt.Printf("User %-8s %s (%s)\n", u.Username, id, u.Role)
		if u.Role == "admin" {
			adminID = id
		}
	}
	return adminID, nil
}

// seedCatalog inserts missing products and books their opening stock as one
// receipt. Products already in the catalog are left untouched.
func seedCatalog(ctx context.Context, products ports.ProductRepository, ledger ports.LedgerService,
	actorID uuid.UUID, rows []catalogRow) (created, opening int, err error) {
	skus := make([]string, 0, len(rows))
	for _, row := range rows {
		skus = append(skus, row.Product.SKU)
	}
	existing, err := products.FindBySKUs(ctx, skus)
	if err != nil {
		return 0, 0, err
	}

	var lines []domain.ReceiptLine
	for _, row := range rows {
		if _, ok := existing[row.Product.SKU]; ok {
			continue
		}
		row.Product.PrepareForStorage()
		if err := products.Save(ctx, row.Product); err != nil {
			return created, 0, err
		}
		created++

		if row.OpeningStock > 0 {
			lines = append(lines, domain.ReceiptLine{
				SKU:      row.Product.SKU,
				Quantity: row.OpeningStock,
				Notes:    "Opening stock",
			})
		}
	}

	if len(lines) == 0 {
		return created, 0, nil
	}
	txns, err := ledger.AppendReceipt(ctx, actorID, "opening", lines)
	if err != nil {
		return created, 0, fmt.Errorf("failed to book opening stock: %w", err)
	}
	return created, len(txns), nil
}

// seedReceipts books every delivery note in dir not yet recorded in state
func seedReceipts(ctx context.Context, ledger ports.LedgerService, actorID uuid.UUID, dir string,
	state *seederState, log *slog.Logger) (booked int, failed []string) {
	var files []string
	for _, pattern := range []string{"*.pdf", "*.xlsx"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			log.Error("failed to list receipts", slog.String("error", err.Error()))
			return 0, nil
		}
		files = append(files, matches...)
	}

	for i, path := range files {
		name := filepath.Base(path)
		fmt.Printf("PROGRESS: Processing %d/%d: %s\n", i+1, len(files), name)

		if state.processed(name) {
			log.Info("skipping already processed receipt", slog.String("file", name))
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			failed = append(failed, name)
			continue
		}

		fileType := strings.TrimPrefix(filepath.Ext(name), ".")
		lines, err := workers.ParseReceipt(fileType, data)
		if err == nil {
			_, err = ledger.AppendReceipt(ctx, actorID, strings.TrimSuffix(name, filepath.Ext(name)), lines)
		}
		if err != nil {
			log.Error("failed to book receipt", slog.String("file", name), slog.String("error", err.Error()))
			fmt.Printf("ERROR: %s - %v\n", name, err)
			failed = append(failed, name)
			continue
		}

		fmt.Printf("SUCCESS: %s - %d lines\n", name, len(lines))
		booked += len(lines)
		state.ProcessedReceipts = append(state.ProcessedReceipts, name)
	}
	return booked, failed
}
