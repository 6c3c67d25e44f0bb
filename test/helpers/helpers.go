// test/helpers/helpers.go
package helpers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockledger/internal/adapters/db"
	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/pkg/config"
)

// TestJWTSecret signs tokens produced by TestToken
const TestJWTSecret = "test-secret-with-at-least-thirty-two-chars"

// TestDB represents a test database instance
type TestDB struct {
	PgxPool  *pgxpool.Pool
	Database *db.Database
	Resource *dockertest.Resource
	Pool     *dockertest.Pool
	Config   *db.Config
}

// TestRedis represents a test Redis instance
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger returns a test logger
func TestLogger() *slog.Logger {
	level := slog.LevelError
	if testing.Verbose() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// SetupTestDB starts a PostgreSQL container and applies the embedded
// migrations
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "Could not connect to Docker")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=test_ledger",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "Could not start PostgreSQL container")

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Could not purge resource: %s", err)
		}
	})

	dbConfig := &db.Config{
		Host:               "localhost",
		Port:               resource.GetPort("5432/tcp"),
		User:               "test",
		Password:           "test",
		Database:           "test_ledger",
		SSLMode:            "disable",
		MaxConnections:     5,
		MinConnections:     1,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    time.Minute * 30,
		HealthCheckPeriod:  time.Minute,
		ConnectTimeout:     time.Second * 10,
		StatementCacheMode: "describe",
		EnableQueryLogging: testing.Verbose(),
	}

	var database *db.Database
	err = pool.Retry(func() error {
		ctx := context.Background()
		var err error
		database, err = db.NewDatabase(ctx, dbConfig, TestLogger())
		if err != nil {
			return err
		}
		return database.Ping(ctx)
	})
	require.NoError(t, err, "Could not connect to PostgreSQL")
	t.Cleanup(database.Close)

	migrationConfig := &db.MigrationConfig{
		DatabaseURL: fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
			dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port,
			dbConfig.Database, dbConfig.SSLMode),
		TableName:  "schema_migrations",
		SchemaName: "public",
	}

	err = db.MigrateUp(context.Background(), migrationConfig, TestLogger(), 3)
	require.NoError(t, err, "Could not run migrations")

	return &TestDB{
		PgxPool:  database.Pool(),
		Database: database,
		Resource: resource,
		Pool:     pool,
		Config:   dbConfig,
	}
}

// SetupTestRedis creates an in-memory Redis for testing
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		client.Close()
	})

	return &TestRedis{
		Client: client,
		Server: mr,
	}
}

// LoadTestConfig returns a test configuration
func LoadTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:           "stockledger-test",
			Environment:    "test",
			Version:        "test",
			LogLevel:       "debug",
			LogFormat:      "text",
			Debug:          true,
			ReportTimezone: "UTC",
		},
		Database: config.DatabaseConfig{
			Host:               "localhost",
			Port:               "5432",
			User:               "test",
			Password:           "test",
			Name:               "test_ledger",
			SSLMode:            "disable",
			MaxConnections:     10,
			MinConnections:     2,
			EnableQueryLogging: true,
		},
		Redis: config.RedisConfig{
			Host:     "localhost",
			Port:     "6379",
			DB:       0,
			TTL:      time.Hour,
			PoolSize: 10,
		},
		Storage: config.StorageConfig{
			Backend:         "local",
			LocalPath:       os.TempDir(),
			MaxUploadSizeMB: 5,
			UploadRetention: 24 * time.Hour,
			ExportURLExpiry: time.Hour,
		},
		Ledger: config.LedgerConfig{
			RecentLimit:         20,
			IdempotencyTTL:      time.Hour,
			ReportCacheTTL:      time.Hour,
			LowStockAlertWindow: time.Hour,
			ImportTimeout:       time.Minute,
		},
		Security: config.SecurityConfig{
			JWTSecret:         TestJWTSecret,
			JWTIssuer:         "stockledger-test",
			RateLimitRequests: 100,
			RateLimitDuration: time.Minute,
			AllowedOrigins:    []string{"*"},
			RequestIDHeader:   "X-Request-ID",
		},
		Server: config.ServerConfig{
			Host:              "localhost",
			Port:              "8080",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			EnableHealthCheck: true,
		},
	}
}

// TestToken signs an HS256 bearer token the way the auth service does
func TestToken(t *testing.T, actorID uuid.UUID, name, role string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  actorID.String(),
		"name": name,
		"role": role,
		"iss":  "stockledger-test",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(TestJWTSecret))
	require.NoError(t, err)
	return signed
}

// CreateTestProduct creates an unsaved catalog product
func CreateTestProduct(overrides ...func(*domain.Product)) *domain.Product {
	p := &domain.Product{
		ID:            uuid.New(),
		SKU:           "SKU-" + uuid.NewString()[:8],
		Name:          "Jasmine Rice 5kg",
		UnitPrice:     decimal.RequireFromString("12.50"),
		UnitOfMeasure: "bag",
		ReorderLevel:  10,
	}

	for _, override := range overrides {
		override(p)
	}

	return p
}

// CreateTestTransaction creates an unsaved stock-in of 10 units
func CreateTestTransaction(productID uuid.UUID, overrides ...func(*domain.InventoryTransaction)) *domain.InventoryTransaction {
	txn := &domain.InventoryTransaction{
		ProductID: productID,
		Type:      domain.TransactionIn,
		Quantity:  10,
		ActorID:   uuid.New(),
		Notes:     "delivery",
	}

	for _, override := range overrides {
		override(txn)
	}

	return txn
}

// CreateTestSaleRequest creates a valid cash sale of two distinct products:
// 2 x 12.50 + 1 x 3.25 = 28.25, paid with 30.00.
func CreateTestSaleRequest(overrides ...func(*domain.CommitSaleRequest)) *domain.CommitSaleRequest {
	req := &domain.CommitSaleRequest{
		CashierID: uuid.New(),
		Items: []domain.CartItem{
			{
				ProductID:     uuid.New(),
				ProductName:   "Jasmine Rice 5kg",
				UnitOfMeasure: "bag",
				UnitPrice:     decimal.RequireFromString("12.50"),
				Quantity:      2,
			},
			{
				ProductID:     uuid.New(),
				ProductName:   "Cooking Oil 1L",
				UnitOfMeasure: "bottle",
				UnitPrice:     decimal.RequireFromString("3.25"),
				Quantity:      1,
			},
		},
		TotalAmount:   decimal.RequireFromString("28.25"),
		CashTendered:  decimal.RequireFromString("30.00"),
		ChangeAmount:  decimal.RequireFromString("1.75"),
		PaymentMethod: domain.PaymentCash,
	}

	for _, override := range overrides {
		override(req)
	}

	return req
}

// SaleRequestFor builds a valid cash sale over saved products, one unit each
// unless quantities are given
func SaleRequestFor(cashierID uuid.UUID, products []*domain.Product, quantities ...int) *domain.CommitSaleRequest {
	req := &domain.CommitSaleRequest{
		CashierID:     cashierID,
		PaymentMethod: domain.PaymentCash,
	}

	total := decimal.Zero
	for i, p := range products {
		qty := 1
		if i < len(quantities) {
			qty = quantities[i]
		}
		item := p.CartItem(qty)
		req.Items = append(req.Items, item)
		total = total.Add(item.Subtotal())
	}

	req.TotalAmount = total
	req.CashTendered = total
	req.ChangeAmount = decimal.Zero
	return req
}

// SeedUser inserts an actor and returns its id
func SeedUser(t *testing.T, pool *pgxpool.Pool, displayName, role string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, username, display_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)`,
		id, "user-"+id.String()[:8], displayName, "not-a-real-hash", role)
	require.NoError(t, err, "Failed to seed user")

	return id
}

// SeedProducts saves products through the repository
func SeedProducts(t *testing.T, database *db.Database, products ...*domain.Product) {
	t.Helper()

	repo := db.NewProductRepository(database, TestLogger())
	for _, p := range products {
		p.PrepareForStorage()
		require.NoError(t, repo.Save(context.Background(), p), "Failed to seed product %s", p.SKU)
	}
}

// TruncateAllTables empties the ledger tables. TRUNCATE does not fire the
// row level append-only triggers.
func TruncateAllTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"TRUNCATE TABLE inventory_transactions, sale_items, sales, products, users CASCADE")
	require.NoError(t, err, "Failed to truncate tables")
}
