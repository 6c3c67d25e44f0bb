//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/ammerola/stockledger/internal/adapters/db"
	redis_a "github.com/ammerola/stockledger/internal/adapters/redis_adapter"
	"github.com/ammerola/stockledger/internal/adapters/storage"
	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/services"
	"github.com/ammerola/stockledger/internal/handlers"
	"github.com/ammerola/stockledger/internal/pkg/logger"
	"github.com/ammerola/stockledger/internal/workers"
	"github.com/ammerola/stockledger/test/helpers"
)

type LedgerE2ESuite struct {
	suite.Suite
	server    *httptest.Server
	client    *http.Client
	baseURL   string
	testDB    *helpers.TestDB
	testRedis *helpers.TestRedis
	inspector *asynq.Inspector

	managerToken string
	cashierToken string
}

func (s *LedgerE2ESuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.testRedis = helpers.SetupTestRedis(s.T())

	s.server = s.startTestServer()
	s.client = &http.Client{Timeout: 10 * time.Second}
	s.baseURL = s.server.URL + handlers.APIPrefix
}

func (s *LedgerE2ESuite) TearDownSuite() {
	s.server.Close()
	if s.inspector != nil {
		s.inspector.Close()
	}
}

func (s *LedgerE2ESuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.PgxPool)
	s.testRedis.Server.FlushAll()

	managerID := helpers.SeedUser(s.T(), s.testDB.PgxPool, "Dana Reyes", "manager")
	cashierID := helpers.SeedUser(s.T(), s.testDB.PgxPool, "Lee Santos", "cashier")
	s.managerToken = helpers.TestToken(s.T(), managerID, "Dana Reyes", "manager")
	s.cashierToken = helpers.TestToken(s.T(), cashierID, "Lee Santos", "cashier")
}

func (s *LedgerE2ESuite) TestReceiveSellAndReport() {
	rice := helpers.CreateTestProduct(func(p *domain.Product) {
		p.SKU = "RICE-5KG"
		p.ReorderLevel = 10
	})
	helpers.SeedProducts(s.T(), s.testDB.Database, rice)

	// 1. Receive a delivery of 12 bags
	resp := s.makeRequest(s.managerToken, http.MethodPost, "/transactions", map[string]interface{}{
		"product_id":       rice.ID,
		"transaction_type": "in",
		"quantity":         12,
		"notes":            "DN-2026-0117",
	}, nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// 2. Stock is derived from the ledger
	level := s.stockOf(rice.ID)
	s.Equal(int64(12), level.CurrentStock)
	s.Equal(domain.StatusInStock, level.Status)

	// 3. Sell three bags, then retry the same request
	sale := map[string]interface{}{
		"items": []map[string]interface{}{{
			"product_id":      rice.ID,
			"product_name":    rice.Name,
			"unit_of_measure": rice.UnitOfMeasure,
			"unit_price":      rice.UnitPrice.String(),
			"quantity":        3,
		}},
		"total_amount":   "37.50",
		"cash_tendered":  "40.00",
		"change_amount":  "2.50",
		"payment_method": "cash",
	}
	headers := map[string]string{handlers.IdempotencyKeyHeader: "till-1-0001"}

	resp = s.makeRequest(s.cashierToken, http.MethodPost, "/sales", sale, headers)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var first domain.Sale
	s.decodeResponse(resp, &first)
	s.Require().NotEqual(uuid.Nil, first.ID)
	s.True(decimal.RequireFromString("37.50").Equal(first.TotalAmount))

	resp = s.makeRequest(s.cashierToken, http.MethodPost, "/sales", sale, headers)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var replay domain.Sale
	s.decodeResponse(resp, &replay)
	s.Equal(first.ID, replay.ID, "retry must return the committed sale")

	// 4. Only one out movement was booked, leaving 9 bags at reorder level 10
	level = s.stockOf(rice.ID)
	s.Equal(int64(9), level.CurrentStock)
	s.Equal(domain.StatusLowStock, level.Status)

	resp = s.makeRequest(s.managerToken, http.MethodGet, "/stock/low", nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var low handlers.StockListResponse
	s.decodeResponse(resp, &low)
	s.Require().Len(low.Products, 1)
	s.Equal(rice.ID, low.Products[0].ProductID)

	// 5. The recent feed shows the sale movement first
	resp = s.makeRequest(s.managerToken, http.MethodGet, "/transactions/recent?limit=5", nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var recent struct {
		Transactions []domain.TransactionView `json:"transactions"`
	}
	s.decodeResponse(resp, &recent)
	s.Require().Len(recent.Transactions, 2)
	s.Equal(domain.TransactionOut, recent.Transactions[0].Type)
	s.Equal(3, recent.Transactions[0].Quantity)
	s.Require().NotNil(recent.Transactions[0].SaleID)
	s.Equal(first.ID, *recent.Transactions[0].SaleID)

	// 6. The daily summary counts the sale once
	today := time.Now().UTC().Format("2006-01-02")
	resp = s.makeRequest(s.managerToken, http.MethodGet,
		"/reports/summary?from="+today+"&to="+today, nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var summary domain.SalesSummary
	s.decodeResponse(resp, &summary)
	s.Equal(int64(1), summary.TransactionCount)
	s.Equal(int64(3), summary.ItemsSold)
	s.True(decimal.RequireFromString("37.50").Equal(summary.TotalRevenue))

	// 7. Committing the sale queued a low stock check
	pending, err := s.inspector.ListPendingTasks(workers.QueueCritical)
	s.Require().NoError(err)
	s.Require().NotEmpty(pending)
	s.Equal(workers.TypeLowStockCheck, pending[0].Type)
}

func (s *LedgerE2ESuite) TestOversellGoesNegative() {
	oil := helpers.CreateTestProduct(func(p *domain.Product) {
		p.SKU = "OIL-1L"
		p.ReorderLevel = 2
	})
	helpers.SeedProducts(s.T(), s.testDB.Database, oil)

	resp := s.makeRequest(s.managerToken, http.MethodPost, "/transactions", map[string]interface{}{
		"product_id":       oil.ID,
		"transaction_type": "in",
		"quantity":         2,
	}, nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Sales are never blocked by stock on hand
	resp = s.makeRequest(s.cashierToken, http.MethodPost, "/sales", map[string]interface{}{
		"items": []map[string]interface{}{{
			"product_id":   oil.ID,
			"product_name": oil.Name,
			"unit_price":   oil.UnitPrice.String(),
			"quantity":     5,
		}},
		"total_amount":   oil.UnitPrice.Mul(decimal.NewFromInt(5)).String(),
		"payment_method": "card",
	}, nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	level := s.stockOf(oil.ID)
	s.Equal(int64(-3), level.CurrentStock)
	s.Equal(domain.StatusOversold, level.Status)
	s.True(level.IsLowStock)
	s.True(level.IsOutOfStock)
}

func (s *LedgerE2ESuite) TestCashierCannotAppend() {
	resp := s.makeRequest(s.cashierToken, http.MethodPost, "/transactions", map[string]interface{}{
		"product_id":       uuid.New(),
		"transaction_type": "in",
		"quantity":         1,
	}, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *LedgerE2ESuite) TestUnauthenticatedRequestRejected() {
	resp := s.makeRequest("", http.MethodGet, "/stock", nil, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *LedgerE2ESuite) TestHealth() {
	resp, err := s.client.Get(s.server.URL + "/health")
	s.Require().NoError(err)

	s.Equal(http.StatusOK, resp.StatusCode)
	var status handlers.HealthStatus
	s.decodeResponse(resp, &status)
	s.Equal("healthy", status.Status)
}

// Helper methods

func (s *LedgerE2ESuite) startTestServer() *httptest.Server {
	cfg := helpers.LoadTestConfig()
	cfg.Storage.LocalPath = s.T().TempDir()
	slogger := helpers.TestLogger()

	redisOpt := asynq.RedisClientOpt{Addr: s.testRedis.Server.Addr()}
	client := asynq.NewClient(redisOpt)
	s.T().Cleanup(func() { client.Close() })
	s.inspector = asynq.NewInspector(redisOpt)
	publisher := workers.NewPublisher(client, 3, slogger)

	objects, err := storage.NewLocalStorage(cfg.Storage.LocalPath, slogger)
	s.Require().NoError(err)

	database := s.testDB.Database
	cache := redis_a.NewCache(s.testRedis.Client, time.Minute, slogger)
	idempotency := redis_a.NewIdempotencyStore(s.testRedis.Client, time.Hour, slogger)

	sales := db.NewSaleRepository(database, slogger)
	ledgerService := services.NewLedgerService(
		db.NewProductRepository(database, slogger),
		db.NewTransactionRepository(database, slogger),
		publisher, cfg.Ledger.RecentLimit, slogger)
	stockService := services.NewStockService(db.NewStockRepository(database, slogger), slogger)
	saleService := services.NewSaleService(sales, idempotency, publisher, slogger)
	reportService := services.NewReportService(db.NewReportRepository(database, slogger), sales, cache,
		cfg.Ledger.ReportCacheTTL, slogger)

	h := handlers.Handlers{
		Ledger: handlers.NewLedgerHandler(ledgerService, slogger),
		Stock:  handlers.NewStockHandler(stockService, slogger),
		Sales:  handlers.NewSaleHandler(saleService, reportService, time.UTC, slogger),
		Reports: handlers.NewReportHandler(reportService, handlers.ReportHandlerConfig{
			Tasks:     publisher,
			Storage:   objects,
			Inspector: s.inspector,
			Location:  time.UTC,
			URLExpiry: time.Hour,
		}, slogger),
		Imports: handlers.NewImportHandler(objects, publisher, s.inspector, 1<<20, slogger),
		Health:  handlers.NewHealthHandler(database, s.testRedis.Client, s.inspector, cfg, slogger),
	}

	log := logger.NewLogger(&logger.LogConfig{Level: "error", Format: "json", Output: "stderr"})
	return httptest.NewServer(handlers.NewRouter(h, cfg, log))
}

func (s *LedgerE2ESuite) stockOf(productID uuid.UUID) domain.StockLevel {
	resp := s.makeRequest(s.managerToken, http.MethodGet, "/products/"+productID.String()+"/stock", nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var level domain.StockLevel
	s.decodeResponse(resp, &level)
	return level
}

func (s *LedgerE2ESuite) makeRequest(token, method, path string, body interface{}, headers map[string]string) *http.Response {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, s.baseURL+path, reader)
	s.Require().NoError(err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *LedgerE2ESuite) decodeResponse(resp *http.Response, v interface{}) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(v))
}

func TestLedgerE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	suite.Run(t, new(LedgerE2ESuite))
}
