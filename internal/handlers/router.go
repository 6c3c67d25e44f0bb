// internal/handlers/router.go
package handlers

import (
	"net/http"
	"time"

	"github.com/ammerola/stockledger/internal/handlers/middleware"
	"github.com/ammerola/stockledger/internal/pkg/config"
	"github.com/ammerola/stockledger/internal/pkg/logger"
)

// APIPrefix is the versioned path every ledger route lives under
const APIPrefix = "/api/v1"

// Handlers groups the HTTP handlers mounted by NewRouter
type Handlers struct {
	Ledger  *LedgerHandler
	Stock   *StockHandler
	Sales   *SaleHandler
	Reports *ReportHandler
	Imports *ImportHandler
	Health  *HealthHandler
}

// NewRouter registers every route with Go 1.22 method patterns and wraps the
// mux in the middleware chain.
func NewRouter(h Handlers, cfg *config.Config, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.Authenticate(cfg.Security.JWTSecret, cfg.Security.JWTIssuer)
	staff := []string{middleware.RoleAdmin, middleware.RoleManager}
	till := []string{middleware.RoleAdmin, middleware.RoleCashier}

	// An empty role list admits any authenticated actor
	route := func(pattern string, fn http.HandlerFunc, roles ...string) {
		var handler http.Handler = fn
		if len(roles) > 0 {
			handler = middleware.RequireRole(roles...)(handler)
		}
		mux.Handle(pattern, auth(handler))
	}

	if h.Health != nil && cfg.Server.EnableHealthCheck {
		mux.HandleFunc("GET /health", h.Health.Health)
		mux.HandleFunc("GET /ready", h.Health.Readiness)
	}

	// Transaction store
	route("POST "+APIPrefix+"/transactions", h.Ledger.AppendTransaction, staff...)
	route("GET "+APIPrefix+"/transactions/recent", h.Ledger.ListRecent, staff...)
	route("GET "+APIPrefix+"/products/{id}/transactions", h.Ledger.ListByProduct, staff...)

	// Stock calculator
	route("GET "+APIPrefix+"/products/{id}/stock", h.Stock.GetProductStock)
	route("GET "+APIPrefix+"/stock", h.Stock.ListStock)
	route("GET "+APIPrefix+"/stock/low", h.Stock.ListLowStock)

	// Sales
	route("POST "+APIPrefix+"/sales", h.Sales.CommitSale, till...)
	route("GET "+APIPrefix+"/sales", h.Sales.ListSales, staff...)
	route("GET "+APIPrefix+"/sales/{id}", h.Sales.GetSale)
	route("GET "+APIPrefix+"/sales/{id}/items", h.Sales.SaleItems)

	// Reports
	route("GET "+APIPrefix+"/reports/summary", h.Reports.Summary, staff...)
	route("GET "+APIPrefix+"/reports/top-products", h.Reports.TopProducts, staff...)
	route("GET "+APIPrefix+"/reports/stock-movement", h.Reports.StockMovement, staff...)
	route("GET "+APIPrefix+"/reports/sales/export", h.Reports.ExportSales, staff...)
	route("POST "+APIPrefix+"/reports/sales/export", h.Reports.RequestSalesExport, staff...)
	route("GET "+APIPrefix+"/reports/sales/export/{id}", h.Reports.ExportStatus, staff...)

	// Delivery note imports
	if h.Imports != nil {
		route("POST "+APIPrefix+"/imports/receipts", h.Imports.ImportReceipt, staff...)
		route("GET "+APIPrefix+"/imports/receipts/{id}", h.Imports.ImportStatus, staff...)
	}

	chain := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.ClientIP(cfg.Security.TrustedProxies),
		middleware.Logger(log),
		middleware.Recovery(log.Logger),
	}
	if len(cfg.Security.AllowedOrigins) > 0 {
		chain = append(chain, middleware.CORS(cfg.Security.AllowedOrigins))
	}
	if cfg.Security.SecureHeaders {
		chain = append(chain, middleware.SecureHeaders)
	}
	if cfg.Security.RateLimitRequests > 0 {
		duration := cfg.Security.RateLimitDuration
		if duration <= 0 {
			duration = time.Minute
		}
		chain = append(chain, middleware.RateLimit(cfg.Security.RateLimitRequests, duration))
	}
	if cfg.Server.WriteTimeout > 0 {
		chain = append(chain, middleware.Timeout(cfg.Server.WriteTimeout))
	}
	chain = append(chain, middleware.Compression)

	return middleware.Chain(mux, chain...)
}
