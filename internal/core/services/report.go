// internal/core/services/report.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

const (
	DefaultTopProducts = 10
	MaxTopProducts     = 100
	DefaultPageSize    = 50
	MaxPageSize        = 100

	reportCachePrefix = "report"
)

// ReportService aggregates sales and movement history. Figures for ranges
// that have fully elapsed are cached since history is append-only.
type ReportService struct {
	reports  ports.ReportRepository
	sales    ports.SaleRepository
	cache    ports.CacheRepository
	cacheTTL time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

var _ ports.ReportService = (*ReportService)(nil)

// NewReportService creates a new report service. cache may be nil.
func NewReportService(reports ports.ReportRepository, sales ports.SaleRepository,
	cache ports.CacheRepository, cacheTTL time.Duration, logger *slog.Logger) *ReportService {
	return &ReportService{
		reports:  reports,
		sales:    sales,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      time.Now,
		logger:   logger.With(slog.String("service", "report")),
	}
}

// WithClock replaces the clock used to decide whether a range is closed
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// Summary returns revenue, count, average sale and items sold for the range
func (s *ReportService) Summary(ctx context.Context, r domain.DateRange) (*domain.SalesSummary, error) {
	fetch := func() (interface{}, error) {
		return s.reports.Summary(ctx, r)
	}

	var summary domain.SalesSummary
	cached, err := s.cached(ctx, r, cacheKey("summary", r), &summary, fetch)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sales summary: %w", err)
	}
	if cached {
		return &summary, nil
	}

	result, err := s.reports.Summary(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sales summary: %w", err)
	}
	return result, nil
}

// TopProducts returns best sellers by quantity for the range
func (s *ReportService) TopProducts(ctx context.Context, r domain.DateRange, limit int) ([]domain.TopProduct, error) {
	if limit <= 0 {
		limit = DefaultTopProducts
	}
	if limit > MaxTopProducts {
		limit = MaxTopProducts
	}

	fetch := func() (interface{}, error) {
		return s.reports.TopProducts(ctx, r, limit)
	}

	var top []domain.TopProduct
	cached, err := s.cached(ctx, r, cacheKey(fmt.Sprintf("top:%d", limit), r), &top, fetch)
	if err != nil {
		return nil, fmt.Errorf("failed to compute top products: %w", err)
	}
	if cached {
		return top, nil
	}

	top, err = s.reports.TopProducts(ctx, r, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compute top products: %w", err)
	}
	return top, nil
}

// ListSales returns one page of sale headers, newest first
func (s *ReportService) ListSales(ctx context.Context, params ports.SaleListParams) (*ports.SaleListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = DefaultPageSize
	}
	if params.PageSize > MaxPageSize {
		params.PageSize = MaxPageSize
	}
	if params.PaymentMethod != "" && !params.PaymentMethod.IsValid() {
		return nil, domain.NewValidationError("payment_method", fmt.Sprintf("unrecognized payment method %q", params.PaymentMethod))
	}

	sales, total, err := s.sales.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	totalPages := int(total) / params.PageSize
	if int(total)%params.PageSize > 0 {
		totalPages++
	}

	return &ports.SaleListResult{
		Sales:      sales,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

// SaleItems returns the lines of one sale. FindByID already loads them.
func (s *ReportService) SaleItems(ctx context.Context, saleID uuid.UUID) ([]domain.SaleItem, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	if sale == nil {
		return nil, domain.NewNotFoundError("sale", saleID.String())
	}
	if sale.Items == nil {
		return []domain.SaleItem{}, nil
	}
	return sale.Items, nil
}

// StockMovement returns per-day stock in, out and net adjustments
func (s *ReportService) StockMovement(ctx context.Context, r domain.DateRange) ([]domain.DailyMovement, error) {
	days, err := s.reports.DailyMovement(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stock movement: %w", err)
	}
	return days, nil
}

// ExportSales returns flattened sale lines for the range
func (s *ReportService) ExportSales(ctx context.Context, r domain.DateRange) ([]domain.SaleExportRow, error) {
	rows, err := s.reports.SalesForExport(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales for export: %w", err)
	}
	return rows, nil
}

// cached serves closed ranges from the cache. It reports false when the
// caller has to compute the value live.
func (s *ReportService) cached(ctx context.Context, r domain.DateRange, key string, dest interface{},
	fetch func() (interface{}, error)) (bool, error) {
	if s.cache == nil || !r.ClosedBefore(s.now()) {
		return false, nil
	}

	var fetchErr error
	err := s.cache.GetOrSet(ctx, key, dest, func() (interface{}, error) {
		v, err := fetch()
		fetchErr = err
		return v, err
	}, s.cacheTTL)
	if fetchErr != nil {
		return false, fetchErr
	}
	if err != nil {
		s.logger.WarnContext(ctx, "report cache unavailable, computing live",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return false, nil
	}
	return true, nil
}

func cacheKey(report string, r domain.DateRange) string {
	loc := "UTC"
	if r.Location != nil {
		loc = r.Location.String()
	}
	return fmt.Sprintf("%s:%s:%s:%s", reportCachePrefix, report, loc, r.Key())
}
