// internal/core/domain/report.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar day format accepted by report filters
const DateLayout = "2006-01-02"

// MaxReportRange bounds how many days a single report may span
const MaxReportRange = 366

// DateRange is an inclusive range of calendar days in a reporting time zone
type DateRange struct {
	From     time.Time
	To       time.Time
	Location *time.Location
}

// NewDateRange parses two calendar days. Empty values default to today.
func NewDateRange(from, to string, loc *time.Location, now time.Time) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	today := startOfDay(now.In(loc))

	start := today
	if from != "" {
		t, err := time.ParseInLocation(DateLayout, from, loc)
		if err != nil {
			return DateRange{}, NewValidationError("from", fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", from))
		}
		start = t
	}

	end := today
	if to != "" {
		t, err := time.ParseInLocation(DateLayout, to, loc)
		if err != nil {
			return DateRange{}, NewValidationError("to", fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", to))
		}
		end = t
	} else if from != "" && start.After(today) {
		end = start
	}

	if end.Before(start) {
		return DateRange{}, NewValidationError("to", "must not be before from")
	}
	if end.Sub(start) > time.Duration(MaxReportRange)*24*time.Hour {
		return DateRange{}, NewValidationError("to", fmt.Sprintf("range exceeds %d days", MaxReportRange))
	}

	return DateRange{From: start, To: end, Location: loc}, nil
}

// Start is the first instant of the range
func (r DateRange) Start() time.Time {
	return startOfDay(r.From)
}

// End is the first instant after the range (exclusive bound)
func (r DateRange) End() time.Time {
	return startOfDay(r.To).AddDate(0, 0, 1)
}

// Contains reports whether t falls on one of the days in the range
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start()) && t.Before(r.End())
}

// ClosedBefore reports whether the range ended before now, so its figures can
// no longer change.
func (r DateRange) ClosedBefore(now time.Time) bool {
	return !now.Before(r.End())
}

// Key is a stable identifier for the range, used in cache keys and file names
func (r DateRange) Key() string {
	return fmt.Sprintf("%s_%s", r.From.Format(DateLayout), r.To.Format(DateLayout))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SalesSummary is the revenue summary for a range
type SalesSummary struct {
	From             string          `json:"from"`
	To               string          `json:"to"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TransactionCount int64           `json:"transaction_count"`
	AverageSale      decimal.Decimal `json:"average_sale"`
	ItemsSold        int64           `json:"items_sold"`
}

// NewSalesSummary derives the average. No sales yields zero rather than a
// division error.
func NewSalesSummary(r DateRange, revenue decimal.Decimal, count, itemsSold int64) *SalesSummary {
	avg := decimal.Zero
	if count > 0 {
		avg = revenue.DivRound(decimal.NewFromInt(count), 2)
	}
	return &SalesSummary{
		From:             r.From.Format(DateLayout),
		To:               r.To.Format(DateLayout),
		TotalRevenue:     revenue,
		TransactionCount: count,
		AverageSale:      avg,
		ItemsSold:        itemsSold,
	}
}

// TopProduct is one row of the best sellers report
type TopProduct struct {
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// DailyMovement is the stock flow for one calendar day
type DailyMovement struct {
	Day            string `json:"day"`
	QuantityIn     int64  `json:"quantity_in"`
	QuantityOut    int64  `json:"quantity_out"`
	NetAdjustments int64  `json:"net_adjustments"`
}

// Net is the stock change for the day
func (d DailyMovement) Net() int64 {
	return d.QuantityIn - d.QuantityOut + d.NetAdjustments
}

// SaleExportRow is one flattened sale line for spreadsheet export
type SaleExportRow struct {
	SaleID        uuid.UUID       `json:"sale_id"`
	CreatedAt     time.Time       `json:"created_at"`
	CashierName   string          `json:"cashier_name"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	ProductName   string          `json:"product_name"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}
