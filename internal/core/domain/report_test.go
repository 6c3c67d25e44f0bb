package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockledger/internal/core/domain"
)

func TestNewDateRange(t *testing.T) {
	loc := time.FixedZone("ICT", 7*60*60)
	now := time.Date(2024, 3, 15, 22, 30, 0, 0, time.UTC) // 2024-03-16 05:30 local

	tests := []struct {
		name      string
		from, to  string
		wantStart time.Time
		wantEnd   time.Time
		wantError string
	}{
		{
			name:      "defaults_to_today_in_location",
			wantStart: time.Date(2024, 3, 16, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 3, 17, 0, 0, 0, 0, loc),
		},
		{
			name:      "inclusive_of_both_days",
			from:      "2024-03-01",
			to:        "2024-03-10",
			wantStart: time.Date(2024, 3, 1, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 3, 11, 0, 0, 0, 0, loc),
		},
		{
			name:      "single_day",
			from:      "2024-02-29",
			to:        "2024-02-29",
			wantStart: time.Date(2024, 2, 29, 0, 0, 0, 0, loc),
			wantEnd:   time.Date(2024, 3, 1, 0, 0, 0, 0, loc),
		},
		{
			name:      "bad_from",
			from:      "03/01/2024",
			wantError: "from",
		},
		{
			name:      "reversed",
			from:      "2024-03-10",
			to:        "2024-03-01",
			wantError: "must not be before from",
		},
		{
			name:      "too_long",
			from:      "2022-01-01",
			to:        "2024-01-01",
			wantError: "range exceeds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := domain.NewDateRange(tt.from, tt.to, loc, now)
			if tt.wantError != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrValidation))
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(r.Start()), "start %s", r.Start())
			assert.True(t, tt.wantEnd.Equal(r.End()), "end %s", r.End())
		})
	}
}

func TestDateRange_ContainsAndClosed(t *testing.T) {
	r, err := domain.NewDateRange("2024-03-01", "2024-03-02", time.UTC, time.Now())
	require.NoError(t, err)

	assert.True(t, r.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2024, 3, 2, 23, 59, 59, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)))

	assert.False(t, r.ClosedBefore(time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)))
	assert.True(t, r.ClosedBefore(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-01_2024-03-02", r.Key())
}

func TestNewSalesSummary(t *testing.T) {
	r, err := domain.NewDateRange("2024-03-01", "2024-03-01", time.UTC, time.Now())
	require.NoError(t, err)

	empty := domain.NewSalesSummary(r, decimal.Zero, 0, 0)
	assert.True(t, empty.AverageSale.IsZero())
	assert.Equal(t, "2024-03-01", empty.From)

	summary := domain.NewSalesSummary(r, decimal.RequireFromString("100.00"), 3, 7)
	assert.True(t, summary.AverageSale.Equal(decimal.RequireFromString("33.33")))
	assert.Equal(t, int64(7), summary.ItemsSold)
}

func TestDailyMovement_Net(t *testing.T) {
	d := domain.DailyMovement{QuantityIn: 100, QuantityOut: 30, NetAdjustments: -3}
	assert.Equal(t, int64(67), d.Net())
}

func TestErrors(t *testing.T) {
	cause := errors.New("connection reset")
	commitErr := &domain.CommitError{Err: cause}

	assert.True(t, errors.Is(commitErr, domain.ErrCommitFailed))
	assert.True(t, errors.Is(commitErr, cause))
	assert.True(t, domain.IsNotFound(domain.NewNotFoundError("product", "abc")))
	assert.Equal(t, "product not found: abc", domain.NewNotFoundError("product", "abc").Error())
	assert.Equal(t, "empty cart", domain.NewValidationError("", "empty cart").Error())
}
