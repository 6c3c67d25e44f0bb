package workers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/workers"
	"github.com/ammerola/stockledger/test/helpers"
	"github.com/ammerola/stockledger/test/mocks"
)

func lowStockTask(t *testing.T, ids ...uuid.UUID) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(workers.LowStockCheckPayload{ProductIDs: ids})
	require.NoError(t, err)
	return asynq.NewTask(workers.TypeLowStockCheck, b)
}

func TestLowStockProcessor_CheckLowStock(t *testing.T) {
	healthy := domain.NewStockLevel(uuid.New(), "RICE-5KG", "Jasmine Rice 5kg", "bag", 40, 10)
	low := domain.NewStockLevel(uuid.New(), "OIL-1L", "Cooking Oil 1L", "bottle", 10, 10)
	oversold := domain.NewStockLevel(uuid.New(), "SUGAR-1KG", "Sugar 1kg", "pack", -3, 5)

	tests := []struct {
		name          string
		levels        []domain.StockLevel
		setupCache    func(*mocks.MockCacheRepository)
		stockErr      error
		expectedError bool
	}{
		{
			name:   "alerts_low_and_oversold_products",
			levels: []domain.StockLevel{healthy, low, oversold},
			setupCache: func(c *mocks.MockCacheRepository) {
				c.EXPECT().
					Claim(gomock.Any(), "alert:low_stock:"+low.ProductID.String()+":low_stock", int64(10), 6*time.Hour).
					Return(true, nil)
				c.EXPECT().
					Claim(gomock.Any(), "alert:low_stock:"+oversold.ProductID.String()+":oversold", int64(-3), 6*time.Hour).
					Return(true, nil)
			},
		},
		{
			name:   "suppresses_repeat_alert_within_window",
			levels: []domain.StockLevel{low},
			setupCache: func(c *mocks.MockCacheRepository) {
				c.EXPECT().Claim(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
			},
		},
		{
			name:   "alerts_when_cache_unavailable",
			levels: []domain.StockLevel{oversold},
			setupCache: func(c *mocks.MockCacheRepository) {
				c.EXPECT().Claim(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(false, errors.New("connection refused"))
			},
		},
		{
			name:          "stock_failure_is_retried",
			stockErr:      errors.New("database is down"),
			setupCache:    func(*mocks.MockCacheRepository) {},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			stock := mocks.NewMockStockService(ctrl)
			cache := mocks.NewMockCacheRepository(ctrl)

			ids := []uuid.UUID{healthy.ProductID, low.ProductID, oversold.ProductID}
			stock.EXPECT().StockLevelsFor(gomock.Any(), ids).Return(tt.levels, tt.stockErr)
			tt.setupCache(cache)

			processor := workers.NewLowStockProcessor(stock, cache, 6*time.Hour, helpers.TestLogger())
			err := processor.CheckLowStock(context.Background(), lowStockTask(t, ids...))

			if tt.expectedError {
				require.Error(t, err)
				assert.NotErrorIs(t, err, asynq.SkipRetry)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLowStockProcessor_BadPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	processor := workers.NewLowStockProcessor(mocks.NewMockStockService(ctrl), nil, time.Hour, helpers.TestLogger())

	err := processor.CheckLowStock(context.Background(), asynq.NewTask(workers.TypeLowStockCheck, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestLowStockProcessor_NoCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	stock := mocks.NewMockStockService(ctrl)
	level := domain.NewStockLevel(uuid.New(), "SALT-500G", "Salt 500g", "pack", 0, 0)
	stock.EXPECT().StockLevelsFor(gomock.Any(), []uuid.UUID{level.ProductID}).Return([]domain.StockLevel{level}, nil)

	processor := workers.NewLowStockProcessor(stock, nil, time.Hour, helpers.TestLogger())
	assert.NoError(t, processor.CheckLowStock(context.Background(), lowStockTask(t, level.ProductID)))
}
