package workers_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/pkg/config"
	"github.com/ammerola/stockledger/internal/workers"
	"github.com/ammerola/stockledger/test/helpers"
	"github.com/ammerola/stockledger/test/mocks"
)

func TestRedisOpt(t *testing.T) {
	opt := workers.RedisOpt(config.AsynqConfig{RedisAddr: "redis:6379", RedisPassword: "pw", RedisDB: 2})

	assert.Equal(t, asynq.RedisClientOpt{Addr: "redis:6379", Password: "pw", DB: 2}, opt)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		retry    int
		expected time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{5, 32 * time.Second},
		{10, 10 * time.Minute},
		{64, 10 * time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, workers.ExponentialBackoff(tt.retry, nil, nil), "retry %d", tt.retry)
	}
}

func TestNewServeMux_RoutesRegisteredTasks(t *testing.T) {
	ctrl := gomock.NewController(t)
	stock := mocks.NewMockStockService(ctrl)
	productID := uuid.New()
	stock.EXPECT().StockLevelsFor(gomock.Any(), []uuid.UUID{productID}).
		Return([]domain.StockLevel{domain.NewStockLevel(productID, "RICE-5KG", "Rice", "bag", 50, 10)}, nil)

	mux := workers.NewServeMux(workers.Processors{
		LowStock: workers.NewLowStockProcessor(stock, nil, time.Hour, helpers.TestLogger()),
	}, helpers.TestLogger())

	assert.NoError(t, mux.ProcessTask(context.Background(), lowStockTask(t, productID)))

	// unregistered processors are not routed
	err := mux.ProcessTask(context.Background(), asynq.NewTask(workers.TypeSalesExport, nil))
	assert.Error(t, err)
}
