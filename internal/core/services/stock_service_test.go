// internal/core/services/stock_service_test.go
package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/services"
	"github.com/ammerola/stockledger/test/helpers"
	"github.com/ammerola/stockledger/test/mocks"
)

func TestStockService_CurrentStock(t *testing.T) {
	productID := uuid.New()

	tests := []struct {
		name          string
		setupMocks    func(*mocks.MockStockRepository)
		expectedStock int64
		expectedError error
		errorContains string
	}{
		{
			name: "returns_derived_stock",
			setupMocks: func(m *mocks.MockStockRepository) {
				level := domain.NewStockLevel(productID, "SKU-1", "Rice", "bag", 67, 10)
				m.EXPECT().StockLevel(gomock.Any(), productID).Return(&level, nil)
			},
			expectedStock: 67,
		},
		{
			name: "no_history_is_zero",
			setupMocks: func(m *mocks.MockStockRepository) {
				level := domain.NewStockLevel(productID, "SKU-1", "Rice", "bag", 0, 0)
				m.EXPECT().StockLevel(gomock.Any(), productID).Return(&level, nil)
			},
			expectedStock: 0,
		},
		{
			name: "unknown_product",
			setupMocks: func(m *mocks.MockStockRepository) {
				m.EXPECT().StockLevel(gomock.Any(), productID).Return(nil, nil)
			},
			expectedError: domain.ErrNotFound,
		},
		{
			name: "repository_error",
			setupMocks: func(m *mocks.MockStockRepository) {
				m.EXPECT().StockLevel(gomock.Any(), productID).Return(nil, errors.New("timeout"))
			},
			errorContains: "failed to compute stock level: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockStockRepository(ctrl)
			tt.setupMocks(repo)

			service := services.NewStockService(repo, helpers.TestLogger())
			stock, err := service.CurrentStock(context.Background(), productID)

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
			case tt.errorContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expectedStock, stock)
			}
		})
	}
}

func TestStockService_LowStockProducts(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockStockRepository(ctrl)

	levels := []domain.StockLevel{
		domain.NewStockLevel(uuid.New(), "A", "a", "pcs", -2, 5),
		domain.NewStockLevel(uuid.New(), "B", "b", "pcs", 5, 5),
	}
	repo.EXPECT().LowStock(gomock.Any()).Return(levels, nil)

	service := services.NewStockService(repo, helpers.TestLogger())
	low, err := service.LowStockProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, domain.StatusOversold, low[0].Status)
	assert.True(t, low[1].IsLowStock)
}

func TestStockService_StockLevelsFor(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockStockRepository(ctrl)
	service := services.NewStockService(repo, helpers.TestLogger())

	levels, err := service.StockLevelsFor(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, levels)

	id := uuid.New()
	repo.EXPECT().StockLevelsFor(gomock.Any(), []uuid.UUID{id}).
		Return([]domain.StockLevel{domain.NewStockLevel(id, "A", "a", "pcs", 3, 1)}, nil)

	levels, err = service.StockLevelsFor(context.Background(), []uuid.UUID{id})
	require.NoError(t, err)
	assert.Len(t, levels, 1)
}

func TestStockService_AllStockLevels(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockStockRepository(ctrl)
	repo.EXPECT().StockLevels(gomock.Any()).Return(nil, errors.New("boom"))

	service := services.NewStockService(repo, helpers.TestLogger())
	_, err := service.AllStockLevels(context.Background())
	assert.ErrorContains(t, err, "failed to compute stock levels")
}
