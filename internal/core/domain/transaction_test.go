package domain_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockledger/internal/core/domain"
)

func TestInventoryTransaction_Validate(t *testing.T) {
	productID := uuid.New()
	actorID := uuid.New()

	tests := []struct {
		name      string
		txn       *domain.InventoryTransaction
		wantError bool
		errorMsg  string
	}{
		{
			name: "valid_stock_in",
			txn: &domain.InventoryTransaction{
				ProductID: productID, Type: domain.TransactionIn, Quantity: 100, ActorID: actorID,
			},
		},
		{
			name: "valid_decrease_adjustment",
			txn: &domain.InventoryTransaction{
				ProductID: productID, Type: domain.TransactionAdjustment, Direction: domain.DirectionDecrease,
				Quantity: 3, ActorID: actorID, Notes: "damaged",
			},
		},
		{
			name: "missing_product",
			txn: &domain.InventoryTransaction{
				Type: domain.TransactionIn, Quantity: 1, ActorID: actorID,
			},
			wantError: true,
			errorMsg:  "product_id: is required",
		},
		{
			name: "unknown_type",
			txn: &domain.InventoryTransaction{
				ProductID: productID, Type: "transfer", Quantity: 1, ActorID: actorID,
			},
			wantError: true,
			errorMsg:  "unrecognized type",
		},
		{
			name: "zero_quantity",
			txn: &domain.InventoryTransaction{
				ProductID: productID, Type: domain.TransactionOut, Quantity: 0, ActorID: actorID,
			},
			wantError: true,
			errorMsg:  "quantity: must be positive",
		},
		{
			name: "negative_quantity",
			txn: &domain.InventoryTransaction{
				ProductID: productID, Type: domain.TransactionAdjustment, Quantity: -3, ActorID: actorID,
			},
			wantError: true,
			errorMsg:  "quantity: must be positive",
		},
		{
			name: "missing_actor",
			txn: &domain.InventoryTransaction{
				ProductID: productID, Type: domain.TransactionIn, Quantity: 1,
			},
			wantError: true,
			errorMsg:  "actor_id: is required",
		},
		{
			name: "direction_on_stock_in",
			txn: &domain.InventoryTransaction{
				ProductID: productID, Type: domain.TransactionIn, Direction: domain.DirectionIncrease,
				Quantity: 1, ActorID: actorID,
			},
			wantError: true,
			errorMsg:  "only applies to adjustments",
		},
		{
			name: "unknown_direction",
			txn: &domain.InventoryTransaction{
				ProductID: productID, Type: domain.TransactionAdjustment, Direction: "sideways",
				Quantity: 1, ActorID: actorID,
			},
			wantError: true,
			errorMsg:  "unrecognized direction",
		},
		{
			name: "notes_too_long",
			txn: &domain.InventoryTransaction{
				ProductID: productID, Type: domain.TransactionIn, Quantity: 1, ActorID: actorID,
				Notes: strings.Repeat("x", domain.MaxNotesLength+1),
			},
			wantError: true,
			errorMsg:  "notes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.txn.Validate()
			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.True(t, domain.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInventoryTransaction_PrepareForStorage(t *testing.T) {
	txn := &domain.InventoryTransaction{Type: domain.TransactionAdjustment, Notes: "  recount  "}
	txn.PrepareForStorage()

	assert.Equal(t, domain.DirectionIncrease, txn.Direction)
	assert.Equal(t, "recount", txn.Notes)

	out := &domain.InventoryTransaction{Type: domain.TransactionOut}
	out.PrepareForStorage()
	assert.Empty(t, out.Direction)
}

func TestInventoryTransaction_Delta(t *testing.T) {
	tests := []struct {
		name     string
		txn      domain.InventoryTransaction
		expected int64
	}{
		{"stock_in", domain.InventoryTransaction{Type: domain.TransactionIn, Quantity: 10}, 10},
		{"stock_out", domain.InventoryTransaction{Type: domain.TransactionOut, Quantity: 4}, -4},
		{"adjustment_default_increase", domain.InventoryTransaction{Type: domain.TransactionAdjustment, Quantity: 2}, 2},
		{"adjustment_decrease", domain.InventoryTransaction{Type: domain.TransactionAdjustment, Direction: domain.DirectionDecrease, Quantity: 3}, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.txn.Delta())
			assert.Equal(t, tt.expected < 0, tt.txn.LowersStock())
		})
	}
}

func TestReceiptLine_Validate(t *testing.T) {
	assert.NoError(t, domain.ReceiptLine{SKU: "SKU-1", Quantity: 5}.Validate())
	assert.Error(t, domain.ReceiptLine{SKU: " ", Quantity: 5}.Validate())
	assert.Error(t, domain.ReceiptLine{SKU: "SKU-1", Quantity: 0}.Validate())
}

func TestSaleNotes(t *testing.T) {
	id := uuid.MustParse("0b5b8a0e-6c55-4d8f-9a3e-2f4d5c6b7a81")
	assert.Equal(t, "Sale #0b5b8a0e-6c55-4d8f-9a3e-2f4d5c6b7a81", domain.SaleNotes(id))
}
