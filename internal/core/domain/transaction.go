// internal/core/domain/transaction.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType is the kind of stock movement
type TransactionType string

const (
	TransactionIn         TransactionType = "in"
	TransactionOut        TransactionType = "out"
	TransactionAdjustment TransactionType = "adjustment"
)

// IsValid reports whether t is one of the known movement kinds
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionIn, TransactionOut, TransactionAdjustment:
		return true
	}
	return false
}

// Direction is the sign of an adjustment. Quantities are always positive.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// IsValid reports whether d is a known direction
func (d Direction) IsValid() bool {
	return d == DirectionIncrease || d == DirectionDecrease
}

// MaxNotesLength bounds free-text notes on a transaction
const MaxNotesLength = 500

// InventoryTransaction is an immutable stock movement. Rows are only ever
// appended; corrections are new adjustment rows.
type InventoryTransaction struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Type      TransactionType `json:"transaction_type"`
	Direction Direction       `json:"direction,omitempty"`
	Quantity  int             `json:"quantity"`
	ActorID   uuid.UUID       `json:"actor_id"`
	Notes     string          `json:"notes,omitempty"`
	SaleID    *uuid.UUID      `json:"sale_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// TransactionView is a transaction joined with display names for presentation
type TransactionView struct {
	InventoryTransaction
	ProductSKU  string `json:"product_sku"`
	ProductName string `json:"product_name"`
	ActorName   string `json:"actor_name"`
}

// Validate checks the append preconditions
func (t *InventoryTransaction) Validate() error {
	if t.ProductID == uuid.Nil {
		return NewValidationError("product_id", "is required")
	}
	if !t.Type.IsValid() {
		return NewValidationError("transaction_type", fmt.Sprintf("unrecognized type %q", t.Type))
	}
	if t.Quantity <= 0 {
		return NewValidationError("quantity", "must be positive")
	}
	if t.ActorID == uuid.Nil {
		return NewValidationError("actor_id", "is required")
	}
	if t.Type == TransactionAdjustment {
		if t.Direction != "" && !t.Direction.IsValid() {
			return NewValidationError("direction", fmt.Sprintf("unrecognized direction %q", t.Direction))
		}
	} else if t.Direction != "" {
		return NewValidationError("direction", "only applies to adjustments")
	}
	if len(t.Notes) > MaxNotesLength {
		return NewValidationError("notes", fmt.Sprintf("must be at most %d characters", MaxNotesLength))
	}
	return nil
}

// PrepareForStorage normalizes fields before insert
func (t *InventoryTransaction) PrepareForStorage() {
	if t.Type == TransactionAdjustment && t.Direction == "" {
		t.Direction = DirectionIncrease
	}
	t.Notes = strings.TrimSpace(t.Notes)
}

// Delta is the signed effect of the transaction on stock
func (t *InventoryTransaction) Delta() int64 {
	q := int64(t.Quantity)
	switch t.Type {
	case TransactionIn:
		return q
	case TransactionOut:
		return -q
	case TransactionAdjustment:
		if t.Direction == DirectionDecrease {
			return -q
		}
		return q
	}
	return 0
}

// LowersStock reports whether appending t can move a product towards reorder
func (t *InventoryTransaction) LowersStock() bool {
	return t.Delta() < 0
}

// SaleNotes is the note written on deductions created by a sale commit
func SaleNotes(saleID uuid.UUID) string {
	return fmt.Sprintf("Sale #%s", saleID)
}

// ReceiptLine is one line of a supplier delivery note
type ReceiptLine struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

// Validate checks a receipt line
func (l ReceiptLine) Validate() error {
	if strings.TrimSpace(l.SKU) == "" {
		return NewValidationError("sku", "is required")
	}
	if l.Quantity <= 0 {
		return NewValidationError("quantity", "must be positive")
	}
	return nil
}
