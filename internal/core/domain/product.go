// internal/core/domain/product.go
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultUnitOfMeasure is used when the catalog leaves the unit empty
const DefaultUnitOfMeasure = "pcs"

// Product is a sellable catalog item. The catalog owns it; the ledger only
// reads existence, reorder level and, at cart-build time, the snapshot fields.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	ReorderLevel  int             `json:"reorder_level"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Validate checks the fields the ledger depends on
func (p *Product) Validate() error {
	if strings.TrimSpace(p.SKU) == "" {
		return NewValidationError("sku", "is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if p.UnitPrice.IsNegative() {
		return NewValidationError("unit_price", "cannot be negative")
	}
	if p.ReorderLevel < 0 {
		return NewValidationError("reorder_level", "cannot be negative")
	}
	return nil
}

// PrepareForStorage fills defaults before insert
func (p *Product) PrepareForStorage() {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.SKU = strings.TrimSpace(p.SKU)
	if p.UnitOfMeasure == "" {
		p.UnitOfMeasure = DefaultUnitOfMeasure
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// CartItem builds a cart line from the current catalog values. This is the
// only place product price, name and unit are read for a sale.
func (p *Product) CartItem(quantity int) CartItem {
	return CartItem{
		ProductID:     p.ID,
		ProductName:   p.Name,
		UnitOfMeasure: p.UnitOfMeasure,
		UnitPrice:     p.UnitPrice,
		Quantity:      quantity,
	}
}
