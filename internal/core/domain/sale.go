// internal/core/domain/sale.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a sale was paid
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentEWallet  PaymentMethod = "e_wallet"
)

// IsValid reports whether m is an accepted payment method
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentEWallet:
		return true
	}
	return false
}

// MaxIdempotencyKeyLength bounds client supplied idempotency keys
const MaxIdempotencyKeyLength = 128

// MoneyScale is the number of decimal places stored for every amount
const MoneyScale = 2

// isMoney reports whether d fits the stored scale without rounding
func isMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// Sale is a committed sale header with its line items
type Sale struct {
	ID             uuid.UUID       `json:"id"`
	CashierID      uuid.UUID       `json:"cashier_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	CashTendered   decimal.Decimal `json:"cash_tendered"`
	ChangeAmount   decimal.Decimal `json:"change_amount"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	IdempotencyKey string          `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	Items          []SaleItem      `json:"items"`
}

// SaleItem is a line of a committed sale. Name, unit and price are snapshots
// taken when the cart was built and never change afterwards.
type SaleItem struct {
	ID            uuid.UUID       `json:"id"`
	SaleID        uuid.UUID       `json:"sale_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// CartItem is a cart line carrying the catalog snapshot chosen at the till
type CartItem struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
}

// Subtotal is unit price times quantity
func (c CartItem) Subtotal() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// CommitSaleRequest is everything needed to commit a sale
type CommitSaleRequest struct {
	CashierID      uuid.UUID
	Items          []CartItem
	TotalAmount    decimal.Decimal
	CashTendered   decimal.Decimal
	ChangeAmount   decimal.Decimal
	PaymentMethod  PaymentMethod
	IdempotencyKey string
}

// Validate runs every check that must pass before the commit writes anything
func (r *CommitSaleRequest) Validate() error {
	if len(r.Items) == 0 {
		return NewValidationError("items", "empty cart")
	}
	if r.CashierID == uuid.Nil {
		return NewValidationError("cashier_id", "is required")
	}
	if !r.PaymentMethod.IsValid() {
		return NewValidationError("payment_method", fmt.Sprintf("unrecognized payment method %q", r.PaymentMethod))
	}
	if len(r.IdempotencyKey) > MaxIdempotencyKeyLength {
		return NewValidationError("idempotency_key", fmt.Sprintf("must be at most %d characters", MaxIdempotencyKeyLength))
	}

	sum := decimal.Zero
	for i, item := range r.Items {
		field := fmt.Sprintf("items[%d]", i)
		if item.ProductID == uuid.Nil {
			return NewValidationError(field+".product_id", "is required")
		}
		if item.Quantity <= 0 {
			return NewValidationError(field+".quantity", "quantity must be positive")
		}
		if strings.TrimSpace(item.ProductName) == "" {
			return NewValidationError(field+".product_name", "is required")
		}
		if item.UnitPrice.IsNegative() {
			return NewValidationError(field+".unit_price", "cannot be negative")
		}
		if !isMoney(item.UnitPrice) {
			return NewValidationError(field+".unit_price", fmt.Sprintf("must have at most %d decimal places", MoneyScale))
		}
		sum = sum.Add(item.Subtotal())
	}

	for field, amount := range map[string]decimal.Decimal{
		"total_amount":  r.TotalAmount,
		"cash_tendered": r.CashTendered,
		"change_amount": r.ChangeAmount,
	} {
		if !isMoney(amount) {
			return NewValidationError(field, fmt.Sprintf("must have at most %d decimal places", MoneyScale))
		}
	}

	if !r.TotalAmount.Equal(sum) {
		return NewValidationError("total_amount", fmt.Sprintf("does not match item subtotals (%s)", sum.StringFixed(2)))
	}

	if r.PaymentMethod == PaymentCash {
		if r.CashTendered.LessThan(r.TotalAmount) {
			return NewValidationError("cash_tendered", "is less than total amount")
		}
		if !r.ChangeAmount.Equal(r.CashTendered.Sub(r.TotalAmount)) {
			return NewValidationError("change_amount", "must equal cash tendered minus total amount")
		}
	} else if r.CashTendered.IsNegative() || r.ChangeAmount.IsNegative() {
		return NewValidationError("cash_tendered", "cannot be negative")
	}
	return nil
}

// NewSale builds an unsaved sale from a validated request. Subtotals are
// computed here once and stored as written.
func NewSale(r *CommitSaleRequest) *Sale {
	sale := &Sale{
		CashierID:      r.CashierID,
		TotalAmount:    r.TotalAmount,
		CashTendered:   r.CashTendered,
		ChangeAmount:   r.ChangeAmount,
		PaymentMethod:  r.PaymentMethod,
		IdempotencyKey: r.IdempotencyKey,
		Items:          make([]SaleItem, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		sale.Items = append(sale.Items, SaleItem{
			ProductID:     item.ProductID,
			ProductName:   strings.TrimSpace(item.ProductName),
			UnitOfMeasure: unitOrDefault(item.UnitOfMeasure),
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			Subtotal:      item.Subtotal(),
		})
	}
	return sale
}

// ItemCount is the number of units sold
func (s *Sale) ItemCount() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

// ProductIDs returns the distinct products in the sale, in item order
func (s *Sale) ProductIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(s.Items))
	ids := make([]uuid.UUID, 0, len(s.Items))
	for _, item := range s.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// NewSaleDeduction is the out transaction recorded for one sold line
func NewSaleDeduction(saleID, cashierID uuid.UUID, item SaleItem) *InventoryTransaction {
	id := saleID
	return &InventoryTransaction{
		ProductID: item.ProductID,
		Type:      TransactionOut,
		Quantity:  item.Quantity,
		ActorID:   cashierID,
		Notes:     SaleNotes(saleID),
		SaleID:    &id,
	}
}

func unitOrDefault(unit string) string {
	if strings.TrimSpace(unit) == "" {
		return DefaultUnitOfMeasure
	}
	return unit
}
