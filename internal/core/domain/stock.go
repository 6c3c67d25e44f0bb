// internal/core/domain/stock.go
package domain

import (
	"sort"

	"github.com/google/uuid"
)

// StockStatus classifies a stock level against its reorder threshold
type StockStatus string

const (
	StatusInStock    StockStatus = "in_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusOutOfStock StockStatus = "out_of_stock"
	// StatusOversold means more was sold than was recorded in stock.
	StatusOversold StockStatus = "oversold"
)

// StockLevel is the derived stock of one product. It is computed on every
// read and never stored.
type StockLevel struct {
	ProductID     uuid.UUID   `json:"product_id"`
	SKU           string      `json:"sku"`
	Name          string      `json:"name"`
	UnitOfMeasure string      `json:"unit_of_measure"`
	CurrentStock  int64       `json:"current_stock"`
	ReorderLevel  int         `json:"reorder_level"`
	IsLowStock    bool        `json:"is_low_stock"`
	IsOutOfStock  bool        `json:"is_out_of_stock"`
	Status        StockStatus `json:"status"`
}

// IsLowStock is inclusive: stock equal to the reorder level is low
func IsLowStock(stock int64, reorderLevel int) bool {
	return stock <= int64(reorderLevel)
}

// IsOutOfStock reports stock at or below zero
func IsOutOfStock(stock int64) bool {
	return stock <= 0
}

// ClassifyStock returns the status for a stock figure
func ClassifyStock(stock int64, reorderLevel int) StockStatus {
	switch {
	case stock < 0:
		return StatusOversold
	case stock == 0:
		return StatusOutOfStock
	case IsLowStock(stock, reorderLevel):
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// NewStockLevel builds a classified stock level
func NewStockLevel(productID uuid.UUID, sku, name, unit string, stock int64, reorderLevel int) StockLevel {
	return StockLevel{
		ProductID:     productID,
		SKU:           sku,
		Name:          name,
		UnitOfMeasure: unit,
		CurrentStock:  stock,
		ReorderLevel:  reorderLevel,
		IsLowStock:    IsLowStock(stock, reorderLevel),
		IsOutOfStock:  IsOutOfStock(stock),
		Status:        ClassifyStock(stock, reorderLevel),
	}
}

// IsUrgent reports levels that need attention now
func (s StockLevel) IsUrgent() bool {
	return s.Status == StatusOutOfStock || s.Status == StatusOversold
}

// FoldStock computes stock as Σin + Σadjustment − Σout, with adjustments
// signed by their direction.
func FoldStock(txns []InventoryTransaction) int64 {
	var stock int64
	for i := range txns {
		stock += txns[i].Delta()
	}
	return stock
}

// FilterLowStock keeps low stock levels ordered most urgent first
func FilterLowStock(levels []StockLevel) []StockLevel {
	low := make([]StockLevel, 0, len(levels))
	for _, l := range levels {
		if l.IsLowStock {
			low = append(low, l)
		}
	}
	SortByUrgency(low)
	return low
}

// SortByUrgency orders by ascending stock, then SKU
func SortByUrgency(levels []StockLevel) {
	sort.SliceStable(levels, func(i, j int) bool {
		if levels[i].CurrentStock != levels[j].CurrentStock {
			return levels[i].CurrentStock < levels[j].CurrentStock
		}
		return levels[i].SKU < levels[j].SKU
	})
}
