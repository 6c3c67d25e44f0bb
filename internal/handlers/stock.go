// internal/handlers/stock.go
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// StockHandler serves derived stock levels. Nothing here is cached.
type StockHandler struct {
	stock  ports.StockService
	logger *slog.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(stock ports.StockService, logger *slog.Logger) *StockHandler {
	return &StockHandler{
		stock:  stock,
		logger: logger.With(slog.String("handler", "stock")),
	}
}

// StockListResponse wraps a list of stock levels
type StockListResponse struct {
	Products []domain.StockLevel `json:"products"`
	Count    int                 `json:"count"`
	Urgent   int                 `json:"urgent"`
}

func newStockListResponse(levels []domain.StockLevel) StockListResponse {
	resp := StockListResponse{Products: nonNil(levels), Count: len(levels)}
	for _, l := range levels {
		if l.IsUrgent() {
			resp.Urgent++
		}
	}
	return resp
}

// GetProductStock handles GET /api/v1/products/{id}/stock
func (h *StockHandler) GetProductStock(w http.ResponseWriter, r *http.Request) {
	productID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	level, err := h.stock.StockLevel(r.Context(), productID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, level)
}

// ListStock handles GET /api/v1/stock
func (h *StockHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	levels, err := h.stock.AllStockLevels(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, newStockListResponse(levels))
}

// ListLowStock handles GET /api/v1/stock/low
func (h *StockHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	levels, err := h.stock.LowStockProducts(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, newStockListResponse(levels))
}
