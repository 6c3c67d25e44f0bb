// internal/handlers/sales.go
package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// IdempotencyKeyHeader lets a till retry a sale without committing it twice
const IdempotencyKeyHeader = "Idempotency-Key"

// SaleHandler handles sale commit and lookup requests
type SaleHandler struct {
	sales   ports.SaleService
	reports ports.ReportService
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
}

// NewSaleHandler creates a new sale handler. loc is the reporting time zone
// used for the date filters of the sale list.
func NewSaleHandler(sales ports.SaleService, reports ports.ReportService, loc *time.Location, logger *slog.Logger) *SaleHandler {
	return &SaleHandler{
		sales:   sales,
		reports: reports,
		loc:     loc,
		now:     time.Now,
		logger:  logger.With(slog.String("handler", "sale")),
	}
}

// CartItemRequest is one cart line with the snapshot chosen at the till
type CartItemRequest struct {
	ProductID     uuid.UUID       `json:"product_id" validate:"required"`
	ProductName   string          `json:"product_name" validate:"required,max=200"`
	UnitOfMeasure string          `json:"unit_of_measure" validate:"max=50"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity" validate:"gt=0"`
}

// CommitSaleRequest is the body of POST /api/v1/sales. An empty cart is
// rejected by the domain check so the message stays "empty cart".
type CommitSaleRequest struct {
	Items         []CartItemRequest `json:"items" validate:"dive"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	CashTendered  decimal.Decimal   `json:"cash_tendered"`
	ChangeAmount  decimal.Decimal   `json:"change_amount"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=cash card transfer e_wallet"`
}

// ToDomain converts the request for the given cashier
func (req *CommitSaleRequest) ToDomain(cashierID uuid.UUID, idempotencyKey string) *domain.CommitSaleRequest {
	items := make([]domain.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.CartItem{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			UnitOfMeasure: item.UnitOfMeasure,
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
		})
	}
	return &domain.CommitSaleRequest{
		CashierID:      cashierID,
		Items:          items,
		TotalAmount:    req.TotalAmount,
		CashTendered:   req.CashTendered,
		ChangeAmount:   req.ChangeAmount,
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
	}
}

// CommitSale handles POST /api/v1/sales
func (h *SaleHandler) CommitSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	var req CommitSaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	sale, err := h.sales.CommitSale(ctx, req.ToDomain(actor.ID, r.Header.Get(IdempotencyKeyHeader)))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/api/v1/sales/"+sale.ID.String())
	respondJSON(w, http.StatusCreated, sale)
}

// GetSale handles GET /api/v1/sales/{id}
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	sale, err := h.sales.GetSale(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, sale)
}

// SaleItems handles GET /api/v1/sales/{id}/items
func (h *SaleHandler) SaleItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	items, err := h.reports.SaleItems(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sale_id": id,
		"items":   nonNil(items),
		"count":   len(items),
	})
}

// ListSales handles GET /api/v1/sales
func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseListParams(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	result, err := h.reports.ListSales(r.Context(), params)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	result.Sales = nonNil(result.Sales)

	respondJSON(w, http.StatusOK, result)
}

func (h *SaleHandler) parseListParams(r *http.Request) (ports.SaleListParams, error) {
	var params ports.SaleListParams
	var err error

	if params.Range, err = dateRange(r, h.loc, h.now()); err != nil {
		return params, err
	}
	if params.Page, err = queryInt(r, "page", 1); err != nil {
		return params, err
	}
	if params.PageSize, err = queryInt(r, "page_size", 0); err != nil {
		return params, err
	}

	q := r.URL.Query()
	if raw := q.Get("cashier_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return params, domain.NewValidationError("cashier_id", "must be a UUID")
		}
		params.CashierID = &id
	}
	params.PaymentMethod = domain.PaymentMethod(q.Get("payment_method"))

	return params, nil
}
