// internal/handlers/transactions.go
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
)

// LedgerHandler handles transaction store requests
type LedgerHandler struct {
	ledger ports.LedgerService
	logger *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledger ports.LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger: ledger,
		logger: logger.With(slog.String("handler", "ledger")),
	}
}

// AppendTransactionRequest is the body of POST /api/v1/transactions. The
// actor is always the authenticated caller.
type AppendTransactionRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Type      string    `json:"transaction_type" validate:"required,oneof=in out adjustment"`
	Direction string    `json:"direction" validate:"omitempty,oneof=increase decrease"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
	Notes     string    `json:"notes" validate:"max=500"`
}

// ToDomain converts the request into an unsaved transaction
func (req *AppendTransactionRequest) ToDomain(actorID uuid.UUID) *domain.InventoryTransaction {
	return &domain.InventoryTransaction{
		ProductID: req.ProductID,
		Type:      domain.TransactionType(req.Type),
		Direction: domain.Direction(req.Direction),
		Quantity:  req.Quantity,
		ActorID:   actorID,
		Notes:     req.Notes,
	}
}

// AppendTransaction handles POST /api/v1/transactions
func (h *LedgerHandler) AppendTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	var req AppendTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	txn := req.ToDomain(actor.ID)
	if err := h.ledger.Append(ctx, txn); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "transaction appended",
		slog.String("transaction_id", txn.ID.String()),
		slog.String("product_id", txn.ProductID.String()),
		slog.String("type", string(txn.Type)),
		slog.Int("quantity", txn.Quantity))

	respondJSON(w, http.StatusCreated, txn)
}

// ListRecent handles GET /api/v1/transactions/recent
func (h *LedgerHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	views, err := h.ledger.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": nonNil(views),
		"count":        len(views),
	})
}

// ListByProduct handles GET /api/v1/products/{id}/transactions
func (h *LedgerHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	txns, err := h.ledger.ListByProduct(r.Context(), productID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product_id":   productID,
		"transactions": nonNil(txns),
		"count":        len(txns),
	})
}

// nonNil makes empty results encode as [] instead of null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
