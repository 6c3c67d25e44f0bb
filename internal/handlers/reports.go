// internal/handlers/reports.go
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
	"github.com/ammerola/stockledger/internal/workers"
)

// ReportHandler serves sales reports and exports
type ReportHandler struct {
	reports   ports.ReportService
	tasks     ports.TaskPublisher
	storage   ports.ObjectStorage
	inspector QueueInspector
	loc       *time.Location
	urlExpiry time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// ReportHandlerConfig carries the optional collaborators of ReportHandler
type ReportHandlerConfig struct {
	Tasks     ports.TaskPublisher
	Storage   ports.ObjectStorage
	Inspector QueueInspector
	Location  *time.Location
	URLExpiry time.Duration
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports ports.ReportService, cfg ReportHandlerConfig, logger *slog.Logger) *ReportHandler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &ReportHandler{
		reports:   reports,
		tasks:     cfg.Tasks,
		storage:   cfg.Storage,
		inspector: cfg.Inspector,
		loc:       loc,
		urlExpiry: expiry,
		now:       time.Now,
		logger:    logger.With(slog.String("handler", "report")),
	}
}

// Summary handles GET /api/v1/reports/summary
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r, h.loc, h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	summary, err := h.reports.Summary(r.Context(), rng)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// TopProducts handles GET /api/v1/reports/top-products
func (h *ReportHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r, h.loc, h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	top, err := h.reports.TopProducts(r.Context(), rng, limit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":     rng.From.Format(domain.DateLayout),
		"to":       rng.To.Format(domain.DateLayout),
		"products": nonNil(top),
	})
}

// StockMovement handles GET /api/v1/reports/stock-movement
func (h *ReportHandler) StockMovement(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r, h.loc, h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	days, err := h.reports.StockMovement(r.Context(), rng)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from": rng.From.Format(domain.DateLayout),
		"to":   rng.To.Format(domain.DateLayout),
		"days": nonNil(days),
	})
}

// ExportSales handles GET /api/v1/reports/sales/export and streams the
// workbook back in the response.
func (h *ReportHandler) ExportSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rng, err := dateRange(r, h.loc, h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	rows, err := h.reports.ExportSales(ctx, rng)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	data, err := workers.BuildSalesWorkbook(rng, rows)
	if err != nil {
		respondError(w, r, h.logger, fmt.Errorf("failed to build workbook: %w", err))
		return
	}

	filename := fmt.Sprintf("sales_%s.xlsx", rng.Key())
	w.Header().Set("Content-Type", workers.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if _, err := w.Write(data); err != nil {
		h.logger.ErrorContext(ctx, "failed to write workbook response", slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "sales export completed",
		slog.String("range", rng.Key()),
		slog.Int("rows", len(rows)))
}

// SalesExportRequest is the body of POST /api/v1/reports/sales/export
type SalesExportRequest struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

// RequestSalesExport handles POST /api/v1/reports/sales/export. The workbook
// is built by a worker and written to object storage.
func (h *ReportHandler) RequestSalesExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	if h.tasks == nil {
		respondError(w, r, h.logger, fmt.Errorf("task queue is not configured"))
		return
	}

	var req SalesExportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	rng, err := domain.NewDateRange(req.From, req.To, h.loc, h.now())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	exportID, err := h.tasks.EnqueueSalesExport(ctx, rng, actor.ID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "sales export queued",
		slog.String("export_id", exportID),
		slog.String("range", rng.Key()))

	w.Header().Set("Location", "/api/v1/reports/sales/export/"+exportID)
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"export_id": exportID,
		"status":    "queued",
	})
}

// ExportStatus handles GET /api/v1/reports/sales/export/{id}. A completed
// export includes a presigned download link.
func (h *ReportHandler) ExportStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	info, err := lookupTask(h.inspector, workers.QueueLow, id, "export")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if info.Type != workers.TypeSalesExport {
		respondError(w, r, h.logger, domain.NewNotFoundError("export", id))
		return
	}

	status := newJobStatus(info)
	if info.State == asynq.TaskStateCompleted && h.storage != nil {
		var payload workers.SalesExportPayload
		if err := json.Unmarshal(info.Payload, &payload); err != nil {
			respondError(w, r, h.logger, fmt.Errorf("failed to decode export payload: %w", err))
			return
		}

		url, err := h.storage.GetPresignedURL(ctx, payload.ObjectKey(), h.urlExpiry)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		status.DownloadURL = url
	}

	respondJSON(w, http.StatusOK, status)
}
