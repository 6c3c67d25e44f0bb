// internal/handlers/import.go
package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
	"github.com/ammerola/stockledger/internal/workers"
)

const pdfContentType = "application/pdf"

// ImportHandler accepts supplier delivery notes for asynchronous stock-in
type ImportHandler struct {
	storage     ports.ObjectStorage
	tasks       ports.TaskPublisher
	inspector   QueueInspector
	maxFileSize int64
	logger      *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(storage ports.ObjectStorage, tasks ports.TaskPublisher, inspector QueueInspector,
	maxFileSize int64, logger *slog.Logger) *ImportHandler {
	if maxFileSize <= 0 {
		maxFileSize = 10 << 20
	}
	return &ImportHandler{
		storage:     storage,
		tasks:       tasks,
		inspector:   inspector,
		maxFileSize: maxFileSize,
		logger:      logger.With(slog.String("handler", "import")),
	}
}

// ImportReceipt handles POST /api/v1/imports/receipts. The multipart form
// carries the delivery note in "file" and an optional "reference".
func (h *ImportHandler) ImportReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	// Leave room for the multipart envelope around the file
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1<<20)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, h.logger, domain.NewValidationError("file",
				fmt.Sprintf("exceeds %d MB", h.maxFileSize>>20)))
			return
		}
		respondError(w, r, h.logger, domain.NewValidationError("body", "failed to parse form data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, h.logger, domain.NewValidationError("file", "is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		respondError(w, r, h.logger, fmt.Errorf("failed to read upload: %w", err))
		return
	}
	if int64(len(data)) > h.maxFileSize {
		respondError(w, r, h.logger, domain.NewValidationError("file", fmt.Sprintf("exceeds %d MB", h.maxFileSize>>20)))
		return
	}

	// Trust the content, not the client supplied type
	fileType, contentType, err := detectReceiptType(data)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	reference := strings.TrimSpace(r.FormValue("reference"))
	if reference == "" {
		reference = strings.TrimSuffix(header.Filename, "."+fileType)
	}
	if len(reference) > 100 {
		respondError(w, r, h.logger, domain.NewValidationError("reference", "must be at most 100 characters"))
		return
	}

	key := fmt.Sprintf("%s%s.%s", workers.UploadPrefix, uuid.NewString(), fileType)
	if _, err := h.storage.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		respondError(w, r, h.logger, fmt.Errorf("failed to store upload: %w", err))
		return
	}

	taskID, err := h.tasks.EnqueueReceiptImport(ctx, ports.ReceiptImportRequest{
		FileKey:   key,
		FileType:  fileType,
		Reference: reference,
		ActorID:   actor.ID,
	})
	if err != nil {
		if delErr := h.storage.Delete(ctx, key); delErr != nil {
			h.logger.WarnContext(ctx, "failed to remove orphaned upload",
				slog.String("file_key", key),
				slog.String("error", delErr.Error()))
		}
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "receipt import queued",
		slog.String("task_id", taskID),
		slog.String("file_key", key),
		slog.String("file_type", fileType),
		slog.String("reference", reference),
		slog.Int("size", len(data)))

	w.Header().Set("Location", "/api/v1/imports/receipts/"+taskID)
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id":   taskID,
		"file_key":  key,
		"reference": reference,
		"status":    "queued",
	})
}

// ImportStatus handles GET /api/v1/imports/receipts/{id}
func (h *ImportHandler) ImportStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	info, err := lookupTask(h.inspector, workers.QueueDefault, id, "import")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if info.Type != workers.TypeReceiptImport {
		respondError(w, r, h.logger, domain.NewNotFoundError("import", id))
		return
	}

	respondJSON(w, http.StatusOK, newJobStatus(info))
}

func detectReceiptType(data []byte) (fileType, contentType string, err error) {
	mime := mimetype.Detect(data)
	switch {
	case mime.Is(workers.XLSXContentType):
		return workers.FileTypeXLSX, workers.XLSXContentType, nil
	case mime.Is(pdfContentType):
		return workers.FileTypePDF, pdfContentType, nil
	}
	return "", "", domain.NewValidationError("file",
		fmt.Sprintf("unsupported file type %s, expected xlsx or pdf", mime.String()))
}
