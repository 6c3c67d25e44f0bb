package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/core/ports"
	"github.com/ammerola/stockledger/internal/workers"
	"github.com/ammerola/stockledger/test/helpers"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func (f *fixture) upload(t *testing.T, as *caller, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if content != nil {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/receipts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+helpers.TestToken(t, as.id, "Test "+as.role, as.role))

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestImportHandler_ImportReceipt(t *testing.T) {
	t.Run("pdf_delivery_note", func(t *testing.T) {
		f := newFixture(t)

		var storedKey string
		f.storage.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), "application/pdf").
			DoAndReturn(func(_ context.Context, key string, data io.Reader, _ string) (string, error) {
				storedKey = key
				body, err := io.ReadAll(data)
				require.NoError(t, err)
				assert.Equal(t, samplePDF, body)
				return key, nil
			})
		f.tasks.EXPECT().EnqueueReceiptImport(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req ports.ReceiptImportRequest) (string, error) {
				assert.Equal(t, storedKey, req.FileKey)
				assert.Equal(t, workers.FileTypePDF, req.FileType)
				assert.Equal(t, "DN-2026-0117", req.Reference)
				assert.Equal(t, manager.id, req.ActorID)
				return "import-1", nil
			})

		w := f.upload(t, &manager, "scan.pdf", samplePDF, map[string]string{"reference": " DN-2026-0117 "})

		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		assert.True(t, strings.HasPrefix(storedKey, workers.UploadPrefix))
		assert.True(t, strings.HasSuffix(storedKey, ".pdf"))
		assert.Equal(t, "/api/v1/imports/receipts/import-1", w.Header().Get("Location"))
		assert.Contains(t, w.Body.String(), `"task_id":"import-1"`)
	})

	t.Run("xlsx_reference_defaults_to_filename", func(t *testing.T) {
		f := newFixture(t)
		workbook, err := workers.BuildSalesWorkbook(domain.DateRange{}, nil)
		require.NoError(t, err)

		f.storage.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), workers.XLSXContentType).Return("", nil)
		f.tasks.EXPECT().EnqueueReceiptImport(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req ports.ReceiptImportRequest) (string, error) {
				assert.Equal(t, workers.FileTypeXLSX, req.FileType)
				assert.Equal(t, "supplier-march", req.Reference)
				return "import-2", nil
			})

		w := f.upload(t, &admin, "supplier-march.xlsx", workbook, nil)

		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	})

	t.Run("content_decides_type", func(t *testing.T) {
		f := newFixture(t)

		w := f.upload(t, &manager, "notes.pdf", []byte("sku,quantity\nRICE-5KG,10\n"), nil)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, errorBody(t, w).Error, "unsupported file type")
	})

	t.Run("missing_file", func(t *testing.T) {
		f := newFixture(t)

		w := f.upload(t, &manager, "", nil, map[string]string{"reference": "DN-1"})

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "file: is required", errorBody(t, w).Error)
	})

	t.Run("oversized_file", func(t *testing.T) {
		f := newFixture(t)
		big := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("0"), 1<<20+10)...)

		w := f.upload(t, &manager, "huge.pdf", big, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("enqueue_failure_removes_upload", func(t *testing.T) {
		f := newFixture(t)

		var storedKey string
		f.storage.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, key string, _ io.Reader, _ string) (string, error) {
				storedKey = key
				return key, nil
			})
		f.tasks.EXPECT().EnqueueReceiptImport(gomock.Any(), gomock.Any()).
			Return("", errors.New("redis: connection refused"))
		f.storage.EXPECT().Delete(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, key string) error {
				assert.Equal(t, storedKey, key)
				return nil
			})

		w := f.upload(t, &manager, "scan.pdf", samplePDF, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestImportHandler_ImportStatus(t *testing.T) {
	t.Run("retrying", func(t *testing.T) {
		f := newFixture(t)
		f.inspector.tasks["import-1"] = &asynq.TaskInfo{
			ID:       "import-1",
			Queue:    workers.QueueDefault,
			Type:     workers.TypeReceiptImport,
			State:    asynq.TaskStateRetry,
			Retried:  1,
			MaxRetry: 3,
			LastErr:  "row 4: unknown sku",
		}

		w := f.do(t, &manager, http.MethodGet, "/api/v1/imports/receipts/import-1", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var status struct {
			State     string `json:"state"`
			Retried   int    `json:"retried"`
			LastError string `json:"last_error"`
		}
		decodeBody(t, w, &status)
		assert.Equal(t, "retry", status.State)
		assert.Equal(t, 1, status.Retried)
		assert.Equal(t, "row 4: unknown sku", status.LastError)
	})

	t.Run("wrong_queue", func(t *testing.T) {
		f := newFixture(t)
		f.inspector.tasks["import-1"] = &asynq.TaskInfo{
			ID:    "import-1",
			Queue: workers.QueueLow,
			Type:  workers.TypeReceiptImport,
		}

		w := f.do(t, &manager, http.MethodGet, "/api/v1/imports/receipts/import-1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
