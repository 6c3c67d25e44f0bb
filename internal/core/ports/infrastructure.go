// internal/core/ports/infrastructure.go
package ports

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/core/domain"
)

// IdempotencyStore guards sale commits against client retries
type IdempotencyStore interface {
	// Reserve claims key. It returns false when the key is already held.
	Reserve(ctx context.Context, key string) (bool, error)
	// Complete records the sale committed for key.
	Complete(ctx context.Context, key string, saleID uuid.UUID) error
	// Lookup returns the sale committed for key, or uuid.Nil if none yet.
	Lookup(ctx context.Context, key string) (uuid.UUID, error)
	Release(ctx context.Context, key string) error
}

// TaskPublisher enqueues background work
type TaskPublisher interface {
	EnqueueLowStockCheck(ctx context.Context, productIDs []uuid.UUID) error
	EnqueueReceiptImport(ctx context.Context, payload ReceiptImportRequest) (string, error)
	EnqueueSalesExport(ctx context.Context, r domain.DateRange, requestedBy uuid.UUID) (string, error)
}

// ReceiptImportRequest describes an uploaded delivery note awaiting import
type ReceiptImportRequest struct {
	FileKey   string    `json:"file_key"`
	FileType  string    `json:"file_type"`
	Reference string    `json:"reference"`
	ActorID   uuid.UUID `json:"actor_id"`
}

// StoredObject describes one object in storage
type StoredObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStorage holds uploads and generated exports
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]StoredObject, error)
	GetPresignedURL(ctx context.Context, key string, duration time.Duration) (string, error)
}
