// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stockledger/internal/core/ports"
)

// CleanupProcessor handles cleanup tasks
type CleanupProcessor struct {
	storage   ports.ObjectStorage
	retention time.Duration
	prefixes  []string
	logger    *slog.Logger
	now       func() time.Time
}

// NewCleanupProcessor creates a new cleanup processor for uploads and exports
// older than retention
func NewCleanupProcessor(storage ports.ObjectStorage, retention time.Duration, logger *slog.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		storage:   storage,
		retention: retention,
		prefixes:  []string{UploadPrefix, ExportPrefix},
		logger:    logger.With(slog.String("processor", "cleanup")),
		now:       time.Now,
	}
}

// CleanupUploads removes stored files past the retention window
func (p *CleanupProcessor) CleanupUploads(ctx context.Context, t *asynq.Task) error {
	if p.retention <= 0 {
		return nil
	}
	cutoff := p.now().Add(-p.retention)

	var deletedCount int
	for _, prefix := range p.prefixes {
		objects, err := p.storage.List(ctx, prefix)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", prefix, err)
		}

		for _, obj := range objects {
			if !obj.LastModified.Before(cutoff) {
				continue
			}
			if err := p.storage.Delete(ctx, obj.Key); err != nil {
				p.logger.WarnContext(ctx, "failed to delete stored file",
					slog.String("key", obj.Key),
					slog.String("error", err.Error()))
				continue
			}
			deletedCount++
		}
	}

	p.logger.InfoContext(ctx, "stored files cleaned up",
		slog.Int("files_deleted", deletedCount),
		slog.Time("cutoff", cutoff))

	return nil
}
