// internal/adapters/storage/storage.go
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ammerola/stockledger/internal/core/ports"
	"github.com/ammerola/stockledger/internal/pkg/config"
)

// New opens the backend selected by STORAGE_BACKEND
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.ObjectStorage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		s3, err := NewS3Storage(ctx, &S3Config{
			Region:          cfg.AWS.Region,
			Bucket:          cfg.AWS.S3Bucket,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Endpoint:        cfg.AWS.S3Endpoint,
			UsePathStyle:    cfg.AWS.UsePathStyle,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s3, nil
	case "local":
		local, err := NewLocalStorage(cfg.Storage.LocalPath, logger)
		if err != nil {
			return nil, err
		}
		return local, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
