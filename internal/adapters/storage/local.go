// internal/adapters/storage/local.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ammerola/stockledger/internal/core/ports"
)

// LocalStorage keeps objects on the local filesystem. Used in development and
// tests where no bucket is available.
type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

var _ ports.ObjectStorage = (*LocalStorage)(nil)

// NewLocalStorage creates the base directory if needed
func NewLocalStorage(basePath string, logger *slog.Logger) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: abs,
		logger:   logger.With(slog.String("storage", "local")),
	}, nil
}

// resolve maps an object key to a path inside basePath
func (l *LocalStorage) resolve(key string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(key, "/"))
	if !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(l.basePath, filepath.FromSlash(clean)), nil
}

// Upload writes data to key, replacing any existing object
func (l *LocalStorage) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	p, err := l.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	l.logger.InfoContext(ctx, "file uploaded",
		slog.String("key", key),
		slog.String("content_type", contentTypeFor(key, contentType)))

	return "file://" + filepath.ToSlash(p), nil
}

// Download reads the object at key
func (l *LocalStorage) Download(ctx context.Context, key string) ([]byte, error) {
	p, err := l.resolve(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	return data, nil
}

// Delete removes the object at key. Deleting a missing object succeeds.
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	p, err := l.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	l.logger.InfoContext(ctx, "file deleted", slog.String("key", key))
	return nil
}

// List returns the objects whose key starts with prefix, ordered by key
func (l *LocalStorage) List(ctx context.Context, prefix string) ([]ports.StoredObject, error) {
	objects := make([]ports.StoredObject, 0)

	err := filepath.WalkDir(l.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}

		rel, err := filepath.Rel(l.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ports.StoredObject{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// GetPresignedURL returns a file URL. Local objects need no signature, so
// duration is ignored.
func (l *LocalStorage) GetPresignedURL(ctx context.Context, key string, duration time.Duration) (string, error) {
	p, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("failed to locate file: %w", err)
	}
	return "file://" + filepath.ToSlash(p), nil
}
