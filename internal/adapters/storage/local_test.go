package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stockledger/internal/adapters/storage"
	"github.com/ammerola/stockledger/test/helpers"
)

func newLocalStorage(t *testing.T) (*storage.LocalStorage, string) {
	dir := t.TempDir()
	s, err := storage.NewLocalStorage(dir, helpers.TestLogger())
	require.NoError(t, err)
	return s, dir
}

func TestLocalStorage_UploadDownloadDelete(t *testing.T) {
	ctx := context.Background()
	s, dir := newLocalStorage(t)

	location, err := s.Upload(ctx, "uploads/receipts/note.pdf", strings.NewReader("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(location, "file://"))
	assert.FileExists(t, filepath.Join(dir, "uploads", "receipts", "note.pdf"))

	data, err := s.Download(ctx, "uploads/receipts/note.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, s.Delete(ctx, "uploads/receipts/note.pdf"))
	_, err = s.Download(ctx, "uploads/receipts/note.pdf")
	assert.Error(t, err)

	// deleting twice is not an error
	assert.NoError(t, s.Delete(ctx, "uploads/receipts/note.pdf"))
}

func TestLocalStorage_UploadReplaces(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStorage(t)

	_, err := s.Upload(ctx, "exports/sales.xlsx", strings.NewReader("first"), "")
	require.NoError(t, err)
	_, err = s.Upload(ctx, "exports/sales.xlsx", strings.NewReader("second"), "")
	require.NoError(t, err)

	data, err := s.Download(ctx, "exports/sales.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalStorage_List(t *testing.T) {
	ctx := context.Background()
	s, dir := newLocalStorage(t)

	for _, key := range []string{"uploads/b.xlsx", "uploads/a.pdf", "exports/c.xlsx"} {
		_, err := s.Upload(ctx, key, strings.NewReader(key), "")
		require.NoError(t, err)
	}
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "uploads", "a.pdf"), old, old))

	objects, err := s.List(ctx, "uploads/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "uploads/a.pdf", objects[0].Key)
	assert.Equal(t, "uploads/b.xlsx", objects[1].Key)
	assert.Equal(t, int64(len("uploads/a.pdf")), objects[0].Size)
	assert.WithinDuration(t, old, objects[0].LastModified, time.Second)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStorage(t)

	tests := []string{"../outside.txt", "uploads/../../etc/passwd", ".."}
	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := s.Upload(ctx, key, strings.NewReader("x"), "")
			assert.Error(t, err)
		})
	}
}

func TestLocalStorage_GetPresignedURL(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStorage(t)

	_, err := s.GetPresignedURL(ctx, "exports/missing.xlsx", time.Hour)
	assert.Error(t, err)

	_, err = s.Upload(ctx, "exports/sales.xlsx", strings.NewReader("x"), "")
	require.NoError(t, err)

	url, err := s.GetPresignedURL(ctx, "exports/sales.xlsx", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, "exports/sales.xlsx"))
}
