package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	return out
}

func TestContextHandler_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	actor := uuid.New()
	ctx := WithValue(context.Background(), ContextKeyRequestID, "req-123")
	ctx = WithValue(ctx, ContextKeyActorID, actor)
	ctx = WithValue(ctx, ContextKeyActorRole, "cashier")

	log.InfoContext(ctx, "sale committed", slog.Int("items", 2))

	line := decodeLine(t, &buf)
	assert.Equal(t, "req-123", line["request_id"])
	assert.Equal(t, actor.String(), line["actor_id"])
	assert.Equal(t, "cashier", line["actor_role"])
	assert.Equal(t, float64(2), line["items"])
}

func TestContextHandler_EmptyContext(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))

	log.InfoContext(context.Background(), "startup")

	line := decodeLine(t, &buf)
	assert.NotContains(t, line, "request_id")
	assert.Equal(t, "startup", line["msg"])
}

func TestSanitizationHandler(t *testing.T) {
	tests := []struct {
		name     string
		log      func(l *slog.Logger)
		key      string
		expected string
	}{
		{
			name:     "sensitive_key_redacted",
			log:      func(l *slog.Logger) { l.Info("login", slog.String("password", "hunter2")) },
			key:      "password",
			expected: "***REDACTED***",
		},
		{
			name:     "jwt_secret_key_redacted",
			log:      func(l *slog.Logger) { l.Info("config", slog.String("jwt_secret", "abc")) },
			key:      "jwt_secret",
			expected: "***REDACTED***",
		},
		{
			name:     "bearer_token_in_value_masked",
			log:      func(l *slog.Logger) { l.Info("request", slog.String("header", "Bearer eyJhbGciOi.abc.def")) },
			key:      "header",
			expected: "Bearer ***REDACTED***",
		},
		{
			name:     "database_url_password_masked",
			log:      func(l *slog.Logger) { l.Info("migrating", slog.String("url", "postgres://ledger:s3cret@db:5432/stock_ledger")) },
			key:      "url",
			expected: "postgres://ledger:***REDACTED***@db:5432/stock_ledger",
		},
		{
			name:     "ordinary_values_untouched",
			log:      func(l *slog.Logger) { l.Info("stock", slog.String("sku", "SKU-001")) },
			key:      "sku",
			expected: "SKU-001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(slog.New(NewSanitizationHandler(slog.NewJSONHandler(&buf, nil))))

			line := decodeLine(t, &buf)
			assert.Equal(t, tt.expected, line[tt.key])
		})
	}
}

func TestSanitizationHandler_Message(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewSanitizationHandler(slog.NewJSONHandler(&buf, nil)))

	log.Info("connecting with password=s3cret")

	line := decodeLine(t, &buf)
	assert.Equal(t, "connecting with password=***REDACTED***", line["msg"])
}

func TestSanitizationHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewSanitizationHandler(slog.NewJSONHandler(&buf, nil))).
		With(slog.String("api_key", "k-123"))

	log.Info("export uploaded")

	line := decodeLine(t, &buf)
	assert.Equal(t, "***REDACTED***", line["api_key"])
}

func TestNewLogger_AuditFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l := NewLogger(&LogConfig{Level: "debug", Format: "json", Output: "stderr", AuditFile: path})

	l.Info("sale committed")
	l.Warn("low stock", slog.String("sku", "RICE-5KG"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), `"severity":"WARN"`)
	assert.Contains(t, string(data), "RICE-5KG")
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	log := slog.New(NewMultiHandler(
		slog.NewJSONHandler(&a, nil),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	))

	log.Info("only first")
	log.Error("both")

	assert.Equal(t, 2, strings.Count(a.String(), "\n"))
	assert.Equal(t, 1, strings.Count(b.String(), "\n"))
}

func TestPrettyTextHandler_KeepsAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyTextHandler(&buf, nil)).With(slog.String("service", "ledger"))

	log.Info("ready", slog.Int("port", 8080))

	out := buf.String()
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "service=ledger")
	assert.Contains(t, out, "port=8080")
}

func TestFromContext(t *testing.T) {
	l := NewLogger(&LogConfig{Level: "debug", Format: "json", Output: "stderr"})
	ctx := WithLogger(context.Background(), l)

	assert.NotNil(t, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}
