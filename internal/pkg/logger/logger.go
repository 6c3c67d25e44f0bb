// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContextKey names a request or task scoped value that is copied onto every
// record logged with that context
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyActorID   ContextKey = "actor_id"
	ContextKeyActorRole ContextKey = "actor_role"
	ContextKeyTraceID   ContextKey = "trace_id"
	ContextKeyClientIP  ContextKey = "client_ip"
	ContextKeyMethod    ContextKey = "method"
	ContextKeyPath      ContextKey = "path"
	ContextKeyTaskType  ContextKey = "task_type"
	ContextKeyTaskID    ContextKey = "task_id"
)

// contextKeys is the order context fields appear in a record
var contextKeys = []ContextKey{
	ContextKeyRequestID,
	ContextKeyTraceID,
	ContextKeyActorID,
	ContextKeyActorRole,
	ContextKeyClientIP,
	ContextKeyMethod,
	ContextKeyPath,
	ContextKeyTaskType,
	ContextKeyTaskID,
}

type loggerContextKey struct{}

// LogConfig holds logger configuration
type LogConfig struct {
	Level          string `json:"level"`
	Format         string `json:"format"` // json or text
	Output         string `json:"output"` // stdout, stderr or file:<path>
	AddSource      bool   `json:"add_source"`
	ServiceName    string `json:"service_name"`
	ServiceVersion string `json:"service_version"`
	Environment    string `json:"environment"`
	// AuditFile mirrors warnings and errors as JSON to a file
	AuditFile string `json:"audit_file"`
}

// Logger is the process logger. Handlers below the embedded slog.Logger
// add context fields and redact secrets.
type Logger struct {
	*slog.Logger
	config *LogConfig
}

var defaultLogger *Logger

// SetupLogger builds the process logger from the service environment and
// installs it as the slog default
func SetupLogger(level, format string) *Logger {
	l := NewLogger(&LogConfig{
		Level:          level,
		Format:         format,
		Output:         "stdout",
		AddSource:      level == "debug",
		ServiceName:    envOr("SERVICE_NAME", "stockledger"),
		ServiceVersion: os.Getenv("APP_VERSION"),
		Environment:    os.Getenv("APP_ENV"),
		AuditFile:      os.Getenv("LOG_AUDIT_FILE"),
	})

	defaultLogger = l
	slog.SetDefault(l.Logger)
	return l
}

// NewLogger creates a logger. A nil config logs info and above as JSON to stdout.
func NewLogger(config *LogConfig) *Logger {
	if config == nil {
		config = &LogConfig{Level: "info", Format: "json", Output: "stdout"}
	}

	opts := &slog.HandlerOptions{
		Level:       parseLevel(config.Level),
		AddSource:   config.AddSource,
		ReplaceAttr: replaceAttr(config.Format),
	}

	var handler slog.Handler
	w := openOutput(config.Output)
	if config.Format == "text" {
		handler = NewPrettyTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	if config.AuditFile != "" {
		if f, err := os.OpenFile(config.AuditFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			audit := slog.NewJSONHandler(f, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				AddSource:   true,
				ReplaceAttr: replaceAttr("json"),
			})
			handler = NewMultiHandler(handler, audit)
		}
	}

	handler = NewSanitizationHandler(NewContextHandler(handler))

	var attrs []slog.Attr
	if config.ServiceName != "" {
		attrs = append(attrs, slog.String("service", config.ServiceName))
	}
	if config.ServiceVersion != "" {
		attrs = append(attrs, slog.String("version", config.ServiceVersion))
	}
	if config.Environment != "" {
		attrs = append(attrs, slog.String("env", config.Environment))
	}
	if len(attrs) > 0 {
		handler = handler.WithAttrs(attrs)
	}

	return &Logger{Logger: slog.New(handler), config: config}
}

// WithContext returns a logger carrying the context fields of ctx as attributes
func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		args := make([]any, len(attrs))
		for i, a := range attrs {
			args[i] = a
		}
		return l.Logger.With(args...)
	}
	return l.Logger
}

// FromContext returns the logger stored by WithLogger, or the default one
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*Logger); ok {
		return l.WithContext(ctx)
	}
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger.WithContext(ctx)
}

// WithLogger stores l in ctx
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// WithValue stores a log field in ctx. The context handler adds it to every
// record logged with that context.
func WithValue(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	for _, key := range contextKeys {
		switch v := ctx.Value(key).(type) {
		case nil:
		case string:
			if v != "" {
				attrs = append(attrs, slog.String(string(key), v))
			}
		case uuid.UUID:
			attrs = append(attrs, slog.String(string(key), v.String()))
		default:
			attrs = append(attrs, slog.Any(string(key), v))
		}
	}
	return attrs
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openOutput(output string) io.Writer {
	switch {
	case output == "stderr":
		return os.Stderr
	case strings.HasPrefix(output, "file:"):
		f, err := os.OpenFile(strings.TrimPrefix(output, "file:"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			return f
		}
	}
	return os.Stdout
}

// replaceAttr formats times as RFC 3339 and, for JSON, names the level
// "severity" for the log aggregator
func replaceAttr(format string) func([]string, slog.Attr) slog.Attr {
	return func(_ []string, a slog.Attr) slog.Attr {
		switch {
		case a.Key == slog.TimeKey:
			if t, ok := a.Value.Any().(time.Time); ok {
				a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
			}
		case a.Key == slog.LevelKey && format == "json":
			a.Key = "severity"
		case strings.HasSuffix(a.Key, "_ms"):
			if d, ok := a.Value.Any().(time.Duration); ok {
				a.Value = slog.Float64Value(float64(d) / float64(time.Millisecond))
			}
		}
		return a
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
