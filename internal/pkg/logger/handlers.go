// internal/pkg/logger/handlers.go
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

const redacted = "***REDACTED***"

// ContextHandler copies request and task fields from the context onto each record
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}

// sensitiveKeys are attribute key fragments whose values are never logged
var sensitiveKeys = []string{
	"password", "secret", "token", "authorization", "jwt", "api_key", "card_number",
}

var sensitivePatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)(password|pwd|secret|token|jwt|api[-_]?key)\s*[:=]\s*["']?[^"'\s]+`), "$1=" + redacted},
	{regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]+=*`), "Bearer " + redacted},
	// Card PANs can land in payment notes
	{regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`), redacted},
	// Database URLs carry the password in the userinfo
	{regexp.MustCompile(`(postgres(?:ql)?://[^:/\s]+):[^@\s]+@`), "$1:" + redacted + "@"},
}

// SanitizationHandler masks credentials in messages and attributes
type SanitizationHandler struct {
	next slog.Handler
}

// NewSanitizationHandler wraps next
func NewSanitizationHandler(next slog.Handler) *SanitizationHandler {
	return &SanitizationHandler{next: next}
}

func (h *SanitizationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizationHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, sanitizeString(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.next.Handle(ctx, clean)
}

func (h *SanitizationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = sanitizeAttr(a)
	}
	return &SanitizationHandler{next: h.next.WithAttrs(clean)}
}

func (h *SanitizationHandler) WithGroup(name string) slog.Handler {
	return &SanitizationHandler{next: h.next.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return slog.String(a.Key, redacted)
		}
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, sanitizeString(a.Value.String()))
	case slog.KindGroup:
		group := a.Value.Group()
		clean := make([]any, len(group))
		for i, g := range group {
			clean[i] = sanitizeAttr(g)
		}
		return slog.Group(a.Key, clean...)
	}
	return a
}

func sanitizeString(s string) string {
	for _, p := range sensitivePatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}

// MultiHandler fans records out to every handler that accepts the level
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a fan-out handler
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, next := range h.handlers {
		if next.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, next := range h.handlers {
		if !next.Enabled(ctx, r.Level) {
			continue
		}
		if err := next.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	return h.each(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *MultiHandler) each(fn func(slog.Handler) slog.Handler) *MultiHandler {
	out := make([]slog.Handler, len(h.handlers))
	for i, next := range h.handlers {
		out[i] = fn(next)
	}
	return &MultiHandler{handlers: out}
}

var levelColors = map[slog.Level]string{
	slog.LevelDebug: "\033[37m",
	slog.LevelInfo:  "\033[34m",
	slog.LevelWarn:  "\033[33m",
	slog.LevelError: "\033[31m",
}

const (
	colorReset = "\033[0m"
	colorKey   = "\033[36m"
)

// PrettyTextHandler writes colored single line records for local development
type PrettyTextHandler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Leveler
	attrs []slog.Attr
}

// NewPrettyTextHandler creates a development handler. opts may be nil.
func NewPrettyTextHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyTextHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &PrettyTextHandler{w: w, mu: &sync.Mutex{}, level: level}
}

func (h *PrettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &PrettyTextHandler{w: h.w, mu: h.mu, level: h.level, attrs: merged}
}

// WithGroup is not rendered; grouped attributes print flat
func (h *PrettyTextHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *PrettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	color, ok := levelColors[r.Level]
	if !ok {
		color = colorReset
	}
	fmt.Fprintf(&b, "%s%s %-5s%s %s",
		color, r.Time.Format("15:04:05.000"), r.Level.String(), colorReset, r.Message)

	write := func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s%s=%v%s", colorKey, a.Key, a.Value, colorReset)
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}
