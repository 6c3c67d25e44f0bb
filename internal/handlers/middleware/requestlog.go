// internal/handlers/middleware/requestlog.go
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/pkg/logger"
)

const (
	// RequestIDHeader carries the request id between proxies and the API
	RequestIDHeader = "X-Request-ID"
	// TraceIDHeader carries a trace id spanning several requests
	TraceIDHeader = "X-Trace-ID"

	slowRequestThreshold = 5 * time.Second
)

// RequestID keeps an id assigned upstream or generates one, and echoes it on
// the response so error bodies can quote it
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := logger.WithValue(r.Context(), logger.ContextKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP resolves the caller address into the context. Forwarding headers
// are honoured only when the direct peer is in trusted, a list of addresses
// or CIDR prefixes; invalid entries are ignored.
func ClientIP(trusted []string) func(http.Handler) http.Handler {
	proxies := parsePrefixes(trusted)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, proxies)
			ctx := logger.WithValue(r.Context(), logger.ContextKeyClientIP, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parsePrefixes(entries []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if p, err := netip.ParsePrefix(e); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return prefixes
}

func resolveClientIP(r *http.Request, proxies []netip.Prefix) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}

	addr, err := netip.ParseAddr(peer)
	if err != nil || !trustedPeer(addr, proxies) {
		return peer
	}

	// Walk X-Forwarded-For from the right, skipping our own proxies
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		a, err := netip.ParseAddr(hop)
		if err != nil {
			break
		}
		if !trustedPeer(a, proxies) {
			return hop
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func trustedPeer(addr netip.Addr, proxies []netip.Prefix) bool {
	addr = addr.Unmap()
	for _, p := range proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the address stored by ClientIP, or the direct peer
func clientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(logger.ContextKeyClientIP).(string); ok && ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Logger writes one record per request. The actor set later by Authenticate
// is reported through a slot placed in the context here.
func Logger(l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := r.Header.Get(TraceIDHeader)
			if traceID == "" {
				traceID = uuid.NewString()
			}
			w.Header().Set(TraceIDHeader, traceID)

			ctx := r.Context()
			ctx = logger.WithValue(ctx, logger.ContextKeyTraceID, traceID)
			ctx = logger.WithValue(ctx, logger.ContextKeyClientIP, clientIP(r))
			ctx = logger.WithValue(ctx, logger.ContextKeyMethod, r.Method)
			ctx = logger.WithValue(ctx, logger.ContextKeyPath, r.URL.Path)
			ctx = logger.WithLogger(ctx, l)

			slot := &actorSlot{}
			ctx = context.WithValue(ctx, actorSlotKey{}, slot)

			rec := record(w)
			next.ServeHTTP(rec, r.WithContext(ctx))
			elapsed := time.Since(start)

			level := slog.LevelInfo
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status >= 400, elapsed > slowRequestThreshold:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.bytes),
				slog.Duration("duration_ms", elapsed),
			}
			if r.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", r.URL.RawQuery))
			}
			if key := r.Header.Get("Idempotency-Key"); key != "" {
				attrs = append(attrs, slog.String("idempotency_key", key))
			}
			if slot.actor != nil {
				attrs = append(attrs,
					slog.String(string(logger.ContextKeyActorID), slot.actor.ID.String()),
					slog.String(string(logger.ContextKeyActorRole), slot.actor.Role))
			}
			if elapsed > slowRequestThreshold {
				attrs = append(attrs, slog.Bool("slow", true))
			}

			l.LogAttrs(ctx, level, "request", attrs...)
		})
	}
}

// Recovery turns a panic into a 500 and logs the stack
func Recovery(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					log.ErrorContext(r.Context(), "panic recovered",
						slog.Any("panic", p),
						slog.String("stack", string(debug.Stack())))
					WriteError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares so that the first one listed runs first
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
