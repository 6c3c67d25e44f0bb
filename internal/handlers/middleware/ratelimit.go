// internal/handlers/middleware/ratelimit.go
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleAfter = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimit allows each client address requests per duration with a burst
// of the same size. Idle clients are dropped during later requests.
func RateLimit(requests int, duration time.Duration) func(http.Handler) http.Handler {
	every := duration / time.Duration(requests)
	var (
		clients   sync.Map
		lastSweep atomic.Int64
	)
	lastSweep.Store(time.Now().UnixNano())

	sweep := func(now time.Time) {
		last := lastSweep.Load()
		if now.UnixNano()-last < int64(limiterIdleAfter) || !lastSweep.CompareAndSwap(last, now.UnixNano()) {
			return
		}
		cutoff := now.Add(-limiterIdleAfter).UnixNano()
		clients.Range(func(key, value any) bool {
			if value.(*clientLimiter).lastSeen.Load() < cutoff {
				clients.Delete(key)
			}
			return true
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			sweep(now)

			v, _ := clients.LoadOrStore(clientIP(r), &clientLimiter{
				limiter: rate.NewLimiter(rate.Every(every), requests),
			})
			cl := v.(*clientLimiter)
			cl.lastSeen.Store(now.UnixNano())

			if !cl.limiter.AllowN(now, 1) {
				retry := int(math.Ceil(every.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				WriteError(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
