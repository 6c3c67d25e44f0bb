// internal/core/ports/cache.go
package ports

import (
	"context"
	"time"
)

// CacheRepository holds closed range report payloads and alert markers.
// Stock figures are never cached.
type CacheRepository interface {
	// GetOrSet decodes key into dest. On a miss it stores the result of fetch
	// for ttl and decodes that instead.
	GetOrSet(ctx context.Context, key string, dest interface{},
		fetch func() (interface{}, error), ttl time.Duration) error

	// Claim stores value only if key is absent and reports whether it did
	Claim(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
}
