// internal/adapters/redis_adapter/idempotency.go
package redis_a

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/stockledger/internal/core/ports"
)

const pendingMarker = "pending"

// DefaultPendingTTL bounds how long a reservation blocks retries when the
// process holding it never completes or releases it
const DefaultPendingTTL = time.Minute

// IdempotencyStore keeps one key per client request. A reserved key holds
// "pending" for at most the pending TTL, then the sale id for the full TTL.
type IdempotencyStore struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
	logger     *slog.Logger
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a store whose keys expire after ttl
func NewIdempotencyStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *IdempotencyStore {
	return &IdempotencyStore{
		client:     client,
		ttl:        ttl,
		pendingTTL: min(DefaultPendingTTL, ttl),
		logger:     logger.With(slog.String("component", "idempotency")),
	}
}

// WithPendingTTL sets how long an uncompleted reservation lives. It should
// cover the longest sale commit, usually the request write timeout.
func (s *IdempotencyStore) WithPendingTTL(d time.Duration) *IdempotencyStore {
	if d > 0 {
		s.pendingTTL = min(d, s.ttl)
	}
	return s
}

func saleKey(key string) string {
	return BuildKey(NamespaceIdempotency, "sale", key)
}

// Reserve claims key for a new commit
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, saleKey(key), pendingMarker, s.pendingTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if !ok {
		s.logger.DebugContext(ctx, "idempotency key already held", slog.String("key", key))
	}
	return ok, nil
}

// Complete replaces the reservation with the committed sale id and extends
// it to the full TTL
func (s *IdempotencyStore) Complete(ctx context.Context, key string, saleID uuid.UUID) error {
	if err := s.client.Set(ctx, saleKey(key), saleID.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

// Lookup returns the sale committed for key, or uuid.Nil while the key is
// pending or absent.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (uuid.UUID, error) {
	val, err := s.client.Get(ctx, saleKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, nil
		}
		return uuid.Nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	if val == pendingMarker {
		return uuid.Nil, nil
	}

	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt idempotency value for %s: %w", key, err)
	}
	return id, nil
}

// Release drops a reservation after a failed commit so the client can retry
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, saleKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
