package redis_a_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/ammerola/stockledger/internal/adapters/redis_adapter"
	"github.com/ammerola/stockledger/test/helpers"
)

func newIdempotencyStore(t *testing.T) (*redis_a.IdempotencyStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return redis_a.NewIdempotencyStore(client, time.Hour, helpers.TestLogger()), mr
}

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store, mr := newIdempotencyStore(t)
	saleID := uuid.New()

	ok, err := store.Reserve(ctx, "till-1-0001")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "till-1-0001")
	require.NoError(t, err)
	assert.False(t, ok, "second reservation must fail while pending")

	id, err := store.Lookup(ctx, "till-1-0001")
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, id, "pending key has no sale yet")

	require.NoError(t, store.Complete(ctx, "till-1-0001", saleID))

	id, err = store.Lookup(ctx, "till-1-0001")
	require.NoError(t, err)
	assert.Equal(t, saleID, id)

	assert.Equal(t, time.Hour, mr.TTL("idem:sale:till-1-0001"))
}

func TestIdempotencyStore_PendingReservationExpiresFirst(t *testing.T) {
	ctx := context.Background()
	store, mr := newIdempotencyStore(t)
	store.WithPendingTTL(30 * time.Second)

	ok, err := store.Reserve(ctx, "till-4-0009")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, mr.TTL("idem:sale:till-4-0009"))

	// A reservation abandoned mid-commit frees the key for the next retry
	mr.FastForward(31 * time.Second)
	ok, err = store.Reserve(ctx, "till-4-0009")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Complete(ctx, "till-4-0009", uuid.New()))
	assert.Equal(t, time.Hour, mr.TTL("idem:sale:till-4-0009"))
}

func TestIdempotencyStore_DefaultPendingTTL(t *testing.T) {
	store, mr := newIdempotencyStore(t)

	_, err := store.Reserve(context.Background(), "till-4-0010")
	require.NoError(t, err)
	assert.Equal(t, redis_a.DefaultPendingTTL, mr.TTL("idem:sale:till-4-0010"))
}

func TestIdempotencyStore_Release(t *testing.T) {
	ctx := context.Background()
	store, _ := newIdempotencyStore(t)

	ok, err := store.Reserve(ctx, "till-2-0007")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, "till-2-0007"))

	ok, err = store.Reserve(ctx, "till-2-0007")
	require.NoError(t, err)
	assert.True(t, ok, "released key can be reserved again")
}

func TestIdempotencyStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newIdempotencyStore(t)

	_, err := store.Reserve(ctx, "till-3-0042")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	id, err := store.Lookup(ctx, "till-3-0042")
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)

	ok, err := store.Reserve(ctx, "till-3-0042")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	store, mr := newIdempotencyStore(t)
	require.NoError(t, mr.Set("idem:sale:bad", "not-a-uuid"))

	_, err := store.Lookup(ctx, "bad")
	assert.Error(t, err)
}

func TestIdempotencyStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	store, mr := newIdempotencyStore(t)
	mr.Close()

	_, err := store.Reserve(ctx, "till-4-0001")
	assert.Error(t, err)
}
