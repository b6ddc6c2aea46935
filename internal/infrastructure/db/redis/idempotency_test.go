package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyStore(client, time.Hour), mr
}

func TestIdempotencyStore_FirstClaimWins(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	id, claimed, err := store.Claim(ctx, "u-1", "key-1", "f-1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "f-1", id)

	id, claimed, err = store.Claim(ctx, "u-1", "key-1", "f-2")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "f-1", id)

	assert.True(t, mr.Exists("idem:u-1:key-1"))
	assert.Equal(t, time.Hour, mr.TTL("idem:u-1:key-1"))
}

func TestIdempotencyStore_KeysAreScopedPerCaller(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, claimed, err := store.Claim(ctx, "u-1", "same", "f-1")
	require.NoError(t, err)
	require.True(t, claimed)

	id, claimed, err := store.Claim(ctx, "u-2", "same", "f-2")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "f-2", id)
}

func TestIdempotencyStore_ReleaseAllowsRetry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Claim(ctx, "u-1", "key", "f-1")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "u-1", "key"))

	id, claimed, err := store.Claim(ctx, "u-1", "key", "f-2")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "f-2", id)
}

func TestIdempotencyStore_ExpiredKeyCanBeReclaimed(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Claim(ctx, "u-1", "key", "f-1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)

	id, claimed, err := store.Claim(ctx, "u-1", "key", "f-2")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "f-2", id)
}

func TestIdempotencyStore_ServerDown(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, _, err := store.Claim(context.Background(), "u-1", "key", "f-1")
	require.Error(t, err)
}

func TestNewIdempotencyStore_DefaultTTL(t *testing.T) {
	store := NewIdempotencyStore(nil, 0)
	assert.Equal(t, DefaultIdempotencyTTL, store.ttl)
}
