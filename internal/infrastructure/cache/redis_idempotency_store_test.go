package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Redis when SETTLE_TEST_REDIS_ADDR is set.
func newRedisTestStore(t *testing.T) *RedisIdempotencyStore {
	t.Helper()
	addr := os.Getenv("SETTLE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SETTLE_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	store := NewRedisIdempotencyStoreWithClient(client, "settle:test:"+uuid.NewString()+":")
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Ping(context.Background()))
	return store
}

func TestRedisIdempotencyStore(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()

	ok, err := store.MarkProcessed(ctx, "op-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.MarkProcessed(ctx, "op-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	processed, err := store.IsProcessed(ctx, "op-1")
	require.NoError(t, err)
	assert.True(t, processed)

	require.NoError(t, store.Forget(ctx, "op-1"))
	processed, err = store.IsProcessed(ctx, "op-1")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestNewRedisIdempotencyStoreWithClient_DefaultPrefix(t *testing.T) {
	store := NewRedisIdempotencyStoreWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "")
	defer store.Close()

	assert.Equal(t, DefaultKeyPrefix, store.keyPrefix)
}
