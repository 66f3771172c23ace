package auth

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

func TestInMemoryTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b := NewInMemoryTokenBlacklist()
	b.now = func() time.Time { return now }

	revoked, err := b.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, b.Revoke(ctx, "jti-1", time.Minute))
	require.NoError(t, b.Revoke(ctx, "jti-2", 0))

	revoked, _ = b.IsRevoked(ctx, "jti-1")
	assert.True(t, revoked)
	revoked, _ = b.IsRevoked(ctx, "jti-2")
	assert.False(t, revoked, "zero ttl is ignored")

	now = now.Add(time.Minute)
	revoked, _ = b.IsRevoked(ctx, "jti-1")
	assert.False(t, revoked, "entry expires with the token")
}

func TestRedisTokenBlacklist(t *testing.T) {
	addr := os.Getenv("SETTLE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SETTLE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	b := NewRedisTokenBlacklist(client)

	jti := uuid.NewString()
	require.NoError(t, b.Revoke(ctx, jti, time.Minute))
	revoked, err := b.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = b.IsRevoked(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, revoked)
}
