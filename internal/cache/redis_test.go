package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/codev-api/internal/cache"
	"github.com/oggyb/codev-api/internal/config"
)

func newCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.LockTTL = 2 * time.Second

	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestTryLock_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)
	key := c.KeyForLikeToggle(uuid.New(), uuid.New())

	release, ok, err := c.TryLock(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = c.TryLock(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	release()

	release2, ok, err := c.TryLock(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestTryLock_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)
	key := "lock:test"

	release, ok, err := c.TryLock(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(3 * time.Second)

	release2, ok, err := c.TryLock(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	// stale release must not drop the new holder's lock
	release()
	assert.True(t, mr.Exists(key))

	release2()
	assert.False(t, mr.Exists(key))
}

func TestKeyForLikeToggle(t *testing.T) {
	c, _ := newCache(t)
	s := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	u := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t, "lock:like:11111111-1111-1111-1111-111111111111:22222222-2222-2222-2222-222222222222", c.KeyForLikeToggle(s, u))
}
