package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oggyb/codev-api/internal/config"
)

// RedisCache wraps the Redis client. The service uses it for short-lived
// distributed locks only; entity state is never cached.
type RedisCache struct {
	Client  *redis.Client
	LockTTL time.Duration
}

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	ttl := cfg.Redis.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisCache{Client: redis.NewClient(opts), LockTTL: ttl}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyForLikeToggle generates the lock key guarding one (solution, user) pair.
func (c *RedisCache) KeyForLikeToggle(solutionID, userID uuid.UUID) string {
	return fmt.Sprintf("lock:like:%s:%s", solutionID, userID)
}

// TryLock acquires key for LockTTL without waiting.
//
// Behavior:
//   - ok=false, err=nil when somebody else holds the lock.
//   - The returned release func is safe to call after expiry; it never
//     deletes a lock re-acquired by another holder.
func (c *RedisCache) TryLock(ctx context.Context, key string) (release func(), ok bool, err error) {
	token, err := newToken()
	if err != nil {
		return nil, false, err
	}

	ok, err = c.Client.SetNX(ctx, key, token, c.LockTTL).Result()
	if err != nil || !ok {
		return nil, false, err
	}

	release = func() {
		// detached: the caller's ctx may already be done
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, c.Client, []string{key}, token).Err()
	}
	return release, true, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
