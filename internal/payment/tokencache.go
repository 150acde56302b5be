package payment

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache holds processor access tokens between requests.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, token string, ttl time.Duration)
}

// RedisTokenCache shares tokens across BFF replicas. Redis errors are
// treated as misses.
type RedisTokenCache struct {
	rdb *redis.Client
}

// NewRedisTokenCache returns nil when rdb is nil so callers fall back to
// fetching a token per call.
func NewRedisTokenCache(rdb *redis.Client) TokenCache {
	if rdb == nil {
		return nil
	}
	return &RedisTokenCache{rdb: rdb}
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, bool) {
	tok, err := c.rdb.Get(ctx, key).Result()
	if err != nil || tok == "" {
		return "", false
	}
	return tok, true
}

func (c *RedisTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) {
	_ = c.rdb.Set(ctx, key, token, ttl).Err()
}

type noCache struct{}

func (noCache) Get(context.Context, string) (string, bool) { return "", false }
func (noCache) Set(context.Context, string, string, time.Duration) {}
