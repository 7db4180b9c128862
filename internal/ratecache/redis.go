package ratecache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Cache backed by Redis, for deployments where multiple
// quote servers should share resolved rates.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the Redis instance at addr. A non-positive ttl
// uses DefaultTTL.
func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{client: rdb, ttl: ttl}
}

// Get returns the cached APR for key, or false on a miss or any Redis error.
func (r *RedisCache) Get(ctx context.Context, key string) (float64, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return 0, false
	}
	apr, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return apr, true
}

// Set stores the APR for key with the cache's TTL.
func (r *RedisCache) Set(ctx context.Context, key string, apr float64) error {
	return r.client.Set(ctx, key, strconv.FormatFloat(apr, 'f', -1, 64), r.ttl).Err()
}
