package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces all cache keys in Redis to avoid collisions with
// other users of the same database.
const keyPrefix = "crsod:"

func init() {
	Register("redis", newRedisCache)
}

// redisCache implements Cache on plain SET-with-TTL semantics. Capacity
// bounding is left to Redis' own maxmemory policy; the Size field of the
// config is not enforced application-side for this backend.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisCache(cfg ProviderConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &redisCache{client: client, ttl: cfg.TTL}, nil
}

func (r *redisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		// redis.Nil is a normal cache miss; anything else is treated the
		// same way, the caller just refetches from the platform.
		return nil, false
	}
	return val, true
}

func (r *redisCache) Set(key string, value []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_ = r.client.Set(ctx, keyPrefix+key, value, r.ttl).Err()
}

func (r *redisCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var count int
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
