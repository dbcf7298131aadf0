package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/redis/go-redis/v9"
)

// redisCache stores JSON values under "<namespace>:<key>" so several
// storefront deployments can share one Redis.
type redisCache struct {
	client     *redis.Client
	namespace  string
	defaultTTL time.Duration
}

func NewRedisCache(client *redis.Client, cfg *config.Cache) Cache {
	return &redisCache{
		client:     client,
		namespace:  cfg.Namespace,
		defaultTTL: cfg.DefaultTTL,
	}
}

func (r *redisCache) key(key string) string {
	if r.namespace == "" {
		return key
	}
	return r.namespace + ":" + key
}

func (r *redisCache) Get(ctx context.Context, key string, value any) (bool, error) {

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s from cache: %w", key, err)
	}

	if err := json.Unmarshal(data, value); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}

	return true, nil
}

// Set encodes value as JSON; a ttl of zero or less uses the configured default.
func (r *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s for cache: %w", key, err)
	}

	if ttl <= 0 {
		ttl = r.defaultTTL
	}

	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s to cache: %w", key, err)
	}

	return nil
}

func (r *redisCache) Delete(ctx context.Context, keys ...string) error {

	if len(keys) == 0 {
		return nil
	}

	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = r.key(k)
	}

	if err := r.client.Del(ctx, namespaced...).Err(); err != nil {
		return fmt.Errorf("failed to evict %v from cache: %w", keys, err)
	}

	return nil
}

// Close releases the Redis client. The client is shared with the rate limiter
// and preference store, so call it only at shutdown.
func (r *redisCache) Close() error {
	return r.client.Close()
}
