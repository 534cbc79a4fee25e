package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ingredientscout/backend/internal/domain"
)

// RedisCache stores credentials in Redis so a restarted process can reuse a live token
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache parses a redis:// URL and returns a credential store backed by it
func NewRedisCache(redisURL, prefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisCacheFromClient(redis.NewClient(opts), prefix), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (r *RedisCache) key(key string) string {
	return r.prefix + key
}

// Get retrieves a credential from Redis
func (r *RedisCache) Get(ctx context.Context, key string) (domain.Credential, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Credential{}, domain.ErrCacheMiss
	}
	if err != nil {
		return domain.Credential{}, fmt.Errorf("%w: redis GET %s: %v", domain.ErrCacheUnavailable, key, err)
	}

	var cred domain.Credential
	if err := json.Unmarshal(val, &cred); err != nil {
		return domain.Credential{}, fmt.Errorf("failed to decode cached credential %s: %w", key, err)
	}
	return cred, nil
}

// Set stores a credential in Redis with TTL
func (r *RedisCache) Set(ctx context.Context, key string, cred domain.Credential, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis SET %s: %v", domain.ErrCacheUnavailable, key, err)
	}
	return nil
}

// Delete removes a credential from Redis
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: redis DEL %s: %v", domain.ErrCacheUnavailable, key, err)
	}
	return nil
}

// Close releases the Redis connection pool
func (r *RedisCache) Close() error {
	return r.client.Close()
}
