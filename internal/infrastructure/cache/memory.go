package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ingredientscout/backend/internal/domain"
)

// cacheItem represents a single credential in the cache with expiration
type cacheItem struct {
	Value      domain.Credential
	Expiration time.Time
}

// MemoryCache is a thread-safe in-memory credential store with TTL support
type MemoryCache struct {
	data  map[string]cacheItem
	mutex sync.RWMutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a new in-memory credential store and starts its janitor
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	cache := &MemoryCache{
		data: make(map[string]cacheItem),
		now:  time.Now,
		stop: make(chan struct{}),
	}

	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	go cache.cleanupExpired(cleanupInterval)

	return cache
}

// Get retrieves a credential from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) (domain.Credential, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists || c.now().After(item.Expiration) {
		return domain.Credential{}, domain.ErrCacheMiss
	}

	return item.Value, nil
}

// Set stores a credential in the cache with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, cred domain.Credential, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem{
		Value:      cred,
		Expiration: c.now().Add(ttl),
	}
	return nil
}

// Delete removes a credential from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Close stops the janitor goroutine
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.purge()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) purge() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, item := range c.data {
		if now.After(item.Expiration) {
			delete(c.data, key)
		}
	}
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}
