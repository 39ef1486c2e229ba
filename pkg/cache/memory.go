package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache implements Cache with an in-process map. Used in tests and
// when no Redis address is configured.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]memoryItem
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]memoryItem)}
}

// Get returns the value if present and not expired.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	item, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(item.expiresAt) {
		return nil, false, nil
	}
	return item.value, true, nil
}

// Set stores the value with TTL. Expired entries are dropped lazily on the
// next Set to keep the map bounded without a janitor goroutine.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, v := range c.data {
		if now.After(v.expiresAt) {
			delete(c.data, k)
		}
	}
	c.data[key] = memoryItem{value: value, expiresAt: now.Add(ttl)}
	return nil
}

// Delete removes the key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}
