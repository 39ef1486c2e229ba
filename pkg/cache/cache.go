// Package cache provides the shared read-mostly cache used by tenant
// resolution: a Redis-backed implementation for deployments and an
// in-memory TTL map for tests and redis-less environments.
package cache

import (
	"context"
	"time"
)

// Cache stores small serialized values with a per-entry TTL.
type Cache interface {
	// Get returns the value and true on a hit; false on miss or expiry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
