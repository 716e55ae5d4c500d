// Package cache provides a small TTL key-value cache behind an interface so
// callers can be wired with the in-process store or a Redis-backed one.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL key-value store. Implementations must be safe for
// concurrent use; entries converge after their TTL expires.
type Cache interface {
	// Get returns the value for key and whether a live entry was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
