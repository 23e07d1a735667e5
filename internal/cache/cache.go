package cache

import (
	"context"
	"time"
)

// Cache is a minimal TTL key/value store shared by the gate and the
// geolocation resolver. Entries are immutable once written; expiry is the
// only mutation, so backends need no locking beyond their own.
//
// Both components treat the cache as expendable: a backend error is never a
// correctness problem, only a lost shortcut.
type Cache interface {
	// Get returns the value for key and whether it was present and unexpired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key for the given TTL.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}
