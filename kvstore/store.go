package kvstore

import (
	"context"
	"time"
)

// Store is the minimal key-value contract required by the idempotency
// cache and the write-ahead log. Keys are opaque strings; the consumer
// decides the key schema. A TTL of 0 means no expiration.
type Store interface {
	// Get retrieves a value. The second return is false if the key does
	// not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value with optional TTL, overwriting any existing value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores a value only if the key is absent. Returns true if the
	// value was written.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys returns all live keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
