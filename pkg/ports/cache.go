package ports

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by ResultCache.Get when no entry exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// ResultCache stores encoded validation results. Entries are immutable once
// written; a later Set for the same key replaces the value.
type ResultCache interface {
	// Get returns the cached bytes for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key using the cache's configured expiry.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
