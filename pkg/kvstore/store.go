// Package kvstore is the injected key-value store: saved analyses and the
// narrative cache live here. Core packages never reach for a global store.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for missing or expired keys.
var ErrNotFound = errors.New("key not found")

// Store is a byte-valued key-value store with optional expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key; a ttl of zero keeps it until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
