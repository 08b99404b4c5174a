// Package store is the external key-value service the game state lives
// in. Values carry a TTL on every write, so an abandoned session falls
// out of the store on its own; the TTL is a safety valve, never a
// concurrency primitive. Writes are last-write-wins.
package store

import (
	"context"
	"errors"
	"time"
)

// KV is the contract every backend satisfies.
type KV interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes the value and resets its expiry to ttl from now.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// ListKeys returns every live key with the given prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

var ErrKeyNotFound = errors.New("key not found")
