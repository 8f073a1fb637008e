// Package kvstore holds the key-value store contract the notes are persisted
// through, and its redis and in-memory implementations.
package kvstore

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

var _ Store = (*RedisStore)(nil)
var _ Store = (*MemoryStore)(nil)

// Store is a minimal key-value store. Values may come back either as raw
// encoded strings or as already decoded structures, depending on the
// implementation.
type Store interface {
	// Get returns ErrKeyNotFound when the key is absent.
	Get(ctx context.Context, key string) (any, error)
	Set(ctx context.Context, key string, value any) error
	// Del returns the number of removed keys.
	Del(ctx context.Context, key string) (int64, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	// MGet values are aligned with keys, nil marks a missing key.
	MGet(ctx context.Context, keys ...string) ([]any, error)
}
