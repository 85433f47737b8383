// Package kv provides the persistent key-value capability the client keeps
// its lightweight preferences in: theme, voice output, last-active chat.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("kv: key not found")

// Store is a minimal string key-value store. Implementations must treat
// missing keys as ErrNotFound, never as empty values.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
