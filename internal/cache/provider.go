package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss indicates the key was absent from the cache.
var ErrCacheMiss = errors.New("cache miss")

// Provider abstracts the reference-table cache.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// NoopProvider satisfies Provider without caching anything. Used when the
// cache is disabled or unreachable.
type NoopProvider struct{}

// Get always misses.
func (NoopProvider) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

// Set discards the value.
func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Close is a no-op.
func (NoopProvider) Close() error { return nil }
