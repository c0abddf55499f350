package core

import (
	"context"
	"time"
)

// FetchFunc produces a fresh value for a cache key. It is invoked by the
// cache on a miss or expiry, under single-flight per key.
type FetchFunc func(ctx context.Context) (any, error)

// Lookup describes how a cached value was obtained.
type Lookup struct {
	// Cached is true when the value came from the store rather than a fetch.
	Cached bool
	// Stale is true when the returned entry had outlived its TTL but was
	// served anyway because the fresh fetch failed.
	Stale bool
	// Age is the time since the entry was written; zero for freshly fetched
	// values.
	Age time.Duration
}

// Cache shields rate-limited upstream services from redundant requests and
// provides continuity when they fail.
//
// GetOrFetch semantics:
//  1. A live entry (age < ttl) is returned with Lookup{Cached: true}.
//  2. Otherwise fetch runs (once per key across concurrent callers); on
//     success the result is stored and returned with Lookup{Cached: false}.
//  3. On fetch failure an expired entry, if present, is returned with
//     Lookup{Cached: true, Stale: true} instead of the error, trading
//     freshness for availability.
//  4. With no entry at all the fetch failure propagates, wrapped.
//
// TTLs are category-specific and supplied by the caller per call, not
// hard-coded in the layer.
type Cache interface {
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (any, Lookup, error)
	Invalidate(ctx context.Context, key string) error
	Close() error
}
