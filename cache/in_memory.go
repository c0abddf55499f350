package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/growmesh/growmesh/core"
	"github.com/growmesh/growmesh/logging"
)

// entry is a stored value plus its write time. Entries are retained past
// their TTL so the stale-on-failure path has something to fall back to;
// only Invalidate removes them.
type entry struct {
	value   any
	written time.Time
}

// InMemoryCache is a volatile core.Cache implementation storing entries in a
// process local map. It is safe for concurrent access. Concurrent misses for
// the same key are coalesced into a single fetch; a refresh in progress is
// never duplicated.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	flight  singleflight.Group
	logger  logging.Logger
}

// InMemoryOptions holds overrides for NewInMemoryCache.
type InMemoryOptions struct {
	// Logger receives cache lookup records. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewInMemoryCache constructs an empty in-memory cache.
func NewInMemoryCache(optFns ...func(o *InMemoryOptions)) *InMemoryCache {
	opts := InMemoryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryCache{entries: make(map[string]entry), logger: opts.Logger}
}

// flightResult carries the value and its lookup tags out of a single-flight
// call so every coalesced caller observes the same outcome.
type flightResult struct {
	value  any
	lookup core.Lookup
}

// GetOrFetch implements core.Cache. See the interface documentation for the
// full freshness / degradation contract.
func (c *InMemoryCache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch core.FetchFunc) (any, core.Lookup, error) {
	if e, ok := c.get(key); ok {
		if age := time.Since(e.written); age < ttl {
			lookup := core.Lookup{Cached: true, Age: age}
			c.logger.Debug("cache hit", "key", key, "age", age)
			return e.value, lookup, nil
		}
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		// A concurrent caller may have refreshed the key while this one
		// waited on the flight group.
		if e, ok := c.get(key); ok {
			if age := time.Since(e.written); age < ttl {
				return flightResult{value: e.value, lookup: core.Lookup{Cached: true, Age: age}}, nil
			}
		}

		value, fetchErr := fetch(ctx)
		if fetchErr == nil {
			c.put(key, value)
			return flightResult{value: value, lookup: core.Lookup{}}, nil
		}

		// Expired entry beats a hard failure for quota-bound data.
		if e, ok := c.get(key); ok {
			c.logger.Warn("cache serving stale entry after fetch failure",
				"key", key, "age", time.Since(e.written), "error", fetchErr)
			return flightResult{value: e.value, lookup: core.Lookup{Cached: true, Stale: true, Age: time.Since(e.written)}}, nil
		}

		return nil, fmt.Errorf("cache: fetch for key %q failed: %w", key, fetchErr)
	})
	if err != nil {
		return nil, core.Lookup{}, err
	}

	res := v.(flightResult)
	return res.value, res.lookup, nil
}

// Invalidate removes the entry for key, including any stale copy.
func (c *InMemoryCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Close implements core.Cache. The in-memory cache holds no external
// resources.
func (c *InMemoryCache) Close() error { return nil }

// Len returns the number of stored entries, fresh or stale.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *InMemoryCache) get(key string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *InMemoryCache) put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, written: time.Now()}
}
