package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"

	"github.com/growmesh/growmesh/core"
	"github.com/growmesh/growmesh/logging"
)

// envelope is the stored wire form of a cache entry. Entries carry their own
// write time and are stored without a Redis expiry: freshness is computed
// against the caller-supplied TTL on read, so an expired entry remains
// available for stale-on-failure degradation until invalidated.
type envelope struct {
	Written time.Time       `json:"written"`
	Value   json.RawMessage `json:"value"`
}

// RedisCache is a core.Cache implementation backed by a shared Redis
// instance, letting multiple agents (or processes) reuse each other's
// fetches. Values must be JSON-serializable; callers get back decoded
// map/slice/primitive forms.
//
// The single-flight guard is process-local: two processes may still fetch
// the same key concurrently, which is acceptable for the quota budgets this
// layer protects.
type RedisCache struct {
	client *redis.Client
	prefix string
	flight singleflight.Group
	logger logging.Logger
}

// RedisOptions holds overrides for NewRedisCache.
type RedisOptions struct {
	// Password authenticates against protected instances.
	Password string
	// DB selects the logical Redis database.
	DB int
	// KeyPrefix namespaces all cache keys. Defaults to "growmesh:cache:".
	KeyPrefix string
	// Logger receives cache lookup records. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewRedisCache connects to Redis at addr and verifies the connection with a
// ping before returning.
func NewRedisCache(ctx context.Context, addr string, optFns ...func(o *RedisOptions)) (*RedisCache, error) {
	opts := RedisOptions{KeyPrefix: "growmesh:cache:", Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: opts.Password, DB: opts.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis connection to %s failed: %w", addr, err)
	}

	return &RedisCache{client: client, prefix: opts.KeyPrefix, logger: opts.Logger}, nil
}

// GetOrFetch implements core.Cache over the shared Redis store.
func (c *RedisCache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch core.FetchFunc) (any, core.Lookup, error) {
	if env, ok := c.load(ctx, key); ok {
		if age := time.Since(env.Written); age < ttl {
			value, err := decode(env.Value)
			if err == nil {
				c.logger.Debug("cache hit", "key", key, "age", age)
				return value, core.Lookup{Cached: true, Age: age}, nil
			}
			// Unreadable entry: fall through to refetch.
			c.logger.Warn("cache entry undecodable, refetching", "key", key, "error", err)
		}
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		if env, ok := c.load(ctx, key); ok {
			if age := time.Since(env.Written); age < ttl {
				if value, err := decode(env.Value); err == nil {
					return flightResult{value: value, lookup: core.Lookup{Cached: true, Age: age}}, nil
				}
			}
		}

		value, fetchErr := fetch(ctx)
		if fetchErr == nil {
			if err := c.store(ctx, key, value); err != nil {
				c.logger.Warn("cache store failed", "key", key, "error", err)
			}
			return flightResult{value: value, lookup: core.Lookup{}}, nil
		}

		if env, ok := c.load(ctx, key); ok {
			if value, err := decode(env.Value); err == nil {
				age := time.Since(env.Written)
				c.logger.Warn("cache serving stale entry after fetch failure",
					"key", key, "age", age, "error", fetchErr)
				return flightResult{value: value, lookup: core.Lookup{Cached: true, Stale: true, Age: age}}, nil
			}
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
func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache: invalidate %q failed: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error { return c.client.Close() }

func (c *RedisCache) load(ctx context.Context, key string) (envelope, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return envelope{}, false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, false
	}
	return env, true
}

func (c *RedisCache) store(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	data, err := json.Marshal(envelope{Written: time.Now().UTC(), Value: raw})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return c.client.Set(ctx, c.prefix+key, data, 0).Err()
}

func decode(raw json.RawMessage) (any, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return value, nil
}
