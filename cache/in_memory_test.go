package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growmesh/growmesh/core"
)

func countingFetch(value any, err error, calls *atomic.Int64) core.FetchFunc {
	return func(context.Context) (any, error) {
		calls.Add(1)
		if err != nil {
			return nil, err
		}
		return value, nil
	}
}

func TestInMemoryCache_FreshHitSkipsFetch(t *testing.T) {
	c := NewInMemoryCache()
	var calls atomic.Int64
	fetch := countingFetch("metrics", nil, &calls)

	v1, lookup1, err := c.GetOrFetch(context.Background(), "analytics:site", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "metrics", v1)
	assert.False(t, lookup1.Cached)
	assert.False(t, lookup1.Stale)

	v2, lookup2, err := c.GetOrFetch(context.Background(), "analytics:site", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, "metrics", v2)
	assert.True(t, lookup2.Cached)
	assert.False(t, lookup2.Stale)

	assert.Equal(t, int64(1), calls.Load(), "second call within ttl must be served from cache")
}

func TestInMemoryCache_ExpiredEntryRefetches(t *testing.T) {
	c := NewInMemoryCache()
	var calls atomic.Int64
	fetch := countingFetch("v", nil, &calls)

	_, _, err := c.GetOrFetch(context.Background(), "k", time.Nanosecond, fetch)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, lookup, err := c.GetOrFetch(context.Background(), "k", time.Nanosecond, fetch)
	require.NoError(t, err)
	assert.False(t, lookup.Cached)
	assert.Equal(t, int64(2), calls.Load())
}

func TestInMemoryCache_StaleOnFailure(t *testing.T) {
	c := NewInMemoryCache()

	var calls atomic.Int64
	_, _, err := c.GetOrFetch(context.Background(), "seo:keywords", time.Nanosecond, countingFetch("old-keywords", nil, &calls))
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	upstream := errors.New("quota exceeded")
	v, lookup, err := c.GetOrFetch(context.Background(), "seo:keywords", time.Nanosecond, countingFetch(nil, upstream, &calls))
	require.NoError(t, err, "prior entry must shield the fetch failure")
	assert.Equal(t, "old-keywords", v)
	assert.True(t, lookup.Cached)
	assert.True(t, lookup.Stale)
	assert.Greater(t, lookup.Age, time.Duration(0))
}

func TestInMemoryCache_FailureWithoutEntryPropagates(t *testing.T) {
	c := NewInMemoryCache()
	upstream := errors.New("service down")

	var calls atomic.Int64
	_, _, err := c.GetOrFetch(context.Background(), "missing", time.Minute, countingFetch(nil, upstream, &calls))
	require.Error(t, err)
	assert.ErrorIs(t, err, upstream, "original cause must be preserved")
}

func TestInMemoryCache_SingleFlight(t *testing.T) {
	c := NewInMemoryCache()

	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context) (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := c.GetOrFetch(context.Background(), "hot", time.Minute, fetch)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent misses must coalesce into one fetch")
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}

func TestInMemoryCache_Invalidate(t *testing.T) {
	c := NewInMemoryCache()
	var calls atomic.Int64
	fetch := countingFetch("v", nil, &calls)

	_, _, err := c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Invalidate(context.Background(), "k"))
	assert.Equal(t, 0, c.Len())

	_, lookup, err := c.GetOrFetch(context.Background(), "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.False(t, lookup.Cached)
	assert.Equal(t, int64(2), calls.Load())
}
