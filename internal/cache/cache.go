// Package cache memoizes filesystem and runtime probes for a single discovery pass.
package cache

import (
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/watzon/fnlist/internal/metrics"
)

type entry struct {
	value any
	err   error
}

// RuntimeCache maps probe keys to previously computed results. One instance
// lives for exactly one discovery call; it has no eviction and no TTL.
//
// A nil *RuntimeCache is valid: lookups miss and Do runs the probe directly.
type RuntimeCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	joins  atomic.Int64
}

// Stats reports how probes were served by a RuntimeCache.
type Stats struct {
	Hits   int64
	Misses int64
	Joins  int64
}

// New creates an empty runtime cache.
func New() *RuntimeCache {
	return &RuntimeCache{
		entries: make(map[string]entry),
	}
}

// Key builds a cache key for a probe kind and a filesystem path.
func Key(kind, path string) string {
	return kind + ":" + path
}

// Get returns the value stored for key. Keys whose probe failed are reported
// as absent.
func (c *RuntimeCache) Get(key string) (any, bool) {
	e, ok := c.lookup(key)
	if !ok || e.err != nil {
		return nil, false
	}
	return e.value, true
}

// Set stores value for key, replacing any previous result.
func (c *RuntimeCache) Set(key string, value any) {
	c.store(key, entry{value: value})
}

// Stats returns a snapshot of the hit, miss and join counters.
func (c *RuntimeCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Joins:  c.joins.Load(),
	}
}

func (c *RuntimeCache) lookup(key string) (entry, bool) {
	if c == nil {
		return entry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	return e, ok
}

func (c *RuntimeCache) store(key string, e entry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = e
}

// Do returns the result of fn for key, running fn at most once per cache.
// Callers arriving while the first computation is still in flight wait for
// it and share its result. Errors are memoized along with values.
func Do[T any](c *RuntimeCache, key string, fn func() (T, error)) (T, error) {
	if c == nil {
		return fn()
	}

	kind := kindOf(key)

	if e, ok := c.lookup(key); ok {
		c.hits.Add(1)
		metrics.RecordProbe(kind, metrics.ProbeHit)
		return valueOf[T](e.value), e.err
	}

	result := metrics.ProbeJoin
	v, err, _ := c.group.Do(key, func() (any, error) {
		// A flight for this key may have completed between lookup and Do.
		if e, ok := c.lookup(key); ok {
			result = metrics.ProbeHit
			return e.value, e.err
		}

		result = metrics.ProbeMiss
		val, err := fn()
		c.store(key, entry{value: val, err: err})
		return val, err
	})

	switch result {
	case metrics.ProbeHit:
		c.hits.Add(1)
	case metrics.ProbeMiss:
		c.misses.Add(1)
	default:
		c.joins.Add(1)
	}
	metrics.RecordProbe(kind, result)

	return valueOf[T](v), err
}

func valueOf[T any](v any) T {
	t, _ := v.(T)
	return t
}

func kindOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "unknown"
}
