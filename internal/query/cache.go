// Package query caches the results of read-only API calls by key.
//
// A key is an endpoint name plus its effective parameters. Fetch issues at
// most one call per key at a time, stores successful results, never caches
// failures and never retries. With the default StaleTime of zero, every
// Fetch revalidates while Peek still serves the previous result, which is
// "fetch once per distinct key, revalidate on remount".
package query

import (
	"context"
	"strings"
	"sync"
	"time"

	"storefront/internal/logging"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cached result: endpoint name first, then parameters.
type Key []string

// NewKey builds a key. Empty parameters are kept; ("products", "", "")
// and ("products", "shirt", "") are different keys.
func NewKey(endpoint string, params ...string) Key {
	return append(Key{endpoint}, params...)
}

// Endpoint returns the first element.
func (k Key) Endpoint() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// String is the canonical cache key.
func (k Key) String() string {
	var sb strings.Builder
	for i, part := range k {
		if i > 0 {
			sb.WriteByte('\x1f')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	group     singleflight.Group
	staleTime time.Duration
	now       func() time.Time
}

// NewCache creates a cache whose entries are fresh for staleTime.
func NewCache(staleTime time.Duration) *Cache {
	return &Cache{
		entries:   make(map[string]entry),
		staleTime: staleTime,
		now:       time.Now,
	}
}

// Peek returns the last successful value for key without any I/O.
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key.String()]
	return e.value, ok
}

// Fresh reports whether key has a value younger than StaleTime.
func (c *Cache) Fresh(key Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key.String()]
	return ok && c.staleTime > 0 && c.now().Sub(e.fetchedAt) < c.staleTime
}

// Fetch returns a fresh cached value or calls fn. Concurrent Fetches of the
// same key share one call.
func (c *Cache) Fetch(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	k := key.String()
	if c.Fresh(key) {
		v, _ := c.Peek(key)
		logging.QueryDebug("hit %v", []string(key))
		return v, nil
	}

	v, err, shared := c.group.Do(k, func() (any, error) {
		logging.QueryDebug("fetch %v", []string(key))
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[k] = entry{value: v, fetchedAt: c.now()}
		c.mu.Unlock()
		return v, nil
	})
	if shared {
		logging.QueryDebug("shared in-flight fetch %v", []string(key))
	}
	return v, err
}

// Set seeds key with v, e.g. with the response of a write.
func (c *Cache) Set(key Key, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = entry{value: v, fetchedAt: c.now()}
}

// Invalidate drops every entry whose endpoint matches.
func (c *Cache) Invalidate(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := Key{endpoint}.String()
	n := 0
	for k := range c.entries {
		if k == prefix || strings.HasPrefix(k, prefix+"\x1f") {
			delete(c.entries, k)
			n++
		}
	}
	logging.QueryDebug("invalidated %d entries for %s", n, endpoint)
}

// Clear drops everything, e.g. on logout.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Get is the typed form of Fetch.
func Get[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Cached is the typed form of Peek.
func Cached[T any](c *Cache, key Key) (T, bool) {
	v, ok := c.Peek(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
