// Package cache provides a TTL cache that collapses concurrent fetches for
// the same key into one call.
//
// A Cache is an explicit value, not a process-wide singleton: construct one
// with New and hand it to whoever needs it. Values are stored as any and
// recovered with the generic Get and GetStale helpers.
package cache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrax/internal/log"
)

const (
	DefaultTTL            = 5 * time.Minute
	DefaultStaleRetention = 24 * time.Hour
)

// ErrTypeMismatch is returned when a cached or shared value is not of the requested type.
var ErrTypeMismatch = errors.New("cache: value type mismatch")

// ErrInvalidPattern is returned by InvalidatePattern for a pattern that is not a valid regular expression.
var ErrInvalidPattern = errors.New("cache: invalid pattern")

// Fetcher produces the value for a key. It receives a context that carries the
// leading caller's values but not its cancellation.
type Fetcher[T any] func(ctx context.Context) (T, error)

type Cache struct {
	mu      sync.Mutex
	entries *store
	group   *singleflight.Group
	pending map[string]uint64 // key -> generation of the in-flight fetch
	gen     uint64

	ttl            time.Duration
	staleRetention time.Duration
	now            func() time.Time
	logger         *log.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
	shared atomic.Uint64
	errors atomic.Uint64
}

type Option func(*Cache)

// WithDefaultTTL sets the TTL used when Get is called without WithTTL.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithMaxEntries bounds the cache; the least recently used entry is evicted first.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.entries.maxSize = n }
}

// WithStaleRetention sets how long expired entries stay readable through GetStale
// before CleanExpired drops them.
func WithStaleRetention(d time.Duration) Option {
	return func(c *Cache) {
		if d >= 0 {
			c.staleRetention = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.logger = l.WithComponent(log.ComponentCache) }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:        newStore(0),
		group:          &singleflight.Group{},
		pending:        make(map[string]uint64),
		ttl:            DefaultTTL,
		staleRetention: DefaultStaleRetention,
		now:            time.Now,
		logger:         log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type getOptions struct {
	ttl   time.Duration
	force bool
}

type GetOption func(*getOptions)

// WithTTL overrides the cache's default TTL for the entry this call stores.
func WithTTL(d time.Duration) GetOption {
	return func(o *getOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// ForceRefresh skips both the in-flight fetch and the cached entry. The new
// fetch becomes the in-flight one for the key.
func ForceRefresh() GetOption {
	return func(o *getOptions) { o.force = true }
}

// Get returns the value for key. If a fetch for key is already running the
// caller joins it; otherwise a valid entry is returned; otherwise fetch runs
// and a successful result is stored. A failed fetch leaves any previous entry
// in place and every joined caller receives the same error.
//
// When ctx ends first, Get returns ctx.Err() but the fetch keeps running and
// still populates the cache.
func Get[T any](ctx context.Context, c *Cache, key string, fetch Fetcher[T], opts ...GetOption) (T, error) {
	var zero T
	o := getOptions{ttl: c.ttl}
	for _, opt := range opts {
		opt(&o)
	}

	c.mu.Lock()
	gen, inFlight := c.pending[key]
	leader := o.force || !inFlight
	if leader {
		if !o.force {
			if e, ok := c.entries.get(key); ok && c.now().Before(e.expiresAt) {
				c.mu.Unlock()
				c.hits.Add(1)
				c.logger.DebugContext(ctx, "cache hit", log.FieldCacheKey, key)
				return cast[T](e.data)
			}
		}
		// A superseded flight keeps serving the callers that already joined it.
		c.group.Forget(key)
		c.gen++
		gen = c.gen
		c.pending[key] = gen
	}
	group := c.group
	fetchCtx := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (any, error) {
		return c.flight(fetchCtx, group, key, gen, o.ttl, func(ctx context.Context) (any, error) {
			return fetch(ctx)
		})
	})
	c.mu.Unlock()

	if leader {
		c.misses.Add(1)
		c.logger.DebugContext(ctx, "cache miss", log.FieldCacheKey, key, "forced", o.force)
	} else {
		c.shared.Add(1)
		c.logger.DebugContext(ctx, "joined in-flight fetch", log.FieldCacheKey, key)
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return cast[T](res.Val)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// flight runs one fetch and records its outcome. It is the function shared
// through the singleflight group.
func (c *Cache) flight(ctx context.Context, group *singleflight.Group, key string, gen uint64, ttl time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	v, err := fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[key] == gen {
		delete(c.pending, key)
		group.Forget(key)
	}
	if err != nil {
		c.errors.Add(1)
		c.logger.WarnContext(ctx, "cache fetch failed", log.FieldCacheKey, key, log.FieldError, err)
		return nil, err
	}

	// An older flight finishing late must not overwrite a newer result.
	if e, ok := c.entries.peek(key); ok && e.gen > gen {
		return v, nil
	}
	now := c.now()
	if evicted := c.entries.set(&entry{key: key, data: v, timestamp: now, expiresAt: now.Add(ttl), gen: gen}); evicted > 0 {
		c.logger.DebugContext(ctx, "evicted least recently used entries", log.FieldCacheRemoved, evicted)
	}
	return v, nil
}

func cast[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: have %T, want %T", ErrTypeMismatch, v, zero)
	}
	return t, nil
}

// GetStale returns the cached value for key whether or not it has expired.
// It never fetches.
func GetStale[T any](c *Cache, key string) (T, bool) {
	var zero T
	c.mu.Lock()
	e, ok := c.entries.peek(key)
	c.mu.Unlock()
	if !ok {
		return zero, false
	}
	v, err := cast[T](e.data)
	if err != nil {
		return zero, false
	}
	return v, true
}

// IsValid reports whether key has an entry that has not yet expired.
func (c *Cache) IsValid(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.peek(key)
	return ok && c.now().Before(e.expiresAt)
}

// Invalidate removes the entry for key. A fetch already running for key is
// left alone and will store its result when it completes.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	removed := c.entries.delete(key)
	c.mu.Unlock()
	if removed {
		c.logger.Debug("cache entry invalidated", log.FieldCacheKey, key)
	}
	return removed
}

// InvalidatePattern removes every entry whose key matches the regular
// expression and returns how many were removed.
func (c *Cache) InvalidatePattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
	}
	c.mu.Lock()
	removed := c.entries.deleteWhere(func(e *entry) bool { return re.MatchString(e.key) })
	c.mu.Unlock()
	c.logger.Debug("cache entries invalidated", log.FieldCachePattern, pattern, log.FieldCacheRemoved, removed)
	return removed, nil
}

// Clear drops every entry and forgets every in-flight fetch. Fetches that are
// already running still store their results.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries.reset()
	c.pending = make(map[string]uint64)
	c.group = &singleflight.Group{}
	c.mu.Unlock()
	c.logger.Debug("cache cleared")
}

// CleanExpired removes entries that expired more than the stale-retention
// window ago and returns how many were removed.
func (c *Cache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-c.staleRetention)
	return c.entries.deleteWhere(func(e *entry) bool { return e.expiresAt.Before(cutoff) })
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Shared  uint64 `json:"shared"`
	Errors  uint64 `json:"errors"`
	Entries int    `json:"entries"`
	Pending int    `json:"pending"`
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	entries, pending := c.entries.len(), len(c.pending)
	c.mu.Unlock()
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Shared:  c.shared.Load(),
		Errors:  c.errors.Load(),
		Entries: entries,
		Pending: pending,
	}
}
