package opendata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Peterstangolis/ontschoolsapp/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// BodyStore is a shared cache tier for dataset bodies, e.g. Redis.
type BodyStore interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Set(ctx context.Context, url string, body []byte, ttl time.Duration) error
}

// CacheOptions configures a CachedFetcher.
type CacheOptions struct {
	MaxEntries int
	// TTL is how long a body is served before it is downloaded again. Zero
	// keeps bodies until evicted or refetched.
	TTL   time.Duration
	Clock clockwork.Clock
	// Shared is consulted after the local cache misses. Optional.
	Shared BodyStore
	// FillTimeout bounds one download. Downloads are not bound to any
	// caller's context, so zero leaves only the inner fetcher's timeouts.
	FillTimeout time.Duration
}

// CachedFetcher wraps a Fetcher with an in-memory LRU cache and an optional
// shared tier. Concurrent misses for the same URL share one download.
type CachedFetcher struct {
	inner   Fetcher
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	shared  BodyStore
	timeout time.Duration
	group   singleflight.Group
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(inner Fetcher, opts CacheOptions, metrics *observability.Metrics, logger *slog.Logger) *CachedFetcher {
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 8
	}
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     opts.TTL,
		clock:   clk,
		shared:  opts.Shared,
		timeout: opts.FillTimeout,
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch returns a fresh cached body for url, downloading it on a miss.
func (c *CachedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if body, ok := c.cache.get(url, c.clock.Now()); ok {
		c.metrics.BodyCache.WithLabelValues("local", "hit").Inc()
		return body, nil
	}
	c.metrics.BodyCache.WithLabelValues("local", "miss").Inc()
	return c.fill(ctx, url, true)
}

// Refetch downloads url regardless of what is cached and stores the result.
func (c *CachedFetcher) Refetch(ctx context.Context, url string) ([]byte, error) {
	return c.fill(ctx, url, false)
}

// fill downloads url once for all concurrent callers. The download runs
// detached from ctx; each caller stops waiting when its own ctx ends.
func (c *CachedFetcher) fill(ctx context.Context, url string, useShared bool) ([]byte, error) {
	key := url
	if !useShared {
		key = "refetch:" + url
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := c.detach(ctx)
		defer cancel()
		return c.load(fctx, url, useShared)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *CachedFetcher) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func (c *CachedFetcher) load(ctx context.Context, url string, useShared bool) ([]byte, error) {
	if useShared {
		if body, ok := c.cache.get(url, c.clock.Now()); ok {
			return body, nil
		}
	}
	if useShared && c.shared != nil {
		body, ok, err := c.shared.Get(ctx, url)
		switch {
		case err != nil:
			c.logger.Warn("shared body cache read failed", "url", url, "error", err)
		case ok:
			c.metrics.BodyCache.WithLabelValues("shared", "hit").Inc()
			c.cache.put(url, body, c.expiry())
			return body, nil
		default:
			c.metrics.BodyCache.WithLabelValues("shared", "miss").Inc()
		}
	}

	body, err := c.inner.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	c.cache.put(url, body, c.expiry())
	if c.shared != nil {
		if err := c.shared.Set(ctx, url, body, c.ttl); err != nil {
			c.logger.Warn("shared body cache write failed", "url", url, "error", err)
		}
	}
	return body, nil
}

func (c *CachedFetcher) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.clock.Now().Add(c.ttl)
}

// lruCache is a thread-safe LRU cache of dataset bodies with per-entry expiry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     string
	value   []byte
	expires time.Time // zero never expires
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !now.Before(e.expires) {
		delete(c.entries, key)
		c.remove(e)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []byte, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
