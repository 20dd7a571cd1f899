package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rustyeddy/tradereplay/market"
)

// CacheConfig sizes the feed cache. Cost is counted in bars.
type CacheConfig struct {
	MaxBars int64
	TTL     time.Duration
}

// Cache holds recently fetched feeds so restarting a session after a reset
// does not hit the backend again.
type Cache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

func NewCache(cfg CacheConfig) (*Cache, error) {
	if cfg.MaxBars <= 0 {
		cfg.MaxBars = 1 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     cfg.MaxBars,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create feed cache: %w", err)
	}
	return &Cache{c: c, ttl: cfg.TTL}, nil
}

// Get returns a copy of the cached feed.
func (c *Cache) Get(q Query) (*market.Feed, bool) {
	v, ok := c.c.Get(q.CacheKey())
	if !ok {
		return nil, false
	}
	f, ok := v.(*market.Feed)
	if !ok {
		return nil, false
	}
	return f.Clone(), true
}

// Set stores a copy of f. Admission is asynchronous; call Wait to make it
// visible immediately.
func (c *Cache) Set(q Query, f *market.Feed) bool {
	cost := int64(f.Len()) + 1
	return c.c.SetWithTTL(q.CacheKey(), f.Clone(), cost, c.ttl)
}

func (c *Cache) Del(q Query) { c.c.Del(q.CacheKey()) }

func (c *Cache) Wait() { c.c.Wait() }

func (c *Cache) Close() { c.c.Close() }

// CachedLoader serves feeds from a Cache and falls through to next on a miss.
type CachedLoader struct {
	next  Loader
	cache *Cache
}

func NewCachedLoader(next Loader, cache *Cache) *CachedLoader {
	return &CachedLoader{next: next, cache: cache}
}

func (l *CachedLoader) Load(ctx context.Context, q Query) (*market.Feed, error) {
	if f, ok := l.cache.Get(q); ok {
		return f, nil
	}
	f, err := l.next.Load(ctx, q)
	if err != nil {
		return nil, err
	}
	l.cache.Set(q, f)
	return f, nil
}
