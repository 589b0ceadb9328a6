package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Recorder receives cache hit and miss events.
type Recorder interface {
	ObserveCache(tag string, hit bool)
}

// Cache coordinates reads and invalidations over a Store.
type Cache struct {
	store     Store
	flight    singleflight.Group
	staleTime time.Duration
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// CacheOption customises a Cache.
type CacheOption func(*Cache)

// WithStaleTime treats entries older than d as stale even without invalidation.
// Zero keeps entries fresh until invalidated or evicted.
func WithStaleTime(d time.Duration) CacheOption {
	return func(c *Cache) { c.staleTime = d }
}

// WithRecorder installs a hit/miss recorder.
func WithRecorder(r Recorder) CacheOption {
	return func(c *Cache) { c.recorder = r }
}

// WithLogger sets the logger used for store failures.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

// NewCache instantiates the cache helper.
func NewCache(store Store, opts ...CacheOption) *Cache {
	c := &Cache{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scope returns a view of the cache whose reads are partitioned by name, usually
// the session username. Invalidations always apply across every scope.
func (c *Cache) Scope(name string) Scope {
	return Scope{cache: c, name: name}
}

// Invalidate makes every entry under each prefix stale so the next read refetches.
func (c *Cache) Invalidate(ctx context.Context, prefixes ...Key) error {
	for _, prefix := range prefixes {
		n, err := c.store.Invalidate(ctx, prefix)
		if err != nil {
			return err
		}
		c.logger.DebugContext(ctx, "cache invalidated", slog.String("key", prefix.String()), slog.Int("entries", n))
	}
	return nil
}

// Peek returns the stored entry for key in scope without fetching.
func (c *Cache) Peek(ctx context.Context, scope string, key Key) (Entry, bool, error) {
	return c.store.Get(ctx, storageID(key, scope))
}

// load returns the cached body for key or calls fetch to populate it. Concurrent
// loads of the same id share a single fetch. The shared fetch is detached from the
// caller that started it, so one caller going away does not fail the others; each
// caller still stops waiting when its own context ends.
func (c *Cache) load(ctx context.Context, scope string, key Key, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, bool, error) {
	id := storageID(key, scope)
	entry, ok, err := c.store.Get(ctx, id)
	if err != nil {
		c.logger.WarnContext(ctx, "cache get", slog.String("key", key.String()), slog.Any("error", err))
	}
	if err == nil && ok && c.fresh(entry) {
		c.record(key, true)
		return entry.Data, true, nil
	}
	c.record(key, false)

	detached := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(id, func() (any, error) {
		data, err := fetch(detached)
		if err != nil {
			return nil, err
		}
		if err := c.store.Set(detached, id, Entry{Data: data, FetchedAt: c.now()}); err != nil {
			c.logger.WarnContext(detached, "cache set", slog.String("key", key.String()), slog.Any("error", err))
		}
		return data, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(json.RawMessage), false, nil
	}
}

func (c *Cache) fresh(entry Entry) bool {
	if entry.Stale {
		return false
	}
	if c.staleTime > 0 && c.now().Sub(entry.FetchedAt) > c.staleTime {
		return false
	}
	return true
}

func (c *Cache) record(key Key, hit bool) {
	if c.recorder != nil {
		c.recorder.ObserveCache(key.Tag(), hit)
	}
}

// Scope is a per-user view of a Cache.
type Scope struct {
	cache *Cache
	name  string
}

// Name returns the scope partition name.
func (s Scope) Name() string { return s.name }

// Cache returns the underlying cache.
func (s Scope) Cache() *Cache { return s.cache }
