package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type product struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(128, time.Hour),
		"redis":  NewRedisStore(client, time.Hour),
	}
}

func countingQuery(key Key, calls *atomic.Int32, value []product) Query[[]product] {
	return New(key, func(ctx context.Context) ([]product, error) {
		calls.Add(1)
		return value, nil
	})
}

func TestSameKeyIsCacheHit(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			scope := NewCache(store).Scope("dewi")
			var calls atomic.Int32
			q := countingQuery(NewKey("get-all-product"), &calls, []product{{ID: 1, Name: "Kaos"}})

			first := q.Run(context.Background(), scope)
			require.True(t, first.OK())
			assert.False(t, first.FromCache)

			second := q.Run(context.Background(), scope)
			require.True(t, second.OK())
			assert.True(t, second.FromCache)
			assert.Equal(t, first.Data, second.Data)
			assert.EqualValues(t, 1, calls.Load())
		})
	}
}

func TestInvalidationMarksStaleAndRefetches(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			cache := NewCache(store)
			scope := cache.Scope("dewi")
			ctx := context.Background()

			var productCalls, stockCalls, brandCalls atomic.Int32
			products := countingQuery(NewKey("get-all-product"), &productCalls, []product{{ID: 1}})
			stock := countingQuery(NewKey("get-stock-by-product", 1), &stockCalls, []product{{ID: 1}})
			brands := countingQuery(NewKey("get-all-brand"), &brandCalls, []product{{ID: 9}})
			for _, q := range []Query[[]product]{products, stock, brands} {
				require.True(t, q.Run(ctx, scope).OK())
			}

			m := Mutation[int, int]{
				Name:           "create-stock-in",
				Do:             func(ctx context.Context, in int) (int, error) { return in, nil },
				Invalidates:    []Key{NewKey("get-all-product"), NewKey("get-stock-by-product")},
				SuccessMessage: "Stok berhasil ditambahkan",
			}
			_, notice, err := m.Execute(ctx, scope, 1)
			require.NoError(t, err)
			assert.Equal(t, "Stok berhasil ditambahkan", notice.Message)

			for _, key := range []Key{NewKey("get-all-product"), NewKey("get-stock-by-product", 1)} {
				entry, ok, err := cache.Peek(ctx, "dewi", key)
				require.NoError(t, err)
				// The memory store drops invalidated entries, redis flags them.
				assert.True(t, !ok || entry.Stale, key.String())
			}
			_, ok, err := cache.Peek(ctx, "dewi", NewKey("get-all-brand"))
			require.NoError(t, err)
			assert.True(t, ok)

			for _, q := range []Query[[]product]{products, stock, brands} {
				require.True(t, q.Run(ctx, scope).OK())
			}
			assert.EqualValues(t, 2, productCalls.Load())
			assert.EqualValues(t, 2, stockCalls.Load())
			assert.EqualValues(t, 1, brandCalls.Load())
		})
	}
}

func TestInvalidationSpansScopes(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			cache := NewCache(store)
			ctx := context.Background()
			var calls atomic.Int32
			q := countingQuery(NewKey("get-all-order"), &calls, nil)

			require.True(t, q.Run(ctx, cache.Scope("a")).OK())
			require.True(t, q.Run(ctx, cache.Scope("b")).OK())
			assert.EqualValues(t, 2, calls.Load())

			require.NoError(t, cache.Invalidate(ctx, NewKey("get-all-order")))
			require.True(t, q.Run(ctx, cache.Scope("a")).OK())
			require.True(t, q.Run(ctx, cache.Scope("b")).OK())
			assert.EqualValues(t, 4, calls.Load())
		})
	}
}

func TestDisabledQueryNeverFetches(t *testing.T) {
	var calls atomic.Int32
	id := ""
	q := countingQuery(NewKey("get-product", id), &calls, nil).When(id != "")

	res := q.Run(context.Background(), NewCache(NewMemoryStore(16, time.Minute)).Scope("x"))
	assert.Equal(t, StatusIdle, res.Status)
	assert.False(t, q.Enabled())
	assert.Zero(t, calls.Load())
}

func TestFailedReadLeavesNoEntry(t *testing.T) {
	cache := NewCache(NewMemoryStore(16, time.Minute))
	boom := errors.New("boom")
	q := New(NewKey("get-brand", 3), func(ctx context.Context) (product, error) {
		return product{}, boom
	})

	res := q.Run(context.Background(), cache.Scope("x"))
	assert.Equal(t, StatusError, res.Status)
	assert.ErrorIs(t, res.Err, boom)

	_, ok, err := cache.Peek(context.Background(), "x", NewKey("get-brand", 3))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentReadsShareFetch(t *testing.T) {
	cache := NewCache(NewMemoryStore(16, time.Minute))
	release := make(chan struct{})
	var calls atomic.Int32
	q := New(NewKey("get-all-printing"), func(ctx context.Context) ([]product, error) {
		calls.Add(1)
		<-release
		return []product{{ID: 1}}, nil
	})

	var wg sync.WaitGroup
	results := make([]Result[[]product], 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = q.Run(context.Background(), cache.Scope("x"))
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, res := range results {
		assert.True(t, res.OK())
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestSharedFetchSurvivesFirstCallerCancel(t *testing.T) {
	cache := NewCache(NewMemoryStore(16, time.Minute))
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	q := New(NewKey("get-all-printing"), func(ctx context.Context) ([]product, error) {
		calls.Add(1)
		close(started)
		select {
		case <-release:
			return []product{{ID: 7}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan Result[[]product], 1)
	go func() { first <- q.Run(firstCtx, cache.Scope("x")) }()
	<-started

	second := make(chan Result[[]product], 1)
	go func() { second <- q.Run(context.Background(), cache.Scope("x")) }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	res := <-first
	assert.Equal(t, StatusError, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)

	close(release)
	res = <-second
	require.True(t, res.OK(), "second caller: %v", res.Err)
	assert.Equal(t, []product{{ID: 7}}, res.Data)
	assert.EqualValues(t, 1, calls.Load())

	_, ok, err := cache.Peek(context.Background(), "x", NewKey("get-all-printing"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryInvalidateDropsEntries(t *testing.T) {
	store := NewMemoryStore(16, time.Hour)
	ctx := context.Background()
	for _, id := range []string{
		storageID(NewKey("get-all-order"), "dewi"),
		storageID(NewKey("get-order", 1), "dewi"),
		storageID(NewKey("get-all-order"), "rina"),
		storageID(NewKey("get-all-brand"), "dewi"),
	} {
		require.NoError(t, store.Set(ctx, id, Entry{Data: []byte(`[]`), FetchedAt: time.Now()}))
	}
	require.Equal(t, 4, store.Len())

	n, err := store.Invalidate(ctx, NewKey("get-all-order"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, store.Len())

	_, ok, err := store.Get(ctx, storageID(NewKey("get-all-order"), "dewi"))
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.Get(ctx, storageID(NewKey("get-all-brand"), "dewi"))
	require.NoError(t, err)
	assert.True(t, ok)

	// Nothing left under the prefix, so repeated invalidations keep nothing resident.
	n, err = store.Invalidate(ctx, NewKey("get-all-order"))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, store.Len())
}

func TestStaleTimeExpiresEntries(t *testing.T) {
	cache := NewCache(NewMemoryStore(16, time.Hour), WithStaleTime(time.Minute))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	var calls atomic.Int32
	q := countingQuery(NewKey("get-all-shipping"), &calls, nil)

	q.Run(context.Background(), cache.Scope("x"))
	q.Run(context.Background(), cache.Scope("x"))
	assert.EqualValues(t, 1, calls.Load())

	now = now.Add(2 * time.Minute)
	q.Run(context.Background(), cache.Scope("x"))
	assert.EqualValues(t, 2, calls.Load())
}

func TestRedisSweepRemovesStale(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisStore(client, time.Hour)
	cache := NewCache(store)
	ctx := context.Background()

	var calls atomic.Int32
	require.True(t, countingQuery(NewKey("get-all-brand"), &calls, nil).Run(ctx, cache.Scope("x")).OK())
	require.True(t, countingQuery(NewKey("get-all-user"), &calls, nil).Run(ctx, cache.Scope("x")).OK())
	require.NoError(t, cache.Invalidate(ctx, NewKey("get-all-brand")))

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok, err := cache.Peek(ctx, "x", NewKey("get-all-user"))
	require.NoError(t, err)
	assert.True(t, ok)
}

type countingRecorder struct {
	hits, misses int
}

func (r *countingRecorder) ObserveCache(tag string, hit bool) {
	if hit {
		r.hits++
		return
	}
	r.misses++
}

func TestRecorderSeesHitsAndMisses(t *testing.T) {
	rec := &countingRecorder{}
	cache := NewCache(NewMemoryStore(16, time.Minute), WithRecorder(rec))
	var calls atomic.Int32
	q := countingQuery(NewKey("get-all-customer"), &calls, nil)
	q.Run(context.Background(), cache.Scope("x"))
	q.Run(context.Background(), cache.Scope("x"))
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
}
