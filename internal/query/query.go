package query

import (
	"context"
	"encoding/json"
	"fmt"
)

// Status describes the outcome of a read.
type Status int

const (
	// StatusIdle means the read was gated off and never issued.
	StatusIdle Status = iota
	// StatusSuccess means data is available.
	StatusSuccess
	// StatusError means the fetch failed; Err holds the cause.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the outcome of running a Query. Failures are reported here rather than
// returned, so callers render an error state instead of aborting.
type Result[T any] struct {
	Key       Key
	Data      T
	Status    Status
	Err       error
	FromCache bool
}

// OK reports whether Data is usable.
func (r Result[T]) OK() bool { return r.Status == StatusSuccess }

// Query is a cached read registered under Key.
type Query[T any] struct {
	key     Key
	enabled bool
	fetch   func(context.Context) (T, error)
}

// New returns an enabled query.
func New[T any](key Key, fetch func(context.Context) (T, error)) Query[T] {
	return Query[T]{key: key, enabled: true, fetch: fetch}
}

// When gates the query; a disabled query never calls its fetch function. Use it
// for reads that need an identifier or search term to be present.
func (q Query[T]) When(enabled bool) Query[T] {
	q.enabled = q.enabled && enabled
	return q
}

// Key returns the cache key.
func (q Query[T]) Key() Key { return q.key }

// Enabled reports whether the query will be issued.
func (q Query[T]) Enabled() bool { return q.enabled }

// Run resolves the query through the scope's cache.
func (q Query[T]) Run(ctx context.Context, s Scope) Result[T] {
	res := Result[T]{Key: q.key}
	if !q.enabled || q.fetch == nil {
		return res
	}
	data, fromCache, err := s.cache.load(ctx, s.name, q.key, func(ctx context.Context) (json.RawMessage, error) {
		v, err := q.fetch(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("query: encode %s: %w", q.key, err)
		}
		return raw, nil
	})
	if err != nil {
		res.Status = StatusError
		res.Err = err
		return res
	}
	if err := json.Unmarshal(data, &res.Data); err != nil {
		res.Status = StatusError
		res.Err = fmt.Errorf("query: decode %s: %w", q.key, err)
		return res
	}
	res.Status = StatusSuccess
	res.FromCache = fromCache
	return res
}
