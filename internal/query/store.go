package query

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is one cached read.
type Entry struct {
	Data      json.RawMessage
	FetchedAt time.Time
	Stale     bool
}

// Store persists cache entries by storage id.
type Store interface {
	Get(ctx context.Context, id string) (Entry, bool, error)
	Set(ctx context.Context, id string, entry Entry) error
	// Invalidate makes every entry whose key starts with prefix stale, by
	// flagging or dropping it, and returns how many entries it touched.
	Invalidate(ctx context.Context, prefix Key) (int, error)
}
