package query

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps entries in a process-local LRU with expiry.
type MemoryStore struct {
	cache *lru.LRU[string, Entry]
}

// NewMemoryStore creates a store holding at most size entries for ttl each.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size < 16 {
		size = 16
	}
	return &MemoryStore{cache: lru.NewLRU[string, Entry](size, nil, ttl)}
}

// Get returns the entry stored under id.
func (s *MemoryStore) Get(_ context.Context, id string) (Entry, bool, error) {
	entry, ok := s.cache.Get(id)
	return entry, ok, nil
}

// Set stores entry under id.
func (s *MemoryStore) Set(_ context.Context, id string, entry Entry) error {
	s.cache.Add(id, entry)
	return nil
}

// Invalidate drops matching entries. Re-adding them flagged stale would restart
// their expiry and move them to the front of the LRU.
func (s *MemoryStore) Invalidate(_ context.Context, prefix Key) (int, error) {
	removed := 0
	for _, id := range s.cache.Keys() {
		if matchesPrefix(id, prefix) && s.cache.Remove(id) {
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
