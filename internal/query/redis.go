package query

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldData      = "data"
	fieldFetchedAt = "fetched_at"
	fieldStale     = "stale"
	scanBatch      = 200
)

// markStale only touches hashes that still exist so an expired entry is not
// resurrected as a bare stale flag.
var markStale = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('HSET', KEYS[1], 'stale', '1')
	return 1
end
return 0
`)

// RedisStore keeps entries in Redis hashes so every dashboard replica shares
// one cache and one view of invalidations.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore instantiates the store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get loads the entry stored under id.
func (s *RedisStore) Get(ctx context.Context, id string) (Entry, bool, error) {
	fields, err := s.client.HGetAll(ctx, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	data, ok := fields[fieldData]
	if !ok {
		return Entry{}, false, nil
	}
	entry := Entry{Data: []byte(data), Stale: fields[fieldStale] == "1"}
	if nanos, err := strconv.ParseInt(fields[fieldFetchedAt], 10, 64); err == nil {
		entry.FetchedAt = time.Unix(0, nanos)
	}
	return entry, true, nil
}

// Set replaces the entry stored under id.
func (s *RedisStore) Set(ctx context.Context, id string, entry Entry) error {
	stale := "0"
	if entry.Stale {
		stale = "1"
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, id)
		pipe.HSet(ctx, id,
			fieldData, string(entry.Data),
			fieldFetchedAt, strconv.FormatInt(entry.FetchedAt.UnixNano(), 10),
			fieldStale, stale,
		)
		if s.ttl > 0 {
			pipe.Expire(ctx, id, s.ttl)
		}
		return nil
	})
	return err
}

// Invalidate marks matching entries stale.
func (s *RedisStore) Invalidate(ctx context.Context, prefix Key) (int, error) {
	marked := 0
	err := s.scan(ctx, scanPattern(prefix), func(id string) error {
		if !matchesPrefix(id, prefix) {
			return nil
		}
		n, err := markStale.Run(ctx, s.client, []string{id}).Int()
		if err != nil {
			return err
		}
		marked += n
		return nil
	})
	return marked, err
}

// Sweep deletes entries already marked stale and returns how many were removed.
func (s *RedisStore) Sweep(ctx context.Context) (int, error) {
	removed := 0
	err := s.scan(ctx, storagePrefix+"*", func(id string) error {
		stale, err := s.client.HGet(ctx, id, fieldStale).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if stale != "1" {
			return nil
		}
		n, err := s.client.Del(ctx, id).Result()
		if err != nil {
			return err
		}
		removed += int(n)
		return nil
	})
	return removed, err
}

func (s *RedisStore) scan(ctx context.Context, pattern string, fn func(id string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		for _, id := range keys {
			if err := fn(id); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
