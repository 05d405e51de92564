package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// MemoryStateStore keeps per-symbol segment start times in process memory.
type MemoryStateStore struct {
	mu    sync.RWMutex
	times map[string]time.Time
}

// NewMemoryStateStore returns an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{times: make(map[string]time.Time)}
}

// LatestSegmentStart returns the recorded start time for symbol.
func (s *MemoryStateStore) LatestSegmentStart(_ context.Context, symbol string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.times[symbol]
	return t, ok, nil
}

// SetLatestSegmentStart records the start time for symbol.
func (s *MemoryStateStore) SetLatestSegmentStart(_ context.Context, symbol string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.times[symbol] = t
	return nil
}

// RedisStateStore persists segment start times in Redis so a restarted
// forward runner does not re-cancel positions it already handled.
type RedisStateStore struct {
	client *redis.Client
}

// NewRedisStateStore connects a state store to the Redis at addr.
func NewRedisStateStore(addr string) *RedisStateStore {
	return &RedisStateStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func stateKey(symbol string) string {
	return "structrun:segment_start:" + symbol
}

// LatestSegmentStart reads the recorded start time for symbol.
func (s *RedisStateStore) LatestSegmentStart(ctx context.Context, symbol string) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, stateKey(symbol)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis get %s: %w", symbol, err)
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse segment start for %s: %w", symbol, err)
	}
	return t, true, nil
}

// SetLatestSegmentStart writes the start time for symbol.
func (s *RedisStateStore) SetLatestSegmentStart(ctx context.Context, symbol string, t time.Time) error {
	if err := s.client.Set(ctx, stateKey(symbol), t.Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", symbol, err)
	}
	return nil
}

// NewAutoStateStore returns a Redis-backed store when addr is non-empty and
// an in-memory one otherwise.
func NewAutoStateStore(addr string) StateStore {
	if addr != "" {
		return NewRedisStateStore(addr)
	}
	return NewMemoryStateStore()
}
