package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements Store with per-key timestamp windows. State is
// process-local; use RedisStore when multiple instances must share budgets.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	now     func() time.Time
}

// slidingWindow tracks attempt timestamps for one key. Timestamps are kept
// in arrival order, so pruning is a single cut at the first still-fresh entry.
type slidingWindow struct {
	timestamps []time.Time
}

type MemoryOption func(*InMemoryStore)

// WithMemoryClock overrides the time source for tests.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) { s.now = now }
}

func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		windows: make(map[string]*slidingWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w := s.windows[key]
	if w == nil {
		w = &slidingWindow{}
		s.windows[key] = w
	}
	w.prune(now.Add(-window))

	if len(w.timestamps) >= limit {
		return Result{
			Allowed:   false,
			Remaining: 0,
			Limit:     limit,
			ResetAt:   w.timestamps[0].Add(window),
		}, nil
	}

	w.timestamps = append(w.timestamps, now)
	return Result{
		Allowed:   true,
		Remaining: limit - len(w.timestamps),
		Limit:     limit,
		ResetAt:   w.timestamps[0].Add(window),
	}, nil
}

func (s *InMemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// prune drops timestamps at or before the cutoff.
func (w *slidingWindow) prune(cutoff time.Time) {
	i := 0
	for ; i < len(w.timestamps); i++ {
		if w.timestamps[i].After(cutoff) {
			break
		}
	}
	w.timestamps = w.timestamps[i:]
}
