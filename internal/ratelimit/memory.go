package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start  time.Time
	length time.Duration
	count  int
}

// MemoryStore keeps windows in a process-local map.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time

	hits         int
	cleanupEvery int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows:      make(map[string]*window),
		now:          time.Now,
		cleanupEvery: 1024,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *MemoryStore) Hit(ctx context.Context, key string, profile Profile) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.hits++
	if s.hits%s.cleanupEvery == 0 {
		s.evictElapsed(now)
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.start.Add(profile.Window)) {
		w = &window{start: now, length: profile.Window, count: 1}
		s.windows[key] = w
		return Decision{
			Allowed:   true,
			Limit:     profile.MaxRequests,
			Remaining: profile.MaxRequests - 1,
			ResetAt:   now.Add(profile.Window),
		}, nil
	}

	resetAt := w.start.Add(profile.Window)
	if w.count < profile.MaxRequests {
		w.count++
		return Decision{
			Allowed:   true,
			Limit:     profile.MaxRequests,
			Remaining: profile.MaxRequests - w.count,
			ResetAt:   resetAt,
		}, nil
	}

	return Decision{
		Allowed:    false,
		Limit:      profile.MaxRequests,
		Remaining:  0,
		RetryAfter: resetAt.Sub(now),
		ResetAt:    resetAt,
	}, nil
}

// evictElapsed drops windows that have ended.
func (s *MemoryStore) evictElapsed(now time.Time) {
	for key, w := range s.windows {
		if !now.Before(w.start.Add(w.length)) {
			delete(s.windows, key)
		}
	}
}

// Len reports how many windows are tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
