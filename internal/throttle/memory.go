package throttle

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-process store
type MemoryStore struct {
	mu      sync.Mutex
	counts  map[string]int
	resetAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]int)}
}

func (s *MemoryStore) Consume(_ context.Context, id string, now time.Time, window time.Duration, max int) (bool, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.After(s.resetAt) {
		s.counts = make(map[string]int)
		s.resetAt = now.Add(window)
	}

	if s.counts[id] >= max {
		return false, s.resetAt, nil
	}
	s.counts[id]++
	return true, s.resetAt, nil
}
