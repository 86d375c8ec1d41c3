package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps conversation turns in memory, bounded per
// identity. Turns are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	turns    map[string][]Turn
	maxTurns int

	now func() time.Time
}

// NewMemoryStore creates an in-memory store keeping at most maxTurns
// turns per identity. A maxTurns of zero or less means unbounded.
func NewMemoryStore(maxTurns int) *MemoryStore {
	return &MemoryStore{
		turns:    make(map[string][]Turn),
		maxTurns: maxTurns,
		now:      time.Now,
	}
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, turn *Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}

	list := append(s.turns[turn.Identity], *turn)
	if s.maxTurns > 0 && len(list) > s.maxTurns {
		list = list[len(list)-s.maxTurns:]
	}
	s.turns[turn.Identity] = list
	return nil
}

// Recent implements Store.
func (s *MemoryStore) Recent(_ context.Context, identity string, n int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.turns[identity]
	if n > 0 && len(list) > n {
		list = list[len(list)-n:]
	}
	out := make([]Turn, len(list))
	copy(out, list)
	return out, nil
}

// Cleanup implements Store.
func (s *MemoryStore) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for identity, list := range s.turns {
		kept := list[:0]
		for _, t := range list {
			if t.CreatedAt.Before(olderThan) {
				removed++
				continue
			}
			kept = append(kept, t)
		}
		if len(kept) == 0 {
			delete(s.turns, identity)
			continue
		}
		s.turns[identity] = kept
	}
	return removed, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = make(map[string][]Turn)
	return nil
}
