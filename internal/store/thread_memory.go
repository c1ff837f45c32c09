package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

// MemoryThreadStore holds thread state for the life of the process.
type MemoryThreadStore struct {
	mu      sync.RWMutex
	threads map[string]*domain.ThreadState
}

func NewMemoryThreadStore() *MemoryThreadStore {
	return &MemoryThreadStore{threads: make(map[string]*domain.ThreadState)}
}

func (s *MemoryThreadStore) Get(ctx context.Context, id string) (*domain.ThreadState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (s *MemoryThreadStore) Save(ctx context.Context, t *domain.ThreadState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := t.Clone()

	s.mu.Lock()
	s.threads[c.ID] = c
	s.mu.Unlock()
	return nil
}

func (s *MemoryThreadStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[id]; !ok {
		return ErrNotFound
	}
	delete(s.threads, id)
	return nil
}

// ListIdle returns ids of threads last updated before the cutoff, oldest first.
func (s *MemoryThreadStore) ListIdle(ctx context.Context, before time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var idle []*domain.ThreadState
	for _, t := range s.threads {
		if t.UpdatedAt.Before(before) {
			idle = append(idle, t)
		}
	}
	sort.Slice(idle, func(i, j int) bool {
		return idle[i].UpdatedAt.Before(idle[j].UpdatedAt)
	})
	ids := make([]string, len(idle))
	for i, t := range idle {
		ids[i] = t.ID
	}
	return ids, nil
}
