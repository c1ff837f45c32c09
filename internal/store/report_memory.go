package store

import (
	"context"
	"sync"
	"time"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

// MemoryReportStore keeps each thread's report as an append-only log of
// sections. Sections are never edited once written.
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports map[string]*domain.Report
	now     func() time.Time
}

func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{
		reports: make(map[string]*domain.Report),
		now:     time.Now,
	}
}

func (s *MemoryReportStore) Get(ctx context.Context, threadID string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryReportStore) AppendSections(ctx context.Context, threadID string, sections []domain.Section) (*domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	updated := domain.AppendSections(r, sections, s.now())
	s.reports[threadID] = updated
	return updated.Clone(), nil
}

func (s *MemoryReportStore) Replace(ctx context.Context, report *domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.now()
	r := report.Clone()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	for i := range r.Sections {
		if r.Sections[i].CreatedAt.IsZero() {
			r.Sections[i].CreatedAt = now
		}
	}

	s.mu.Lock()
	s.reports[r.ThreadID] = r
	s.mu.Unlock()
	return nil
}

func (s *MemoryReportStore) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[threadID]; !ok {
		return ErrNotFound
	}
	delete(s.reports, threadID)
	return nil
}

func (s *MemoryReportStore) NearestSections(ctx context.Context, threadID string, embedding []float32, k int) ([]domain.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	return rankSections(r.Clone().Sections, embedding, k), nil
}

func (s *MemoryReportStore) Ping(ctx context.Context) error {
	return nil
}
