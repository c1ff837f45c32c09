package evidence

import (
	"context"
	"strings"
	"sync"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

// MockSource is a scripted EvidenceSource for tests. Responses and errors
// are matched by case-insensitive substring of the query; the longest
// matching key wins.
type MockSource struct {
	SourceName string
	Responses  map[string][]domain.EvidenceResult
	Errors     map[string]error
	Default    []domain.EvidenceResult
	DefaultErr error

	mu    sync.Mutex
	calls []string
}

func NewMockSource(name string) *MockSource {
	return &MockSource{
		SourceName: name,
		Responses:  make(map[string][]domain.EvidenceResult),
		Errors:     make(map[string]error),
	}
}

func (m *MockSource) Name() string { return m.SourceName }

func (m *MockSource) Search(ctx context.Context, query string) ([]domain.EvidenceResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, query)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key, ok := longestMatch(query, m.Errors); ok {
		return nil, m.Errors[key]
	}
	if key, ok := longestMatch(query, m.Responses); ok {
		return cloneResults(m.Responses[key]), nil
	}
	if m.DefaultErr != nil {
		return nil, m.DefaultErr
	}
	return cloneResults(m.Default), nil
}

// Calls returns the queries received so far.
func (m *MockSource) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockSource) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

func longestMatch[V any](query string, table map[string]V) (string, bool) {
	q := strings.ToLower(query)
	best, found := "", false
	for k := range table {
		if strings.Contains(q, strings.ToLower(k)) && len(k) >= len(best) {
			if len(k) == len(best) && found && k > best {
				continue
			}
			best, found = k, true
		}
	}
	return best, found
}
