package evidence

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

type cacheEntry struct {
	results []domain.EvidenceResult
	expires time.Time
}

// sharedCallTimeout bounds an upstream call that no single caller owns.
const sharedCallTimeout = 30 * time.Second

type cached struct {
	next    domain.EvidenceSource
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	group   singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// Cached remembers successful results of next for ttl. Concurrent identical
// queries share one upstream call, which outlives any single caller's
// cancellation; each caller still returns as soon as its own ctx is done.
// Failures are never cached.
func Cached(next domain.EvidenceSource, ttl time.Duration) domain.EvidenceSource {
	if ttl <= 0 {
		return next
	}
	return &cached{
		next:    next,
		ttl:     ttl,
		timeout: sharedCallTimeout,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *cached) Name() string { return c.next.Name() }

func (c *cached) Search(ctx context.Context, query string) ([]domain.EvidenceResult, error) {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && c.now().After(e.expires) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if ok {
		return cloneResults(e.results), nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(shared, c.timeout)
		defer cancel()
		results, err := c.next.Search(callCtx, query)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{results: cloneResults(results), expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return results, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneResults(res.Val.([]domain.EvidenceResult)), nil
	}
}

func cloneResults(in []domain.EvidenceResult) []domain.EvidenceResult {
	if in == nil {
		return nil
	}
	out := make([]domain.EvidenceResult, len(in))
	copy(out, in)
	return out
}
