package evidence

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

type rateLimited struct {
	next    domain.EvidenceSource
	limiter *rate.Limiter
}

// RateLimited throttles calls to next. Callers wait for a token or give up
// when ctx ends.
func RateLimited(next domain.EvidenceSource, rps float64, burst int) domain.EvidenceSource {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *rateLimited) Name() string { return r.next.Name() }

func (r *rateLimited) Search(ctx context.Context, query string) ([]domain.EvidenceResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, domain.NewProviderError(r.next.Name(), "ratelimit", 0, err)
	}
	return r.next.Search(ctx, query)
}
