package evidence

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

var ErrNoSource = errors.New("no evidence source configured")

// fallbacks lists which kind serves a query when its own kind has no source.
var fallbacks = map[domain.SourceKind][]domain.SourceKind{
	domain.SourceNews:          {domain.SourceBroad},
	domain.SourceVerification:  {domain.SourceBroad},
	domain.SourceAuthoritative: {domain.SourceVerification, domain.SourceBroad},
}

// Registry routes queries to the source registered for each kind.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceKind]domain.EvidenceSource
	timeout time.Duration
	logger  *zap.Logger
}

func NewRegistry(timeout time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		sources: make(map[domain.SourceKind]domain.EvidenceSource),
		timeout: timeout,
		logger:  logger,
	}
}

func (r *Registry) Register(kind domain.SourceKind, src domain.EvidenceSource) {
	r.mu.Lock()
	r.sources[kind] = src
	r.mu.Unlock()
}

// Source returns the source that would serve kind.
func (r *Registry) Source(kind domain.SourceKind) (domain.EvidenceSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.sources[kind]; ok {
		return s, true
	}
	for _, fb := range fallbacks[kind] {
		if s, ok := r.sources[fb]; ok {
			return s, true
		}
	}
	return nil, false
}

// Query runs text against the source for kind. Results without a URL or
// text are dropped since they cannot be cited.
func (r *Registry) Query(ctx context.Context, text string, kind domain.SourceKind) ([]domain.EvidenceResult, error) {
	src, ok := r.Source(kind)
	if !ok {
		return nil, &domain.ProviderError{Provider: "none", Kind: kind, Op: "search", Err: ErrNoSource}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	results, err := src.Search(ctx, text)
	if err != nil {
		var perr *domain.ProviderError
		if !errors.As(err, &perr) {
			perr = domain.NewProviderError(src.Name(), "search", 0, err)
		}
		if perr.Kind == "" {
			perr.Kind = kind
		}
		r.logger.Warn("evidence query failed",
			zap.String("provider", src.Name()),
			zap.String("kind", string(kind)),
			zap.String("query", text),
			zap.Error(perr))
		return nil, perr
	}

	out := make([]domain.EvidenceResult, 0, len(results))
	for _, res := range results {
		res.Text = strings.TrimSpace(res.Text)
		if res.URL == "" || res.Text == "" {
			continue
		}
		out = append(out, res)
	}

	r.logger.Debug("evidence query",
		zap.String("provider", src.Name()),
		zap.String("kind", string(kind)),
		zap.Int("results", len(out)),
		zap.Duration("took", time.Since(start)))
	return out, nil
}
