package api

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/buildconfig"
	"github.com/vishal27shetty/Company-Research-Agent/internal/config"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/embedding"
	"github.com/vishal27shetty/Company-Research-Agent/internal/evidence"
	"github.com/vishal27shetty/Company-Research-Agent/internal/llm"
	"github.com/vishal27shetty/Company-Research-Agent/internal/service"
	"github.com/vishal27shetty/Company-Research-Agent/internal/store"
)

// Runtime is everything a process needs to serve research turns, built
// from the environment. Close releases the report store.
type Runtime struct {
	Orchestrator *service.Orchestrator
	Reaper       *service.ThreadReaper
	Evidence     *evidence.Registry

	closers []func() error
}

// NewRuntime wires providers, stores and the pipeline from config. The LLM
// provider must be usable; the embedding provider may be absent.
func NewRuntime(ctx context.Context, logger *zap.Logger) (*Runtime, error) {
	tmpl, err := config.LoadTemplate(config.ResearchConfigPath())
	if err != nil {
		return nil, err
	}

	llmClient, err := llm.NewClient(ctx, config.LLMProvider(), config.LLMAPIKey(), config.LLMModel(), logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	logger.Info("LLM client initialized", zap.String("provider", config.LLMProvider()))

	embedder, err := embedding.NewClient(ctx, config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("embedding client initialization failed; chat will use the newest sections",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
		embedder = nil
	}

	rt := &Runtime{Evidence: NewEvidenceRegistry(tmpl, logger)}

	reports, err := rt.openReportStore(ctx, logger)
	if err != nil {
		return nil, err
	}
	threads := store.NewMemoryThreadStore()

	rt.Orchestrator = service.NewResearchOrchestrator(service.Deps{
		LLM:               llmClient,
		Evidence:          rt.Evidence,
		Pages:             evidence.NewPageReader(config.SourceTimeout()),
		Embedder:          embedder,
		Threads:           threads,
		Reports:           reports,
		Template:          tmpl,
		HunterConcurrency: config.HunterConcurrency(),
		ReportChunkSize:   config.ReportChunkSize(),
		Logger:            logger,
	})
	rt.Reaper = service.NewThreadReaper(threads, rt.Orchestrator, config.ThreadTTL(), logger.Named("reaper"))

	logger.Info("research runtime ready",
		zap.String("version", buildconfig.Version()),
		zap.String("report_store", config.ReportStore()),
		zap.Int("angles", len(tmpl.Angles)))
	return rt, nil
}

func (rt *Runtime) openReportStore(ctx context.Context, logger *zap.Logger) (domain.ReportStore, error) {
	switch config.ReportStore() {
	case "memory", "":
		return store.NewMemoryReportStore(), nil

	case "postgres":
		if config.DatabaseURL() == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres report store")
		}
		pool, err := pgxpool.New(ctx, config.DatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		s := store.NewPostgresReportStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, func() error { pool.Close(); return nil })
		logger.Info("connected to postgres")
		return s, nil

	case "sqlite":
		s, err := store.OpenSQLiteReportStore(config.SQLitePath())
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, s.Close)
		logger.Info("opened sqlite report store", zap.String("path", config.SQLitePath()))
		return s, nil

	default:
		return nil, fmt.Errorf("unknown report store: %s (valid options: memory, postgres, sqlite)", config.ReportStore())
	}
}

// NewEvidenceRegistry registers one source per kind from config. A kind whose
// provider has no API key falls back to DuckDuckGo, except news, which is
// left to the registry's broad fallback.
func NewEvidenceRegistry(tmpl *config.ResearchTemplate, logger *zap.Logger) *evidence.Registry {
	reg := evidence.NewRegistry(config.SourceTimeout(), logger.Named("evidence"))

	register := func(kind domain.SourceKind, src domain.EvidenceSource) {
		src = evidence.RateLimited(src, config.SourceRPS(), config.SourceBurst())
		if ttl := config.SourceCacheTTL(); ttl > 0 {
			src = evidence.Cached(src, ttl)
		}
		reg.Register(kind, src)
		logger.Info("evidence source registered", zap.String("kind", string(kind)), zap.String("provider", src.Name()))
	}

	var broad domain.EvidenceSource = evidence.NewDuckDuckGo()
	if config.BroadProvider() == "perplexity" {
		if key := config.PerplexityAPIKey(); key != "" {
			broad = evidence.NewPerplexity(key)
		} else {
			logger.Warn("PERPLEXITY_API_KEY not set; broad search uses duckduckgo")
		}
	}
	register(domain.SourceBroad, broad)

	register(domain.SourceVerification, tavilyOrFallback(config.VerificationProvider(), nil, logger))
	register(domain.SourceAuthoritative, tavilyOrFallback(config.AuthoritativeProvider(), tmpl.AuthoritativeDomains, logger))

	if config.NewsProvider() == "newsfeed" {
		register(domain.SourceNews, evidence.NewNewsFeed())
	}
	return reg
}

func tavilyOrFallback(provider string, domains []string, logger *zap.Logger) domain.EvidenceSource {
	if provider == "tavily" {
		if key := config.TavilyAPIKey(); key != "" {
			return evidence.NewTavily(key).WithIncludeDomains(domains)
		}
		logger.Warn("TAVILY_API_KEY not set; using duckduckgo", zap.Strings("domains", domains))
	}
	return evidence.NewDuckDuckGo()
}

// Close releases store connections in reverse order of opening.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

var _ io.Closer = (*Runtime)(nil)
