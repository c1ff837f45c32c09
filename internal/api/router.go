package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/api/handlers"
	mw "github.com/vishal27shetty/Company-Research-Agent/internal/api/middleware"
	"github.com/vishal27shetty/Company-Research-Agent/internal/buildconfig"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/embedding"
	"github.com/vishal27shetty/Company-Research-Agent/internal/evidence"
	"github.com/vishal27shetty/Company-Research-Agent/internal/llm"
	"github.com/vishal27shetty/Company-Research-Agent/internal/service"
	"github.com/vishal27shetty/Company-Research-Agent/internal/store"
)

// Service is what the router needs from the research orchestrator.
type Service interface {
	handlers.Researcher
	Ping(ctx context.Context) error
}

type Options struct {
	APIToken       string
	RateLimitRPS   float64
	RateLimitBurst int
}

// App holds the router and the counters reported by /metrics.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
	openStreams  atomic.Int64
}

func NewApp(svc Service, opts Options, logger *zap.Logger) *App {
	chatHandler := handlers.NewChatHandler(svc, logger.Named("chat"))
	threadHandler := handlers.NewThreadHandler(svc, logger.Named("threads"))

	r := chi.NewRouter()
	app := &App{Router: r, startTime: time.Now()}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount, &app.openStreams)

	// Order matters: the request id must exist before logging reads it.
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))

	r.Get("/health", healthHandler(svc))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.BearerAuth(opts.APIToken))

		r.Post("/chat", chatHandler.Chat)
		r.Route("/threads/{id}", func(r chi.Router) {
			r.Get("/", threadHandler.Get)
			r.Delete("/", threadHandler.Delete)
			r.Get("/report", threadHandler.Report)
		})
	})

	return app
}

func healthHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := svc.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": buildconfig.Version()})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"open_streams":   app.openStreams.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"version":    buildconfig.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ Service                = (*service.Orchestrator)(nil)
	_ service.ThreadDeleter  = (*service.Orchestrator)(nil)
	_ domain.ReportStore     = (*store.MemoryReportStore)(nil)
	_ domain.ReportStore     = (*store.PostgresReportStore)(nil)
	_ domain.ReportStore     = (*store.SQLiteReportStore)(nil)
	_ domain.ThreadStore     = (*store.MemoryThreadStore)(nil)
	_ domain.EvidenceQuerier = (*evidence.Registry)(nil)
	_ domain.EvidenceSource  = (*evidence.Perplexity)(nil)
	_ domain.EvidenceSource  = (*evidence.Tavily)(nil)
	_ domain.EvidenceSource  = (*evidence.DuckDuckGo)(nil)
	_ domain.EvidenceSource  = (*evidence.NewsFeed)(nil)
	_ domain.EvidenceSource  = (*evidence.MockSource)(nil)
	_ domain.PageReader      = (*evidence.PageReader)(nil)
	_ domain.EmbeddingClient = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient = (*embedding.GeminiClient)(nil)
	_ domain.EmbeddingClient = (*embedding.MockClient)(nil)
	_ domain.LLMClient       = (*llm.Client)(nil)
	_ domain.LLMClient       = (*llm.MockClient)(nil)
	_ llm.Completer          = (*llm.OpenAICompleter)(nil)
	_ llm.Completer          = (*llm.AnthropicCompleter)(nil)
	_ llm.Completer          = (*llm.GeminiCompleter)(nil)
)
