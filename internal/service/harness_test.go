package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/config"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/evidence"
	"github.com/vishal27shetty/Company-Research-Agent/internal/llm"
	"github.com/vishal27shetty/Company-Research-Agent/internal/store"
)

const (
	acme      = "Acme Corp"
	secURL    = "https://sec.example/acme-10k"
	revenueA  = "https://news-a.example/acme-revenue"
	revenueB  = "https://blog-b.example/acme-revenue"
	threadOne = "thread-1"
)

type fakePages struct {
	mu    sync.Mutex
	reads []string
	text  string
	err   error
}

func (p *fakePages) Read(ctx context.Context, url string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads = append(p.reads, url)
	if p.err != nil {
		return "", p.err
	}
	return p.text, nil
}

type harness struct {
	orch    *Orchestrator
	llm     *llm.MockClient
	broad   *evidence.MockSource
	verify  *evidence.MockSource
	auth    *evidence.MockSource
	news    *evidence.MockSource
	pages   *fakePages
	reports *store.MemoryReportStore
	threads *store.MemoryThreadStore
	tmpl    *config.ResearchTemplate
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()

	h := &harness{
		llm:     llm.NewMockClient(),
		broad:   evidence.NewMockSource("broad"),
		verify:  evidence.NewMockSource("verify"),
		auth:    evidence.NewMockSource("auth"),
		news:    evidence.NewMockSource("news"),
		pages:   &fakePages{text: "Form 10-K. Total revenue for fiscal 2024 was $1.2 billion."},
		reports: store.NewMemoryReportStore(),
		threads: store.NewMemoryThreadStore(),
		tmpl:    config.DefaultTemplate(),
	}

	h.broad.Responses["overview"] = []domain.EvidenceResult{{Text: "Acme Corp makes anvils and rockets.", URL: "https://acme.example/about"}}
	h.broad.Responses["leadership"] = []domain.EvidenceResult{{Text: "Wile E. Coyote is the CEO of Acme Corp.", URL: "https://acme.example/leadership"}}
	h.broad.Responses["products"] = []domain.EvidenceResult{{Text: "Acme sells portable holes.", URL: "https://acme.example/products"}}
	h.broad.Responses["revenue profit"] = []domain.EvidenceResult{{Text: "Acme Corp revenue was $1B in 2024.", URL: revenueA}}
	h.broad.Responses["competitors"] = []domain.EvidenceResult{{Text: "Acme competes with Ajax.", URL: "https://market.example/acme"}}
	h.broad.Responses["risks"] = []domain.EvidenceResult{{Text: "Acme faces product liability suits.", URL: "https://law.example/acme"}}
	h.news.Responses["latest news"] = []domain.EvidenceResult{{Text: "2024-05-01: Acme opens desert plant.", URL: "https://news.example/plant"}}
	h.news.Responses["announcements"] = []domain.EvidenceResult{{Text: "2024-06-01: Acme partners with Road Runner Inc.", URL: "https://news.example/partner"}}
	h.verify.Default = []domain.EvidenceResult{{Text: "Acme Corp revenue was $500M in 2024.", URL: revenueB}}
	h.auth.Default = []domain.EvidenceResult{{Text: "Acme Corp 10-K: revenue $1.2B for fiscal 2024.", URL: secURL}}

	reg := evidence.NewRegistry(time.Second, logger)
	reg.Register(domain.SourceBroad, h.broad)
	reg.Register(domain.SourceVerification, h.verify)
	reg.Register(domain.SourceAuthoritative, h.auth)
	reg.Register(domain.SourceNews, h.news)

	h.orch = NewResearchOrchestrator(Deps{
		LLM:      h.llm,
		Evidence: reg,
		Pages:    h.pages,
		Threads:  h.threads,
		Reports:  h.reports,
		Template: h.tmpl,
		Logger:   logger,
	})
	return h
}

func (h *harness) intent(d domain.IntentDecision) {
	h.llm.ClassifyResponse = &d
}

func (h *harness) research(company string) {
	h.intent(domain.IntentDecision{Intent: domain.IntentResearch, Company: company, ResearchType: domain.ResearchFull})
}

func (h *harness) send(t *testing.T, thread, msg string) ([]domain.Event, error) {
	t.Helper()
	return h.sendCtx(context.Background(), thread, msg)
}

func (h *harness) sendCtx(ctx context.Context, thread, msg string) ([]domain.Event, error) {
	var events []domain.Event
	err := h.orch.Handle(ctx, Request{ThreadID: thread, Message: msg}, func(e domain.Event) {
		events = append(events, e)
	})
	return events, err
}

func (h *harness) sourceCalls() int {
	return len(h.broad.Calls()) + len(h.verify.Calls()) + len(h.auth.Calls()) + len(h.news.Calls())
}

func (h *harness) resetCalls() {
	h.broad.Reset()
	h.verify.Reset()
	h.auth.Reset()
	h.news.Reset()
}

// revenueConflict makes the judge flag every finding that mentions revenue.
func (h *harness) revenueConflict() {
	h.llm.JudgeFunc = func(findings []domain.Finding) (*domain.Verdict, error) {
		var ids []string
		for _, f := range findings {
			if strings.Contains(f.Claim, "revenue was") {
				ids = append(ids, f.ID)
			}
		}
		return &domain.Verdict{
			Status:          domain.VerdictConflict,
			Reason:          "Revenue differs: $1B vs $500M",
			Disputes:        []domain.Dispute{{Topic: "revenue", FindingIDs: ids, Description: "$1B vs $500M"}},
			TieBreakerQuery: "Acme Corp 10-K 2024 total revenue",
		}, nil
	}
}

func eventTypes(events []domain.Event) []domain.EventType {
	out := make([]domain.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func eventsOf(events []domain.Event, t domain.EventType) []domain.Event {
	var out []domain.Event
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func indexOf(events []domain.Event, t domain.EventType) int {
	for i, e := range events {
		if e.Type == t {
			return i
		}
	}
	return -1
}

func sectionNames(r *domain.Report) []string {
	out := make([]string, len(r.Sections))
	for i, s := range r.Sections {
		out[i] = s.Name
	}
	return out
}

func findSection(r *domain.Report, name string) (domain.Section, bool) {
	for _, s := range r.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return domain.Section{}, false
}
