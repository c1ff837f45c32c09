package service

import (
	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/config"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

// Deps are the collaborators needed to assemble the research pipeline.
// Pages and Embedder are optional.
type Deps struct {
	LLM               domain.LLMClient
	Evidence          domain.EvidenceQuerier
	Pages             domain.PageReader
	Embedder          domain.EmbeddingClient
	Threads           domain.ThreadStore
	Reports           domain.ReportStore
	Template          *config.ResearchTemplate
	HunterConcurrency int
	ReportChunkSize   int
	Logger            *zap.Logger
}

// NewResearchOrchestrator wires every stage from deps.
func NewResearchOrchestrator(d Deps) *Orchestrator {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl := d.Template
	if tmpl == nil {
		tmpl = config.DefaultTemplate()
	}
	guard := NewGuardrail(tmpl.Guardrail)

	hunter := NewHunter(d.Evidence, tmpl, logger.Named("hunter"))
	if d.HunterConcurrency != 0 {
		hunter.SetConcurrency(d.HunterConcurrency)
	}

	o := NewOrchestrator(Stages{
		Classifier: NewIntentClassifier(d.LLM, guard, logger.Named("classifier")),
		Hunter:     hunter,
		Judge:      NewJudge(d.LLM, logger.Named("judge")),
		Resolver:   NewResolver(d.Evidence, d.Pages, d.LLM, tmpl, logger.Named("resolver")),
		Drafter:    NewDrafter(d.LLM, tmpl, logger.Named("drafter")),
		Compiler:   NewCompiler(d.LLM, d.Embedder, tmpl, logger.Named("compiler")),
		Updater:    NewUpdater(d.Reports, logger.Named("updater")),
		Chat:       NewChatResponder(d.LLM, d.Evidence, d.Reports, d.Embedder, guard, tmpl, logger.Named("chat")),
	}, d.Threads, d.Reports, logger)
	o.SetChunkSize(d.ReportChunkSize)
	return o
}
