package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/config"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

// Compiler orders drafted sections per the report template, adds the
// executive summary and builds the report value that gets committed.
type Compiler struct {
	llm      domain.LLMClient
	embedder domain.EmbeddingClient
	tmpl     *config.ResearchTemplate
	logger   *zap.Logger
	now      func() time.Time
}

func NewCompiler(lc domain.LLMClient, ec domain.EmbeddingClient, tmpl *config.ResearchTemplate, logger *zap.Logger) *Compiler {
	return &Compiler{llm: lc, embedder: ec, tmpl: tmpl, logger: logger, now: time.Now}
}

// Compile builds a new report for threadID from draft.
func (c *Compiler) Compile(ctx context.Context, threadID, company string, rtype domain.ResearchType, draft *Draft) (*domain.Report, error) {
	sections := c.Order(draft.Sections)

	if rtype != domain.ResearchTargeted && len(sections) > 1 {
		summary, err := c.llm.Summarize(ctx, company, sections)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, newCycleError(DraftOrCompileFailure, "Compiling the report failed. Please try again.", err)
		}
		summary = domain.RenumberMarkers(summary, func(int) (int, bool) { return 0, false })
		if summary != "" {
			sections = append([]domain.Section{{Name: c.tmpl.SummaryTitle, Body: summary}}, sections...)
		}
	}

	now := c.now()
	for i := range sections {
		sections[i].CreatedAt = now
	}
	c.embed(ctx, sections)

	return &domain.Report{
		ThreadID:     threadID,
		Company:      company,
		ResearchType: rtype,
		Industry:     draft.Profile.Industry,
		HQLocation:   draft.Profile.HQLocation,
		Sections:     sections,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Sections prepares drafted sections for appending to an existing report.
// prefix, when set, is prepended to every section name.
func (c *Compiler) Sections(ctx context.Context, draft *Draft, prefix string) []domain.Section {
	sections := c.Order(draft.Sections)
	for i := range sections {
		if prefix != "" {
			sections[i].Name = prefix + ": " + sections[i].Name
		}
	}
	c.embed(ctx, sections)
	return sections
}

// Order returns a copy of sections sorted by the template's section order.
// Sections the template does not name keep their relative order at the end.
func (c *Compiler) Order(sections []domain.Section) []domain.Section {
	out := make([]domain.Section, len(sections))
	copy(out, sections)
	sort.SliceStable(out, func(a, b int) bool {
		return c.tmpl.TitleRank(out[a].Name) < c.tmpl.TitleRank(out[b].Name)
	})
	return out
}

// embed attaches vectors for chat retrieval. Failures only cost retrieval
// quality, so they are logged and skipped.
func (c *Compiler) embed(ctx context.Context, sections []domain.Section) {
	if c.embedder == nil {
		return
	}
	for i := range sections {
		vec, err := c.embedder.Embed(ctx, sections[i].Name+"\n"+stripMarkers(sections[i].Body))
		if err != nil {
			c.logger.Debug("section embedding failed", zap.String("section", sections[i].Name), zap.Error(err))
			continue
		}
		sections[i].Embedding = vec
	}
}

func stripMarkers(body string) string {
	return strings.TrimSpace(domain.RenumberMarkers(body, func(int) (int, bool) { return 0, false }))
}
