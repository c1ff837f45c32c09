package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/config"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const (
	defaultChatQueries  = 2
	defaultChatSections = 6
	chatHistoryTurns    = 6
)

// ChatResult is one conversational answer.
type ChatResult struct {
	Answer    string
	Citations []string
	Warnings  []string
	Refused   bool
	Queries   int
}

// ChatResponder answers from the report first and searches only when the
// report cannot answer.
type ChatResponder struct {
	llm         domain.LLMClient
	querier     domain.EvidenceQuerier
	reports     domain.ReportStore
	embedder    domain.EmbeddingClient
	guard       *Guardrail
	maxQueries  int
	maxSections int
	logger      *zap.Logger
}

func NewChatResponder(lc domain.LLMClient, q domain.EvidenceQuerier, rs domain.ReportStore, ec domain.EmbeddingClient, guard *Guardrail, tmpl *config.ResearchTemplate, logger *zap.Logger) *ChatResponder {
	c := &ChatResponder{
		llm:         lc,
		querier:     q,
		reports:     rs,
		embedder:    ec,
		guard:       guard,
		maxQueries:  tmpl.Chat.MaxQueries,
		maxSections: tmpl.Chat.ContextSections,
		logger:      logger,
	}
	if c.maxQueries <= 0 {
		c.maxQueries = defaultChatQueries
	}
	if c.maxSections <= 0 {
		c.maxSections = defaultChatSections
	}
	return c
}

func (c *ChatResponder) Respond(ctx context.Context, thread *domain.ThreadState, report *domain.Report, message string, d *domain.IntentDecision) (*ChatResult, error) {
	if d.OffTopic || c.guard.OffTopic(message) {
		return &ChatResult{Answer: c.guard.Refusal(), Refused: true}, nil
	}

	company := d.Company
	if company == "" {
		company = thread.Company
	}
	history := thread.Recent(chatHistoryTurns)

	if d.SmallTalk || c.guard.SmallTalk(message) {
		answer, err := c.llm.Answer(ctx, domain.AnswerRequest{
			Question:  message,
			Company:   company,
			History:   history,
			SmallTalk: true,
		})
		if err != nil {
			return nil, c.answerFailed(ctx, err)
		}
		return &ChatResult{Answer: answer}, nil
	}

	out := &ChatResult{}
	var reportContext string
	var queries []string

	switch {
	case report != nil:
		reportContext = c.reportContext(ctx, report, message)
		cov, err := c.llm.AssessCoverage(ctx, message, reportContext)
		if err != nil {
			c.logger.Debug("coverage check failed, answering from report", zap.Error(err))
		} else if !cov.Answerable {
			queries = c.searchQueries(cov.Query, company, message)
		}
	case company != "":
		queries = c.searchQueries("", company, message)
	}

	var supplementary []domain.Finding
	failed := 0
	for _, q := range queries {
		out.Queries++
		results, err := c.querier.Query(ctx, q, domain.SourceBroad)
		if err != nil {
			failed++
			out.Warnings = append(out.Warnings, fmt.Sprintf("A live search failed (%s); answering from what I have.", describeSourceError(err)))
			continue
		}
		for _, r := range results {
			supplementary = append(supplementary, domain.Finding{
				ID:    fmt.Sprintf("c%d", len(supplementary)+1),
				Claim: r.Text,
				URL:   r.URL,
				Kind:  domain.SourceBroad,
				Topic: "chat",
			})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out.Citations = domain.FindingURLs(supplementary)

	answer, err := c.llm.Answer(ctx, domain.AnswerRequest{
		Question:      message,
		Company:       company,
		ReportContext: reportContext,
		Supplementary: supplementary,
		History:       history,
	})
	if err != nil {
		return nil, c.answerFailed(ctx, err)
	}
	out.Answer = answer

	c.logger.Debug("chat answered",
		zap.String("thread_id", thread.ID),
		zap.Int("queries", out.Queries),
		zap.Int("failed", failed),
		zap.Int("citations", len(out.Citations)))
	return out, nil
}

func (c *ChatResponder) answerFailed(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return newCycleError(DraftOrCompileFailure, "I couldn't write an answer just now. Please try again.", err)
}

// searchQueries returns at most maxQueries distinct queries.
func (c *ChatResponder) searchQueries(suggested, company, message string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, q := range []string{suggested, strings.TrimSpace(company + " " + message)} {
		q = strings.TrimSpace(q)
		if q == "" || seen[strings.ToLower(q)] {
			continue
		}
		seen[strings.ToLower(q)] = true
		out = append(out, q)
		if len(out) == c.maxQueries {
			break
		}
	}
	return out
}

// reportContext selects the sections handed to the model. Large reports
// are narrowed by embedding similarity when an embedder is configured,
// otherwise the newest sections win.
func (c *ChatResponder) reportContext(ctx context.Context, report *domain.Report, question string) string {
	sections := report.Sections
	if len(sections) > c.maxSections {
		sections = c.nearest(ctx, report, question)
	}

	var sb strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&sb, "## %s\n%s\n\n", s.Name, stripMarkers(s.Body))
	}
	return strings.TrimSpace(sb.String())
}

func (c *ChatResponder) nearest(ctx context.Context, report *domain.Report, question string) []domain.Section {
	newest := report.Sections[len(report.Sections)-c.maxSections:]
	if c.embedder == nil {
		return newest
	}
	vec, err := c.embedder.Embed(ctx, question)
	if err != nil {
		c.logger.Debug("question embedding failed", zap.Error(err))
		return newest
	}
	found, err := c.reports.NearestSections(ctx, report.ThreadID, vec, c.maxSections)
	if err != nil || len(found) == 0 {
		return newest
	}
	return found
}
