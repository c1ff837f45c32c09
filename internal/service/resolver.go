package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vishal27shetty/Company-Research-Agent/internal/config"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const (
	defaultResolverQueries = 3
	pageExcerptChars       = 1500
)

// ResolveOutcome is the revised finding set after one deep-dive pass.
type ResolveOutcome struct {
	Findings   []domain.Finding
	Resolved   []domain.Dispute
	Unresolved []domain.Dispute
	Citations  []string
	Warnings   []string
}

type disputeResult struct {
	dispute  domain.Dispute
	evidence []domain.Finding
	res      *domain.Resolution
	queryErr error
	warning  string
}

// Resolver runs targeted queries against the authoritative source for each
// disputed fact and merges what it learns back into the finding set.
type Resolver struct {
	querier     domain.EvidenceQuerier
	pages       domain.PageReader
	llm         domain.LLMClient
	maxQueries  int
	enrichPages int
	logger      *zap.Logger
}

func NewResolver(q domain.EvidenceQuerier, pages domain.PageReader, lc domain.LLMClient, tmpl *config.ResearchTemplate, logger *zap.Logger) *Resolver {
	r := &Resolver{
		querier:     q,
		pages:       pages,
		llm:         lc,
		maxQueries:  tmpl.Resolver.MaxQueries,
		enrichPages: tmpl.Resolver.EnrichPages,
		logger:      logger,
	}
	if r.maxQueries <= 0 {
		r.maxQueries = defaultResolverQueries
	}
	return r
}

func (r *Resolver) Resolve(ctx context.Context, company string, findings []domain.Finding, verdict domain.Verdict) (*ResolveOutcome, error) {
	disputes := verdict.Disputes
	if len(disputes) == 0 {
		disputes = []domain.Dispute{{Topic: "disputed fact", Description: verdict.Reason}}
	}
	if len(disputes) > r.maxQueries {
		disputes = disputes[:r.maxQueries]
	}

	byID := make(map[string]domain.Finding, len(findings))
	for _, f := range findings {
		byID[f.ID] = f
	}

	results := make([]disputeResult, len(disputes))
	var g errgroup.Group
	for i, d := range disputes {
		tieBreaker := ""
		if i == 0 {
			tieBreaker = verdict.TieBreakerQuery
		}
		g.Go(func() error {
			results[i] = r.resolveOne(ctx, company, d, verdict.Reason, tieBreaker, byID, i)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var queryErrs []error
	for _, res := range results {
		if res.queryErr != nil {
			queryErrs = append(queryErrs, res.queryErr)
		}
	}
	if len(queryErrs) == len(results) {
		return nil, newCycleError(TotalSourceFailure,
			"The authoritative sources could not be reached to resolve the conflict. Reply 'resolve' to try again or 'ignore' to continue with the current findings.",
			errors.Join(queryErrs...))
	}

	return r.merge(findings, results), nil
}

func (r *Resolver) resolveOne(ctx context.Context, company string, d domain.Dispute, reason, tieBreaker string, byID map[string]domain.Finding, slot int) disputeResult {
	out := disputeResult{dispute: d}

	query := tieBreaker
	if query == "" {
		q, err := r.llm.ResolutionQuery(ctx, company, d, reason)
		if err != nil || strings.TrimSpace(q) == "" {
			q = fmt.Sprintf("%s %s official filing", company, d.Topic)
		}
		query = q
	}

	results, err := r.querier.Query(ctx, query, domain.SourceAuthoritative)
	if err != nil {
		out.queryErr = err
		out.warning = fmt.Sprintf("The deep-dive search for %s (%s) failed.", d.Topic, describeSourceError(err))
		return out
	}

	topic := disputeTopic(d, byID)
	for i, res := range results {
		text := res.Text
		if r.pages != nil && i < r.enrichPages {
			if page, err := r.pages.Read(ctx, res.URL); err == nil && page != "" {
				text = text + "\n" + excerpt(page, pageExcerptChars)
			} else if err != nil {
				r.logger.Debug("page enrichment failed", zap.String("url", res.URL), zap.Error(err))
			}
		}
		out.evidence = append(out.evidence, domain.Finding{
			ID:    fmt.Sprintf("e%d-%d", slot+1, i+1),
			Claim: text,
			URL:   res.URL,
			Kind:  domain.SourceAuthoritative,
			Topic: topic,
		})
	}
	if len(out.evidence) == 0 {
		return out
	}

	var disputed []domain.Finding
	for _, id := range d.FindingIDs {
		if f, ok := byID[id]; ok {
			disputed = append(disputed, f)
		}
	}
	res, err := r.llm.ResolveDispute(ctx, company, d, disputed, out.evidence)
	if err != nil {
		r.logger.Warn("dispute resolution failed", zap.String("topic", d.Topic), zap.Error(err))
		return out
	}
	out.res = res
	return out
}

// merge builds a new finding set: resolved disputes replace their findings
// with one authoritative finding, unresolved ones keep their findings
// flagged plus an annotation naming the disagreement.
func (r *Resolver) merge(findings []domain.Finding, results []disputeResult) *ResolveOutcome {
	out := &ResolveOutcome{}
	replaced := make(map[string]bool)
	flagged := make(map[string]bool)
	var added []domain.Finding

	for i, res := range results {
		if res.warning != "" {
			out.Warnings = append(out.Warnings, res.warning)
		}
		out.Citations = append(out.Citations, domain.FindingURLs(res.evidence)...)

		if ok, url := validResolution(res); ok {
			for _, id := range res.dispute.FindingIDs {
				replaced[id] = true
			}
			added = append(added, domain.Finding{
				ID:     fmt.Sprintf("r%d", i+1),
				Claim:  res.res.Value,
				URL:    url,
				Kind:   domain.SourceAuthoritative,
				Topic:  topicOf(res),
				Status: domain.FindingResolved,
			})
			out.Resolved = append(out.Resolved, res.dispute)
			continue
		}

		for _, id := range res.dispute.FindingIDs {
			flagged[id] = true
		}
		if note, ok := annotation(i, res); ok {
			added = append(added, note)
		}
		out.Unresolved = append(out.Unresolved, res.dispute)
	}

	for _, f := range findings {
		switch {
		case replaced[f.ID]:
			continue
		case flagged[f.ID]:
			f.Status = domain.FindingDisputed
		}
		out.Findings = append(out.Findings, f)
	}
	out.Findings = append(out.Findings, added...)
	out.Citations = domain.DedupeURLs(out.Citations)
	return out
}

// validResolution accepts a resolution only when it cites evidence that was
// actually retrieved.
func validResolution(res disputeResult) (bool, string) {
	if res.res == nil || !res.res.Resolved || res.res.Value == "" {
		return false, ""
	}
	for _, e := range res.evidence {
		if e.URL == res.res.SourceURL {
			return true, e.URL
		}
	}
	return false, ""
}

func annotation(slot int, res disputeResult) (domain.Finding, bool) {
	url := ""
	if len(res.evidence) > 0 {
		url = res.evidence[0].URL
	}
	if url == "" {
		return domain.Finding{}, false
	}
	desc := res.dispute.Description
	if desc == "" {
		desc = "sources report different values"
	}
	claim := fmt.Sprintf("Sources still disagree on %s: %s.", res.dispute.Topic, strings.TrimSuffix(desc, "."))
	if res.res != nil && res.res.Explanation != "" {
		claim += " " + res.res.Explanation
	}
	return domain.Finding{
		ID:     fmt.Sprintf("d%d", slot+1),
		Claim:  claim,
		URL:    url,
		Kind:   domain.SourceAuthoritative,
		Topic:  topicOf(res),
		Status: domain.FindingDisputed,
	}, true
}

func topicOf(res disputeResult) string {
	if len(res.evidence) > 0 {
		return res.evidence[0].Topic
	}
	return ""
}

// disputeTopic is the report topic of the disputed findings, so the
// resolved value lands in the same section.
func disputeTopic(d domain.Dispute, byID map[string]domain.Finding) string {
	for _, id := range d.FindingIDs {
		if f, ok := byID[id]; ok && f.Topic != "" {
			return f.Topic
		}
	}
	return "company"
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	cut := strings.LastIndexByte(s[:n], ' ')
	if cut <= 0 {
		cut = n
	}
	return s[:cut] + "..."
}
