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
	defaultHunterConcurrency = 9
	// FocusTopic tags findings gathered for a targeted request.
	FocusTopic = "focus"
)

// HuntResult is the merged output of one fan-out.
type HuntResult struct {
	Findings  []domain.Finding
	Citations []string
	Warnings  []string
	Queries   int
	Failed    int
}

type huntQuery struct {
	angle string
	topic string
	text  string
	kind  domain.SourceKind
}

type Hunter struct {
	querier     domain.EvidenceQuerier
	tmpl        *config.ResearchTemplate
	concurrency int
	logger      *zap.Logger
}

func NewHunter(q domain.EvidenceQuerier, tmpl *config.ResearchTemplate, logger *zap.Logger) *Hunter {
	return &Hunter{
		querier:     q,
		tmpl:        tmpl,
		concurrency: defaultHunterConcurrency,
		logger:      logger,
	}
}

// SetConcurrency bounds the number of queries in flight. Values below one
// mean unbounded.
func (h *Hunter) SetConcurrency(n int) {
	h.concurrency = n
}

// plan lists the queries a hunt would issue, in slot order.
func (h *Hunter) plan(company string, rtype domain.ResearchType, focus string) []huntQuery {
	var out []huntQuery
	if rtype == domain.ResearchTargeted && focus != "" {
		for i, q := range h.tmpl.Focus.Queries {
			out = append(out, huntQuery{
				angle: fmt.Sprintf("focus-%d", i+1),
				topic: FocusTopic,
				text:  config.RenderQuery(q, company, focus),
				kind:  domain.SourceBroad,
			})
		}
		out = append(out, huntQuery{
			angle: "verification",
			topic: FocusTopic,
			text:  config.RenderQuery(h.tmpl.Focus.Verification, company, focus),
			kind:  domain.SourceVerification,
		})
		return out
	}

	for _, a := range h.tmpl.Angles {
		out = append(out, huntQuery{angle: a.Name, topic: a.Topic, text: config.RenderQuery(a.Query, company, ""), kind: a.Kind})
	}
	v := h.tmpl.Verification
	out = append(out, huntQuery{angle: v.Name, topic: v.Topic, text: config.RenderQuery(v.Query, company, ""), kind: v.Kind})
	return out
}

// Hunt issues every planned query concurrently and waits for all of them.
// Individual failures become warnings; the hunt fails only when nothing
// usable came back.
func (h *Hunter) Hunt(ctx context.Context, company string, rtype domain.ResearchType, focus string) (*HuntResult, error) {
	plan := h.plan(company, rtype, focus)
	results := make([][]domain.EvidenceResult, len(plan))
	errs := make([]error, len(plan))

	var g errgroup.Group
	if h.concurrency > 0 {
		g.SetLimit(h.concurrency)
	}
	for i, q := range plan {
		g.Go(func() error {
			res, err := h.querier.Query(ctx, q.text, q.kind)
			results[i], errs[i] = res, err
			return nil
		})
	}
	_ = g.Wait()

	out := &HuntResult{Queries: len(plan)}
	seen := make(map[string]bool)
	for i, q := range plan {
		if errs[i] != nil {
			out.Failed++
			out.Warnings = append(out.Warnings, fmt.Sprintf("The %s search (%s) failed and was skipped.", q.angle, describeSourceError(errs[i])))
			continue
		}
		for _, r := range results[i] {
			key := r.URL + "\x00" + strings.ToLower(r.Text)
			if seen[key] {
				continue
			}
			seen[key] = true
			out.Findings = append(out.Findings, domain.Finding{
				ID:    fmt.Sprintf("f%d", len(out.Findings)+1),
				Claim: r.Text,
				URL:   r.URL,
				Kind:  q.kind,
				Topic: q.topic,
			})
		}
	}
	out.Citations = domain.FindingURLs(out.Findings)

	h.logger.Info("hunt finished",
		zap.String("company", company),
		zap.Int("queries", out.Queries),
		zap.Int("failed", out.Failed),
		zap.Int("findings", len(out.Findings)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if out.Failed == out.Queries {
		return nil, newCycleError(TotalSourceFailure,
			fmt.Sprintf("All %d research sources failed for %s. Please try again in a moment.", out.Queries, company),
			errors.Join(errs...))
	}
	if len(out.Findings) == 0 {
		return nil, newCycleError(TotalSourceFailure,
			fmt.Sprintf("I couldn't find any usable information about %s. Please check the company name and try again.", company),
			ErrNoEvidence)
	}
	return out, nil
}

// describeSourceError names the provider without leaking raw error text.
func describeSourceError(err error) string {
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		return "source error"
	}
	switch {
	case perr.Timeout():
		return perr.Provider + " timed out"
	case perr.StatusCode == 429:
		return perr.Provider + " rate limited"
	case perr.StatusCode != 0:
		return fmt.Sprintf("%s returned status %d", perr.Provider, perr.StatusCode)
	default:
		return perr.Provider + " unavailable"
	}
}
