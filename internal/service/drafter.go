package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vishal27shetty/Company-Research-Agent/internal/config"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const defaultDrafterConcurrency = 4

// Draft is the Drafter's output: one section per topic cluster plus the
// best-effort company profile.
type Draft struct {
	Sections []domain.Section
	Profile  domain.CompanyProfile
}

type cluster struct {
	topic    string
	findings []domain.Finding
}

type Drafter struct {
	llm         domain.LLMClient
	tmpl        *config.ResearchTemplate
	concurrency int
	logger      *zap.Logger
}

func NewDrafter(lc domain.LLMClient, tmpl *config.ResearchTemplate, logger *zap.Logger) *Drafter {
	return &Drafter{llm: lc, tmpl: tmpl, concurrency: defaultDrafterConcurrency, logger: logger}
}

// Draft writes every section in parallel. Any model failure fails the whole
// draft so nothing partial reaches the report.
func (d *Drafter) Draft(ctx context.Context, company string, rtype domain.ResearchType, focus string, findings []domain.Finding) (*Draft, error) {
	clusters := d.clusters(rtype, focus, findings)
	if len(clusters) == 0 {
		return nil, newCycleError(DraftOrCompileFailure, "There was no evidence to draft a report from.", ErrNoEvidence)
	}

	sections := make([]domain.Section, len(clusters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, c := range clusters {
		g.Go(func() error {
			s, err := d.draftSection(gctx, company, rtype, focus, c)
			if err != nil {
				return err
			}
			sections[i] = s
			return nil
		})
	}

	var profile domain.CompanyProfile
	if rtype != domain.ResearchTargeted {
		g.Go(func() error {
			p, err := d.llm.ExtractProfile(gctx, company, findings)
			if err != nil {
				d.logger.Debug("profile extraction failed", zap.String("company", company), zap.Error(err))
				return nil
			}
			profile = *p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newCycleError(DraftOrCompileFailure, "Drafting the report failed. Please try again.", err)
	}

	return &Draft{Sections: sections, Profile: profile}, nil
}

func (d *Drafter) draftSection(ctx context.Context, company string, rtype domain.ResearchType, focus string, c cluster) (domain.Section, error) {
	name := d.tmpl.SectionTitle(c.topic)
	instructions := d.tmpl.SectionInstructions(c.topic)
	if rtype == domain.ResearchTargeted {
		name = config.TitleCase(focus)
		instructions = fmt.Sprintf("Answer the request about %s's %s directly and completely.", company, focus)
	}

	body, err := d.llm.DraftSection(ctx, domain.SectionBrief{
		Company:      company,
		Name:         name,
		Topic:        c.topic,
		Focus:        focus,
		Instructions: instructions,
		Evidence:     c.findings,
	})
	if err != nil {
		return domain.Section{}, fmt.Errorf("draft %s: %w", name, err)
	}
	if strings.TrimSpace(body) == "" {
		return domain.Section{}, fmt.Errorf("draft %s: empty section", name)
	}

	body, cites := bindCitations(body, c.findings)
	return domain.Section{Name: name, Body: body, Citations: cites}, nil
}

// clusters groups findings by topic, ordered by the report template.
// Targeted research yields a single cluster.
func (d *Drafter) clusters(rtype domain.ResearchType, focus string, findings []domain.Finding) []cluster {
	if len(findings) == 0 {
		return nil
	}
	if rtype == domain.ResearchTargeted {
		t := FocusTopic
		if focus == "" {
			t = findings[0].Topic
		}
		return []cluster{{topic: t, findings: domain.CloneFindings(findings)}}
	}

	index := make(map[string]int)
	var out []cluster
	for _, f := range findings {
		topic := f.Topic
		if topic == "" {
			topic = "company"
		}
		i, ok := index[topic]
		if !ok {
			i = len(out)
			index[topic] = i
			out = append(out, cluster{topic: topic})
		}
		out[i].findings = append(out[i].findings, f)
	}

	sort.SliceStable(out, func(a, b int) bool {
		return d.tmpl.TopicRank(out[a].topic) < d.tmpl.TopicRank(out[b].topic)
	})
	return out
}

// bindCitations turns the model's evidence numbers into section-local
// citation numbers. Markers outside the evidence list are dropped, so every
// citation URL comes from the finding set. Resolved and disputed findings
// that the model left uncited are appended as cited bullets.
func bindCitations(body string, evidence []domain.Finding) (string, []string) {
	var cites []string
	local := make(map[string]int)
	cite := func(url string) int {
		if n, ok := local[url]; ok {
			return n
		}
		cites = append(cites, url)
		local[url] = len(cites)
		return len(cites)
	}

	for _, n := range domain.Markers(body) {
		if n >= 1 && n <= len(evidence) {
			cite(evidence[n-1].URL)
		}
	}
	out := domain.RenumberMarkers(body, func(n int) (int, bool) {
		if n < 1 || n > len(evidence) {
			return 0, false
		}
		return local[evidence[n-1].URL], true
	})

	for _, f := range evidence {
		if f.Status == domain.FindingPlain {
			continue
		}
		if _, ok := local[f.URL]; ok {
			continue
		}
		label := "Verified"
		if f.Status == domain.FindingDisputed {
			label = "Disputed"
		}
		out += fmt.Sprintf("\n* **%s:** %s [%d]", label, f.Claim, cite(f.URL))
	}
	return out, cites
}
