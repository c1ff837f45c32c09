package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const (
	draftMaxTokens = 2048
	chatMaxTokens  = 1024
	historyTurns   = 6
)

// Client implements domain.LLMClient on top of a single Completer.
type Client struct {
	completer Completer
}

func NewLLMClient(c Completer) *Client {
	return &Client{completer: c}
}

func (c *Client) Provider() string { return c.completer.Name() }

func (c *Client) ClassifyIntent(ctx context.Context, in domain.IntentInput) (*domain.IntentDecision, error) {
	company := in.Company
	if company == "" {
		company = "none"
	}
	raw, err := c.completer.Complete(ctx, Prompt{
		System: intentSystemPrompt,
		User:   fmt.Sprintf(intentUserPrompt, company, in.HasReport, in.PendingConflict, formatHistory(in.History), in.Message),
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		domain.IntentDecision
		Intent       string `json:"intent"`
		ResearchType string `json:"research_type"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return nil, err
	}
	intent, ok := domain.ParseIntent(out.Intent)
	if !ok {
		return nil, fmt.Errorf("model returned unknown intent %q", out.Intent)
	}

	d := out.IntentDecision
	d.Intent = intent
	d.Company = strings.TrimSpace(d.Company)
	d.Focus = strings.TrimSpace(d.Focus)
	d.Feedback = strings.TrimSpace(d.Feedback)
	d.ClarificationQuestion = strings.TrimSpace(d.ClarificationQuestion)
	switch domain.ResearchType(strings.ToLower(strings.TrimSpace(out.ResearchType))) {
	case domain.ResearchTargeted:
		d.ResearchType = domain.ResearchTargeted
	default:
		d.ResearchType = domain.ResearchFull
	}
	if isNullish(d.Company) {
		d.Company = ""
	}
	if isNullish(d.Focus) {
		d.Focus = ""
	}
	return &d, nil
}

func (c *Client) JudgeFindings(ctx context.Context, company string, findings []domain.Finding) (*domain.Verdict, error) {
	var sb strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&sb, "%s | %s | %s | %s\n", f.ID, f.Kind, f.URL, oneLine(f.Claim))
	}
	raw, err := c.completer.Complete(ctx, Prompt{
		System: judgeSystemPrompt,
		User:   fmt.Sprintf(judgeUserPrompt, company, sb.String()),
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}

	var v domain.Verdict
	if err := decodeJSON(raw, &v); err != nil {
		return nil, err
	}
	v.Status = domain.VerdictStatus(strings.ToUpper(strings.TrimSpace(string(v.Status))))
	switch v.Status {
	case domain.VerdictClean:
		v.Disputes = nil
		v.TieBreakerQuery = ""
	case domain.VerdictConflict:
		if isNullish(v.TieBreakerQuery) {
			v.TieBreakerQuery = ""
		}
	default:
		return nil, fmt.Errorf("model returned unknown verdict status %q", v.Status)
	}
	return &v, nil
}

func (c *Client) ResolutionQuery(ctx context.Context, company string, dispute domain.Dispute, reason string) (string, error) {
	raw, err := c.completer.Complete(ctx, Prompt{
		User: fmt.Sprintf(resolutionQueryPrompt, company, dispute.Topic, dispute.Description, reason),
	})
	if err != nil {
		return "", err
	}
	q := strings.Trim(strings.TrimSpace(firstLine(raw)), "\"'`")
	if q == "" {
		return "", ErrEmptyCompletion
	}
	return q, nil
}

func (c *Client) ResolveDispute(ctx context.Context, company string, dispute domain.Dispute, disputed, evidence []domain.Finding) (*domain.Resolution, error) {
	raw, err := c.completer.Complete(ctx, Prompt{
		System: resolveSystemPrompt,
		User: fmt.Sprintf(resolveUserPrompt, company, dispute.Topic, dispute.Description,
			formatFindings(disputed), formatFindings(evidence)),
		JSON: true,
	})
	if err != nil {
		return nil, err
	}
	var r domain.Resolution
	if err := decodeJSON(raw, &r); err != nil {
		return nil, err
	}
	r.Value = strings.TrimSpace(r.Value)
	r.SourceURL = strings.TrimSpace(r.SourceURL)
	return &r, nil
}

func (c *Client) DraftSection(ctx context.Context, brief domain.SectionBrief) (string, error) {
	focus := ""
	if brief.Focus != "" {
		focus = "Focus: " + brief.Focus + "\n"
	}
	var sb strings.Builder
	for i, f := range brief.Evidence {
		tag := ""
		switch f.Status {
		case domain.FindingResolved:
			tag = " (RESOLVED)"
		case domain.FindingDisputed:
			tag = " (DISPUTED)"
		}
		fmt.Fprintf(&sb, "[%d]%s %s\nSource: %s\n\n", i+1, tag, f.Claim, f.URL)
	}
	raw, err := c.completer.Complete(ctx, Prompt{
		System:    draftSystemPrompt,
		User:      fmt.Sprintf(draftUserPrompt, brief.Company, brief.Name, focus, brief.Instructions, sb.String()),
		MaxTokens: draftMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return stripFences(raw), nil
}

func (c *Client) ExtractProfile(ctx context.Context, company string, findings []domain.Finding) (*domain.CompanyProfile, error) {
	raw, err := c.completer.Complete(ctx, Prompt{
		User: fmt.Sprintf(profilePrompt, company, formatFindings(findings)),
		JSON: true,
	})
	if err != nil {
		return nil, err
	}
	var p domain.CompanyProfile
	if err := decodeJSON(raw, &p); err != nil {
		return nil, err
	}
	p.Industry = strings.TrimSpace(p.Industry)
	p.HQLocation = strings.TrimSpace(p.HQLocation)
	if isNullish(p.Industry) {
		p.Industry = ""
	}
	if isNullish(p.HQLocation) {
		p.HQLocation = ""
	}
	return &p, nil
}

func (c *Client) Summarize(ctx context.Context, company string, sections []domain.Section) (string, error) {
	var sb strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&sb, "## %s\n%s\n\n", s.Name, s.Body)
	}
	raw, err := c.completer.Complete(ctx, Prompt{
		User:      fmt.Sprintf(summarizePrompt, company, sb.String()),
		MaxTokens: chatMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (c *Client) AssessCoverage(ctx context.Context, question, reportContext string) (*domain.Coverage, error) {
	raw, err := c.completer.Complete(ctx, Prompt{
		User: fmt.Sprintf(coveragePrompt, question, reportContext),
		JSON: true,
	})
	if err != nil {
		return nil, err
	}
	var cov domain.Coverage
	if err := decodeJSON(raw, &cov); err != nil {
		return nil, err
	}
	cov.Query = strings.TrimSpace(cov.Query)
	if isNullish(cov.Query) {
		cov.Query = ""
	}
	return &cov, nil
}

func (c *Client) Answer(ctx context.Context, req domain.AnswerRequest) (string, error) {
	var user string
	if req.SmallTalk {
		steer := ""
		if req.Company != "" {
			steer = " about " + req.Company
		}
		user = fmt.Sprintf(smallTalkUserPrompt, formatHistory(req.History), req.Question, steer)
	} else {
		company := req.Company
		if company == "" {
			company = "not chosen yet"
		}
		reportText := req.ReportContext
		if reportText == "" {
			reportText = "(no report yet)"
		}
		live := "(none)"
		if len(req.Supplementary) > 0 {
			live = formatFindings(req.Supplementary)
		}
		user = fmt.Sprintf(chatUserPrompt, company, reportText, live, formatHistory(req.History), req.Question)
	}

	raw, err := c.completer.Complete(ctx, Prompt{
		System:      chatSystemPrompt,
		User:        user,
		Temperature: 0.4,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func formatHistory(msgs []domain.Message) string {
	if len(msgs) > historyTurns {
		msgs = msgs[len(msgs)-historyTurns:]
	}
	if len(msgs) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, truncate(oneLine(m.Content), 600))
	}
	return sb.String()
}

func formatFindings(findings []domain.Finding) string {
	if len(findings) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&sb, "- %s (source: %s)\n", oneLine(f.Claim), f.URL)
	}
	return sb.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func isNullish(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "n/a", "unknown":
		return true
	}
	return false
}
