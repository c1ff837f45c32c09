package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

// MockClient is a configurable LLM client for testing.
// Set the response fields to control what each method returns; a non-nil
// Func field takes precedence over the static response.
type MockClient struct {
	mu sync.Mutex

	ClassifyResponse *domain.IntentDecision
	ClassifyFunc     func(in domain.IntentInput) (*domain.IntentDecision, error)
	ClassifyError    error

	JudgeResponse *domain.Verdict
	JudgeFunc     func(findings []domain.Finding) (*domain.Verdict, error)
	JudgeError    error

	ResolutionQueryResponse string
	ResolutionQueryError    error

	ResolveResponse *domain.Resolution
	ResolveFunc     func(dispute domain.Dispute, disputed, evidence []domain.Finding) (*domain.Resolution, error)
	ResolveError    error

	DraftFunc  func(brief domain.SectionBrief) (string, error)
	DraftError error

	ProfileResponse *domain.CompanyProfile
	ProfileError    error

	SummarizeResponse string
	SummarizeError    error

	CoverageResponse *domain.Coverage
	CoverageError    error

	AnswerResponse string
	AnswerFunc     func(req domain.AnswerRequest) (string, error)
	AnswerError    error

	// Call tracking for assertions
	ClassifyCalls        []domain.IntentInput
	JudgeCalls           [][]domain.Finding
	ResolutionQueryCalls []domain.Dispute
	ResolveCalls         []domain.Dispute
	DraftCalls           []domain.SectionBrief
	ProfileCalls         int
	SummarizeCalls       int
	CoverageCalls        []string
	AnswerCalls          []domain.AnswerRequest
}

func NewMockClient() *MockClient {
	return &MockClient{
		ClassifyResponse:        &domain.IntentDecision{Intent: domain.IntentChat},
		JudgeResponse:           &domain.Verdict{Status: domain.VerdictClean, Reason: "No significant conflicts found"},
		ResolutionQueryResponse: "mock resolution query",
		ResolveResponse:         &domain.Resolution{},
		ProfileResponse:         &domain.CompanyProfile{Industry: "Technology", HQLocation: "San Francisco, USA"},
		SummarizeResponse:       "Mock summary",
		CoverageResponse:        &domain.Coverage{Answerable: true},
		AnswerResponse:          "Mock answer",
	}
}

func (c *MockClient) ClassifyIntent(ctx context.Context, in domain.IntentInput) (*domain.IntentDecision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ClassifyCalls = append(c.ClassifyCalls, in)
	if c.ClassifyError != nil {
		return nil, c.ClassifyError
	}
	if c.ClassifyFunc != nil {
		return c.ClassifyFunc(in)
	}
	d := *c.ClassifyResponse
	return &d, nil
}

func (c *MockClient) JudgeFindings(ctx context.Context, company string, findings []domain.Finding) (*domain.Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.JudgeCalls = append(c.JudgeCalls, domain.CloneFindings(findings))
	if c.JudgeError != nil {
		return nil, c.JudgeError
	}
	if c.JudgeFunc != nil {
		return c.JudgeFunc(findings)
	}
	v := *c.JudgeResponse
	return &v, nil
}

func (c *MockClient) ResolutionQuery(ctx context.Context, company string, dispute domain.Dispute, reason string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ResolutionQueryCalls = append(c.ResolutionQueryCalls, dispute)
	if c.ResolutionQueryError != nil {
		return "", c.ResolutionQueryError
	}
	return c.ResolutionQueryResponse, nil
}

func (c *MockClient) ResolveDispute(ctx context.Context, company string, dispute domain.Dispute, disputed, evidence []domain.Finding) (*domain.Resolution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ResolveCalls = append(c.ResolveCalls, dispute)
	if c.ResolveError != nil {
		return nil, c.ResolveError
	}
	if c.ResolveFunc != nil {
		return c.ResolveFunc(dispute, disputed, evidence)
	}
	r := *c.ResolveResponse
	return &r, nil
}

// DraftSection by default writes one bullet per evidence item, citing it.
func (c *MockClient) DraftSection(ctx context.Context, brief domain.SectionBrief) (string, error) {
	c.mu.Lock()
	c.DraftCalls = append(c.DraftCalls, brief)
	draftErr, draftFunc := c.DraftError, c.DraftFunc
	c.mu.Unlock()

	if draftErr != nil {
		return "", draftErr
	}
	if draftFunc != nil {
		return draftFunc(brief)
	}
	var sb strings.Builder
	for i, f := range brief.Evidence {
		fmt.Fprintf(&sb, "* %s [%d]\n", f.Claim, i+1)
	}
	return strings.TrimSpace(sb.String()), nil
}

func (c *MockClient) ExtractProfile(ctx context.Context, company string, findings []domain.Finding) (*domain.CompanyProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ProfileCalls++
	if c.ProfileError != nil {
		return nil, c.ProfileError
	}
	p := *c.ProfileResponse
	return &p, nil
}

func (c *MockClient) Summarize(ctx context.Context, company string, sections []domain.Section) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SummarizeCalls++
	if c.SummarizeError != nil {
		return "", c.SummarizeError
	}
	return c.SummarizeResponse, nil
}

func (c *MockClient) AssessCoverage(ctx context.Context, question, reportContext string) (*domain.Coverage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CoverageCalls = append(c.CoverageCalls, question)
	if c.CoverageError != nil {
		return nil, c.CoverageError
	}
	cov := *c.CoverageResponse
	return &cov, nil
}

func (c *MockClient) Answer(ctx context.Context, req domain.AnswerRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AnswerCalls = append(c.AnswerCalls, req)
	if c.AnswerError != nil {
		return "", c.AnswerError
	}
	if c.AnswerFunc != nil {
		return c.AnswerFunc(req)
	}
	return c.AnswerResponse, nil
}

// Calls returns the number of recorded calls per method name.
func (c *MockClient) Calls() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]int{
		"ClassifyIntent":  len(c.ClassifyCalls),
		"JudgeFindings":   len(c.JudgeCalls),
		"ResolutionQuery": len(c.ResolutionQueryCalls),
		"ResolveDispute":  len(c.ResolveCalls),
		"DraftSection":    len(c.DraftCalls),
		"ExtractProfile":  c.ProfileCalls,
		"Summarize":       c.SummarizeCalls,
		"AssessCoverage":  len(c.CoverageCalls),
		"Answer":          len(c.AnswerCalls),
	}
}
