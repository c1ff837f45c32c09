package domain

import (
	"context"
	"time"
)

// EvidenceQuerier issues one query against the provider configured for kind.
type EvidenceQuerier interface {
	Query(ctx context.Context, text string, kind SourceKind) ([]EvidenceResult, error)
}

// EvidenceSource is a single concrete provider.
type EvidenceSource interface {
	Name() string
	Search(ctx context.Context, query string) ([]EvidenceResult, error)
}

type PageReader interface {
	Read(ctx context.Context, url string) (string, error)
}

type ReportStore interface {
	Get(ctx context.Context, threadID string) (*Report, error)
	AppendSections(ctx context.Context, threadID string, sections []Section) (*Report, error)
	Replace(ctx context.Context, report *Report) error
	Delete(ctx context.Context, threadID string) error
	NearestSections(ctx context.Context, threadID string, embedding []float32, k int) ([]Section, error)
	Ping(ctx context.Context) error
}

type ThreadStore interface {
	Get(ctx context.Context, id string) (*ThreadState, error)
	Save(ctx context.Context, t *ThreadState) error
	Delete(ctx context.Context, id string) error
	ListIdle(ctx context.Context, before time.Time) ([]string, error)
}

type SectionBrief struct {
	Company      string
	Name         string
	Topic        string
	Focus        string
	Instructions string
	Evidence     []Finding
}

type CompanyProfile struct {
	Industry   string `json:"industry"`
	HQLocation string `json:"hq_location"`
}

type Coverage struct {
	Answerable bool   `json:"answerable"`
	Query      string `json:"search_query"`
}

type AnswerRequest struct {
	Question      string
	Company       string
	ReportContext string
	Supplementary []Finding
	History       []Message
	SmallTalk     bool
}

type LLMClient interface {
	ClassifyIntent(ctx context.Context, in IntentInput) (*IntentDecision, error)
	JudgeFindings(ctx context.Context, company string, findings []Finding) (*Verdict, error)
	ResolutionQuery(ctx context.Context, company string, dispute Dispute, reason string) (string, error)
	ResolveDispute(ctx context.Context, company string, dispute Dispute, disputed, evidence []Finding) (*Resolution, error)
	DraftSection(ctx context.Context, brief SectionBrief) (string, error)
	ExtractProfile(ctx context.Context, company string, findings []Finding) (*CompanyProfile, error)
	Summarize(ctx context.Context, company string, sections []Section) (string, error)
	AssessCoverage(ctx context.Context, question, reportContext string) (*Coverage, error)
	Answer(ctx context.Context, req AnswerRequest) (string, error)
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
