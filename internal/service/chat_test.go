package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/config"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/embedding"
	"github.com/vishal27shetty/Company-Research-Agent/internal/evidence"
	"github.com/vishal27shetty/Company-Research-Agent/internal/llm"
	"github.com/vishal27shetty/Company-Research-Agent/internal/store"
)

type chatFixture struct {
	chat    *ChatResponder
	llm     *llm.MockClient
	src     *evidence.MockSource
	reports *store.MemoryReportStore
}

func newChatFixture(t *testing.T, ec domain.EmbeddingClient) *chatFixture {
	t.Helper()
	f := &chatFixture{
		llm:     llm.NewMockClient(),
		src:     evidence.NewMockSource("broad"),
		reports: store.NewMemoryReportStore(),
	}
	reg := evidence.NewRegistry(0, zap.NewNop())
	reg.Register(domain.SourceBroad, f.src)
	tmpl := config.DefaultTemplate()
	f.chat = NewChatResponder(f.llm, reg, f.reports, ec, NewGuardrail(tmpl.Guardrail), tmpl, zap.NewNop())
	return f
}

func chatReport(n int) *domain.Report {
	r := &domain.Report{ThreadID: threadOne, Company: acme}
	for i := 1; i <= n; i++ {
		r.Sections = append(r.Sections, domain.Section{
			Name: fmt.Sprintf("Section %d", i),
			Body: fmt.Sprintf("Fact number %d [1].", i),
		})
	}
	return r
}

func TestChatSmallTalk(t *testing.T) {
	f := newChatFixture(t, nil)
	res, err := f.chat.Respond(context.Background(), &domain.ThreadState{ID: threadOne, Company: acme}, nil, "thanks!", &domain.IntentDecision{Intent: domain.IntentChat})
	require.NoError(t, err)
	assert.Equal(t, "Mock answer", res.Answer)
	require.Len(t, f.llm.AnswerCalls, 1)
	assert.True(t, f.llm.AnswerCalls[0].SmallTalk)
	assert.Equal(t, acme, f.llm.AnswerCalls[0].Company)
	assert.Empty(t, f.src.Calls())
}

func TestChatWithoutReportSearches(t *testing.T) {
	f := newChatFixture(t, nil)
	f.src.Default = []domain.EvidenceResult{{Text: "Acme has 300 staff.", URL: "https://acme.example/careers"}}

	res, err := f.chat.Respond(context.Background(), &domain.ThreadState{ID: threadOne}, nil, "How many employees?", &domain.IntentDecision{Intent: domain.IntentChat, Company: acme})
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme Corp How many employees?"}, f.src.Calls())
	assert.Equal(t, []string{"https://acme.example/careers"}, res.Citations)
	require.Len(t, f.llm.AnswerCalls, 1)
	assert.Equal(t, "c1", f.llm.AnswerCalls[0].Supplementary[0].ID)
	assert.Empty(t, f.llm.CoverageCalls)
}

func TestChatWithoutCompanyAnswersDirectly(t *testing.T) {
	f := newChatFixture(t, nil)
	_, err := f.chat.Respond(context.Background(), &domain.ThreadState{ID: threadOne}, nil, "What can you do?", &domain.IntentDecision{Intent: domain.IntentChat})
	require.NoError(t, err)
	assert.Empty(t, f.src.Calls())
	assert.Len(t, f.llm.AnswerCalls, 1)
}

func TestChatSearchFailureWarns(t *testing.T) {
	f := newChatFixture(t, nil)
	f.src.DefaultErr = &domain.ProviderError{Provider: "tavily", StatusCode: 429, Err: errors.New("quota")}
	f.llm.CoverageResponse = &domain.Coverage{Answerable: false, Query: "Acme stock price"}

	res, err := f.chat.Respond(context.Background(), &domain.ThreadState{ID: threadOne, Company: acme}, chatReport(2), "stock price?", &domain.IntentDecision{Intent: domain.IntentChat, Company: acme})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Queries)
	assert.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "tavily rate limited")
	assert.Empty(t, res.Citations)
	assert.Equal(t, "Mock answer", res.Answer)
}

func TestChatCoverageFailureAnswersFromReport(t *testing.T) {
	f := newChatFixture(t, nil)
	f.llm.CoverageError = errors.New("bad json")

	res, err := f.chat.Respond(context.Background(), &domain.ThreadState{ID: threadOne, Company: acme}, chatReport(2), "Tell me more", &domain.IntentDecision{Intent: domain.IntentChat, Company: acme})
	require.NoError(t, err)
	assert.Zero(t, res.Queries)
	assert.Equal(t, "## Section 1\nFact number 1.\n\n## Section 2\nFact number 2.", f.llm.AnswerCalls[0].ReportContext)
}

func TestChatAnswerFailure(t *testing.T) {
	f := newChatFixture(t, nil)
	f.llm.AnswerError = errors.New("down")
	_, err := f.chat.Respond(context.Background(), &domain.ThreadState{ID: threadOne}, nil, "hello", &domain.IntentDecision{Intent: domain.IntentChat})
	assert.True(t, IsCategory(err, DraftOrCompileFailure))
}

func TestChatLargeReportNarrowsContext(t *testing.T) {
	r := chatReport(10)
	r.Sections[2].Body = "Acme revenue grew to one billion dollars [1]."

	// Without an embedder the newest sections are used.
	f := newChatFixture(t, nil)
	require.NoError(t, f.reports.Replace(context.Background(), r))
	_, err := f.chat.Respond(context.Background(), &domain.ThreadState{ID: threadOne, Company: acme}, r, "What was Acme revenue?", &domain.IntentDecision{Intent: domain.IntentChat, Company: acme})
	require.NoError(t, err)
	ctxText := f.llm.AnswerCalls[0].ReportContext
	assert.NotContains(t, ctxText, "## Section 1\n")
	assert.Contains(t, ctxText, "## Section 10\n")

	// With one, the most similar section is included.
	emb := embedding.NewMockClient()
	f = newChatFixture(t, emb)
	for i := range r.Sections {
		vec, err := emb.Embed(context.Background(), r.Sections[i].Body)
		require.NoError(t, err)
		r.Sections[i].Embedding = vec
	}
	require.NoError(t, f.reports.Replace(context.Background(), r))
	_, err = f.chat.Respond(context.Background(), &domain.ThreadState{ID: threadOne, Company: acme}, r, "What was Acme revenue?", &domain.IntentDecision{Intent: domain.IntentChat, Company: acme})
	require.NoError(t, err)
	assert.Contains(t, f.llm.AnswerCalls[0].ReportContext, "## Section 3\nAcme revenue grew")
}
