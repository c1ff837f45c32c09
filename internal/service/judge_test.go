package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/llm"
)

func sampleFindings() []domain.Finding {
	return []domain.Finding{
		{ID: "f2", Claim: "Acme revenue was $500M.", URL: revenueB, Kind: domain.SourceVerification, Topic: "financial"},
		{ID: "f1", Claim: "Acme revenue was $1B.", URL: revenueA, Kind: domain.SourceBroad, Topic: "financial"},
		{ID: "f3", Claim: "Acme makes anvils.", URL: "https://acme.example", Kind: domain.SourceBroad, Topic: "company"},
	}
}

func TestJudgeEmptyFindingsSkipsModel(t *testing.T) {
	mock := llm.NewMockClient()
	v, err := NewJudge(mock, zap.NewNop()).Evaluate(context.Background(), acme, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictClean, v.Status)
	assert.Empty(t, mock.JudgeCalls)
}

func TestJudgeSeesCanonicalOrderAndDoesNotMutate(t *testing.T) {
	mock := llm.NewMockClient()
	in := sampleFindings()

	_, err := NewJudge(mock, zap.NewNop()).Evaluate(context.Background(), acme, in)
	require.NoError(t, err)
	require.Len(t, mock.JudgeCalls, 1)

	var ids []string
	for _, f := range mock.JudgeCalls[0] {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"f1", "f2", "f3"}, ids)
	assert.Equal(t, sampleFindings(), in)
}

func TestJudgeSanitizesDisputes(t *testing.T) {
	mock := llm.NewMockClient()
	mock.JudgeResponse = &domain.Verdict{
		Status: domain.VerdictConflict,
		Disputes: []domain.Dispute{
			{FindingIDs: []string{"f1", "f2", "f99"}},
			{Topic: "made up", FindingIDs: []string{"x1"}},
		},
	}

	v, err := NewJudge(mock, zap.NewNop()).Evaluate(context.Background(), acme, sampleFindings())
	require.NoError(t, err)
	assert.True(t, v.IsConflict())
	assert.Equal(t, defaultConflictReason, v.Reason)
	require.Len(t, v.Disputes, 1)
	assert.Equal(t, []string{"f1", "f2"}, v.Disputes[0].FindingIDs)
	assert.Equal(t, "disputed fact", v.Disputes[0].Topic)
}

func TestJudgeCleanDropsDisputes(t *testing.T) {
	mock := llm.NewMockClient()
	mock.JudgeResponse = &domain.Verdict{
		Status:          domain.VerdictClean,
		Reason:          "Consistent.",
		Disputes:        []domain.Dispute{{FindingIDs: []string{"f1"}}},
		TieBreakerQuery: "ignored",
	}
	v, err := NewJudge(mock, zap.NewNop()).Evaluate(context.Background(), acme, sampleFindings())
	require.NoError(t, err)
	assert.Equal(t, &domain.Verdict{Status: domain.VerdictClean, Reason: "Consistent."}, v)
}

func TestJudgeUnavailableIsClean(t *testing.T) {
	mock := llm.NewMockClient()
	mock.JudgeError = errors.New("timeout")

	v, err := NewJudge(mock, zap.NewNop()).Evaluate(context.Background(), acme, sampleFindings())
	assert.ErrorIs(t, err, ErrJudgeUnavailable)
	require.NotNil(t, v)
	assert.Equal(t, domain.VerdictClean, v.Status)
}

func TestJudgeUnavailableWarnsInCycle(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	h.llm.JudgeError = errors.New("timeout")

	events, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)

	var warned bool
	for _, w := range eventsOf(events, domain.EventWarning) {
		if w.Text() == "The conflict check is unavailable, so the findings were not cross-checked." {
			warned = true
		}
	}
	assert.True(t, warned)
	assert.NotEmpty(t, eventsOf(events, domain.EventReport))
}
