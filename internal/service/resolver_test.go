package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/config"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/llm"
)

type resolverFixture struct {
	resolver *Resolver
	llm      *llm.MockClient
	pages    *fakePages

	mu      sync.Mutex
	queries []string
}

func newResolverFixture(t *testing.T, results []domain.EvidenceResult, qerr error) *resolverFixture {
	t.Helper()
	f := &resolverFixture{
		llm:   llm.NewMockClient(),
		pages: &fakePages{text: "Total revenue for fiscal 2024 was $1.2 billion."},
	}
	q := querierFunc(func(ctx context.Context, text string, kind domain.SourceKind) ([]domain.EvidenceResult, error) {
		assert.Equal(t, domain.SourceAuthoritative, kind)
		f.mu.Lock()
		f.queries = append(f.queries, text)
		f.mu.Unlock()
		return results, qerr
	})
	f.resolver = NewResolver(q, f.pages, f.llm, config.DefaultTemplate(), zap.NewNop())
	return f
}

func revenueVerdict() domain.Verdict {
	return domain.Verdict{
		Status:          domain.VerdictConflict,
		Reason:          "Revenue differs",
		Disputes:        []domain.Dispute{{Topic: "revenue", FindingIDs: []string{"f1", "f2"}, Description: "$1B vs $500M"}},
		TieBreakerQuery: "Acme 10-K revenue",
	}
}

func TestResolverReplacesResolvedFindings(t *testing.T) {
	f := newResolverFixture(t, []domain.EvidenceResult{{Text: "10-K revenue $1.2B", URL: secURL}}, nil)
	f.llm.ResolveResponse = &domain.Resolution{Resolved: true, Value: "Revenue was $1.2B in 2024.", SourceURL: secURL}

	out, err := f.resolver.Resolve(context.Background(), acme, sampleFindings(), revenueVerdict())
	require.NoError(t, err)

	assert.Equal(t, []string{"Acme 10-K revenue"}, f.queries)
	assert.Empty(t, f.llm.ResolutionQueryCalls, "the tie-breaker query is used as is")
	assert.Equal(t, []string{secURL}, f.pages.reads)
	assert.Len(t, out.Resolved, 1)
	assert.Empty(t, out.Unresolved)
	assert.Equal(t, []string{secURL}, out.Citations)

	require.Len(t, out.Findings, 2)
	assert.Equal(t, "f3", out.Findings[0].ID)
	assert.Equal(t, domain.Finding{
		ID: "r1", Claim: "Revenue was $1.2B in 2024.", URL: secURL,
		Kind: domain.SourceAuthoritative, Topic: "financial", Status: domain.FindingResolved,
	}, out.Findings[1])
}

func TestResolverEvidenceIsEnrichedFromPages(t *testing.T) {
	f := newResolverFixture(t, []domain.EvidenceResult{{Text: "10-K", URL: secURL}}, nil)
	var seen []domain.Finding
	f.llm.ResolveFunc = func(d domain.Dispute, disputed, evidence []domain.Finding) (*domain.Resolution, error) {
		seen = evidence
		assert.Len(t, disputed, 2)
		return &domain.Resolution{}, nil
	}

	_, err := f.resolver.Resolve(context.Background(), acme, sampleFindings(), revenueVerdict())
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "e1-1", seen[0].ID)
	assert.Equal(t, "10-K\nTotal revenue for fiscal 2024 was $1.2 billion.", seen[0].Claim)
}

func TestResolverRejectsUnretrievedSource(t *testing.T) {
	f := newResolverFixture(t, []domain.EvidenceResult{{Text: "10-K", URL: secURL}}, nil)
	f.llm.ResolveResponse = &domain.Resolution{Resolved: true, Value: "Revenue was $9B.", SourceURL: "https://invented.example"}

	out, err := f.resolver.Resolve(context.Background(), acme, sampleFindings(), revenueVerdict())
	require.NoError(t, err)
	assert.Empty(t, out.Resolved)
	require.Len(t, out.Unresolved, 1)

	byID := make(map[string]domain.Finding)
	for _, fd := range out.Findings {
		byID[fd.ID] = fd
		assert.NotEqual(t, "https://invented.example", fd.URL)
	}
	assert.Equal(t, domain.FindingDisputed, byID["f1"].Status)
	assert.Equal(t, domain.FindingDisputed, byID["f2"].Status)
	assert.Equal(t, domain.FindingPlain, byID["f3"].Status)
	note, ok := byID["d1"]
	require.True(t, ok)
	assert.Equal(t, secURL, note.URL)
	assert.Equal(t, "Sources still disagree on revenue: $1B vs $500M.", note.Claim)
}

func TestResolverModelQueryWhenNoTieBreaker(t *testing.T) {
	f := newResolverFixture(t, []domain.EvidenceResult{{Text: "10-K", URL: secURL}}, nil)
	f.llm.ResolutionQueryResponse = "Acme annual report revenue"
	v := revenueVerdict()
	v.TieBreakerQuery = ""

	_, err := f.resolver.Resolve(context.Background(), acme, sampleFindings(), v)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme annual report revenue"}, f.queries)

	f = newResolverFixture(t, []domain.EvidenceResult{{Text: "10-K", URL: secURL}}, nil)
	f.llm.ResolutionQueryError = errors.New("down")
	_, err = f.resolver.Resolve(context.Background(), acme, sampleFindings(), v)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme Corp revenue official filing"}, f.queries)
}

func TestResolverSynthesizesDispute(t *testing.T) {
	f := newResolverFixture(t, nil, nil)
	out, err := f.resolver.Resolve(context.Background(), acme, sampleFindings(), domain.Verdict{
		Status: domain.VerdictConflict, Reason: "Something differs", TieBreakerQuery: "Acme filing",
	})
	require.NoError(t, err)
	require.Len(t, out.Unresolved, 1)
	assert.Equal(t, "disputed fact", out.Unresolved[0].Topic)
	assert.Len(t, out.Findings, 3)
}

func TestResolverCapsDisputes(t *testing.T) {
	f := newResolverFixture(t, nil, nil)
	v := revenueVerdict()
	for i := 0; i < 5; i++ {
		v.Disputes = append(v.Disputes, domain.Dispute{Topic: "extra", FindingIDs: []string{"f3"}})
	}
	_, err := f.resolver.Resolve(context.Background(), acme, sampleFindings(), v)
	require.NoError(t, err)
	assert.Len(t, f.queries, config.DefaultTemplate().Resolver.MaxQueries)
}

func TestResolverAllQueriesFail(t *testing.T) {
	f := newResolverFixture(t, nil, &domain.ProviderError{Provider: "tavily", StatusCode: 500, Err: errors.New("x")})
	_, err := f.resolver.Resolve(context.Background(), acme, sampleFindings(), revenueVerdict())
	require.Error(t, err)
	assert.True(t, IsCategory(err, TotalSourceFailure))
}

func TestResolverFailureKeepsConflictPending(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	h.revenueConflict()
	_, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)

	h.auth.DefaultErr = errors.New("authoritative source down")
	h.auth.Default = nil
	events, err := h.send(t, threadOne, "resolve")
	assert.True(t, IsCategory(err, TotalSourceFailure))
	require.Len(t, eventsOf(events, domain.EventError), 1)

	st, err := h.threads.Get(context.Background(), threadOne)
	require.NoError(t, err)
	assert.NotNil(t, st.Pending, "the user can retry the deep dive")
}
