package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/store"
)

func TestResearchCleanProducesReport(t *testing.T) {
	h := newHarness(t)
	h.research(acme)

	events, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)

	assert.Equal(t, domain.EventStatus, events[0].Type)
	citeIdx := indexOf(events, domain.EventCitations)
	reportIdx := indexOf(events, domain.EventReport)
	require.GreaterOrEqual(t, citeIdx, 0)
	require.Greater(t, reportIdx, citeIdx, "citations must precede the report")
	assert.Empty(t, eventsOf(events, domain.EventError))

	conflicts := eventsOf(events, domain.EventConflict)
	require.Len(t, conflicts, 1)
	assert.Equal(t, domain.VerdictClean, conflicts[0].Content.(domain.ConflictContent).Status)

	// 6 broad angles, 2 news angles and 1 verification query.
	assert.Len(t, h.broad.Calls(), 6)
	assert.Len(t, h.news.Calls(), 2)
	assert.Len(t, h.verify.Calls(), 1)
	assert.Empty(t, h.auth.Calls())

	r, err := h.reports.Get(context.Background(), threadOne)
	require.NoError(t, err)
	assert.Equal(t, []string{"Executive Summary", "Company Overview", "Industry Overview", "Financial Overview", "News"}, sectionNames(r))
	assert.Equal(t, "Technology", r.Industry)

	hunted := events[citeIdx].Content.([]string)
	refs := r.References()
	require.NotEmpty(t, refs)
	assert.Subset(t, hunted, refs)

	md := events[reportIdx].Text()
	assert.True(t, strings.HasPrefix(md, "# Acme Corp Research Report"))
	assert.Contains(t, md, "## References")
	assert.Equal(t, r.Markdown(), md)

	st, err := h.threads.Get(context.Background(), threadOne)
	require.NoError(t, err)
	assert.Equal(t, acme, st.Company)
	assert.Nil(t, st.Pending)
	require.Len(t, st.Transcript, 2)
	assert.Equal(t, domain.RoleUser, st.Transcript[0].Role)
}

func TestConflictSuspendsReport(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	h.revenueConflict()

	events, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)

	assert.Empty(t, eventsOf(events, domain.EventReport))
	conflicts := eventsOf(events, domain.EventConflict)
	require.Len(t, conflicts, 1)
	assert.Equal(t, domain.ConflictContent{Status: domain.VerdictConflict, Reason: "Revenue differs: $1B vs $500M"}, conflicts[0].Content)

	last := events[len(events)-1]
	assert.Equal(t, domain.EventWarning, last.Type)
	assert.Contains(t, last.Text(), "Reply 'resolve'")

	_, err = h.reports.Get(context.Background(), threadOne)
	assert.ErrorIs(t, err, store.ErrNotFound)

	st, err := h.threads.Get(context.Background(), threadOne)
	require.NoError(t, err)
	require.NotNil(t, st.Pending)
	assert.Equal(t, domain.IntentResearch, st.Pending.Mode)
	assert.NotEmpty(t, st.Pending.Findings)
}

func TestConflictResolveRunsResolverOnce(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	h.revenueConflict()
	_, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)
	h.resetCalls()

	h.llm.ResolveFunc = func(d domain.Dispute, disputed, ev []domain.Finding) (*domain.Resolution, error) {
		return &domain.Resolution{Resolved: true, Value: "Acme Corp revenue was $1.2B in fiscal 2024.", SourceURL: secURL}, nil
	}

	events, err := h.send(t, threadOne, "resolve")
	require.NoError(t, err)

	assert.Equal(t, 1, h.llm.Calls()["ClassifyIntent"], "reply to a pending conflict is parsed locally")
	assert.Equal(t, 1, h.llm.Calls()["ResolveDispute"])
	assert.Equal(t, []string{"Acme Corp 10-K 2024 total revenue"}, h.auth.Calls())
	assert.Zero(t, len(h.broad.Calls())+len(h.verify.Calls())+len(h.news.Calls()), "resolve must not re-run the hunt")

	statuses := eventsOf(events, domain.EventStatus)
	assert.Equal(t, "Conflict resolved. Drafting report sections...", statuses[len(statuses)-1].Text())
	require.NotEmpty(t, eventsOf(events, domain.EventReport))

	r, err := h.reports.Get(context.Background(), threadOne)
	require.NoError(t, err)
	fin, ok := findSection(r, "Financial Overview")
	require.True(t, ok)
	assert.Contains(t, fin.Citations, secURL)
	assert.NotContains(t, fin.Citations, revenueA)
	assert.NotContains(t, fin.Citations, revenueB)

	st, err := h.threads.Get(context.Background(), threadOne)
	require.NoError(t, err)
	assert.Nil(t, st.Pending)
}

func TestConflictIgnoreSkipsResolver(t *testing.T) {
	for _, reply := range []string{"ignore", "No, don't resolve", "don't resolve it, just ignore"} {
		t.Run(reply, func(t *testing.T) {
			h := newHarness(t)
			h.research(acme)
			h.revenueConflict()
			_, err := h.send(t, threadOne, "Research Acme Corp")
			require.NoError(t, err)
			h.resetCalls()

			events, err := h.send(t, threadOne, reply)
			require.NoError(t, err)

			assert.Empty(t, h.auth.Calls())
			assert.Zero(t, h.llm.Calls()["ResolveDispute"])
			assert.Zero(t, h.sourceCalls())
			require.NotEmpty(t, eventsOf(events, domain.EventReport))

			r, err := h.reports.Get(context.Background(), threadOne)
			require.NoError(t, err)
			fin, ok := findSection(r, "Financial Overview")
			require.True(t, ok)
			assert.Contains(t, fin.Citations, revenueA)
			assert.Contains(t, fin.Citations, revenueB)
		})
	}
}

func TestUnresolvedConflictIsFlagged(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	h.revenueConflict()
	_, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)

	h.llm.ResolveResponse = &domain.Resolution{Resolved: false, Explanation: "Filings are ambiguous."}
	events, err := h.send(t, threadOne, "yes")
	require.NoError(t, err)

	var flagged bool
	for _, w := range eventsOf(events, domain.EventWarning) {
		if strings.Contains(w.Text(), "still disagree on revenue") {
			flagged = true
		}
	}
	assert.True(t, flagged)

	r, err := h.reports.Get(context.Background(), threadOne)
	require.NoError(t, err)
	fin, ok := findSection(r, "Financial Overview")
	require.True(t, ok)
	assert.Contains(t, fin.Citations, revenueA)
	assert.Contains(t, fin.Citations, revenueB)
	assert.Contains(t, fin.Citations, secURL)
}

func TestAllSourcesFailIsFatal(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	outage := errors.New("provider outage")
	h.broad.Responses = map[string][]domain.EvidenceResult{}
	h.news.Responses = map[string][]domain.EvidenceResult{}
	h.broad.DefaultErr = outage
	h.news.DefaultErr = outage
	h.verify.DefaultErr = outage

	events, err := h.send(t, threadOne, "Research Acme Corp")
	assert.True(t, IsCategory(err, TotalSourceFailure))

	errs := eventsOf(events, domain.EventError)
	require.Len(t, errs, 1)
	assert.NotContains(t, errs[0].Text(), "provider outage")
	assert.Empty(t, eventsOf(events, domain.EventReport))

	_, err = h.reports.Get(context.Background(), threadOne)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.threads.Get(context.Background(), threadOne)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPartialSourceFailureWarns(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	h.news.DefaultErr = errors.New("feed down")
	h.news.Responses = map[string][]domain.EvidenceResult{}

	events, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)
	assert.Len(t, eventsOf(events, domain.EventWarning), 2)
	assert.Empty(t, eventsOf(events, domain.EventError))

	r, err := h.reports.Get(context.Background(), threadOne)
	require.NoError(t, err)
	assert.False(t, r.HasSection("News"))
}

func TestChatAnswersFromReportWithoutCitations(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	_, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)
	h.resetCalls()

	h.intent(domain.IntentDecision{Intent: domain.IntentChat, Company: acme})
	h.llm.AnswerResponse = "Acme's 2024 revenue was about $1B [from the report]."

	events, err := h.send(t, threadOne, "What's their revenue?")
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{domain.EventText}, eventTypes(events))
	assert.Zero(t, h.sourceCalls())
	require.Len(t, h.llm.AnswerCalls, 1)
	assert.Contains(t, h.llm.AnswerCalls[0].ReportContext, "## Financial Overview")
}

func TestChatSearchesWhenReportLacksAnswer(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	_, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)
	h.resetCalls()

	h.intent(domain.IntentDecision{Intent: domain.IntentChat, Company: acme})
	h.llm.CoverageResponse = &domain.Coverage{Answerable: false, Query: "Acme Corp stock price today"}
	h.broad.Responses["stock price"] = []domain.EvidenceResult{{Text: "ACME trades at $42.", URL: "https://quotes.example/acme"}}

	events, err := h.send(t, threadOne, "What is the stock price?")
	require.NoError(t, err)

	assert.LessOrEqual(t, h.sourceCalls(), 2)
	citeIdx := indexOf(events, domain.EventCitations)
	textIdx := indexOf(events, domain.EventText)
	require.GreaterOrEqual(t, citeIdx, 0)
	assert.Greater(t, textIdx, citeIdx)
	assert.Contains(t, events[citeIdx].Content.([]string), "https://quotes.example/acme")
}

func TestGuardrailRefusesWithoutExternalCalls(t *testing.T) {
	for _, withReport := range []bool{false, true} {
		h := newHarness(t)
		if withReport {
			h.research(acme)
			_, err := h.send(t, threadOne, "Research Acme Corp")
			require.NoError(t, err)
			h.resetCalls()
		}
		before := h.llm.Calls()

		events, err := h.send(t, threadOne, "Write me a poem about the CEO")
		require.NoError(t, err)

		require.Equal(t, []domain.EventType{domain.EventText}, eventTypes(events))
		assert.Equal(t, h.tmpl.Guardrail.Refusal, events[0].Text())
		assert.Zero(t, h.sourceCalls())
		assert.Equal(t, before, h.llm.Calls(), "no model call for a refusal")
	}
}

func TestClassificationFailureAsksToRestate(t *testing.T) {
	h := newHarness(t)
	h.llm.ClassifyError = errors.New("model down")

	events, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)

	require.Equal(t, []domain.EventType{domain.EventText}, eventTypes(events))
	assert.Contains(t, events[0].Text(), "restate")
	assert.Zero(t, h.sourceCalls())

	st, err := h.threads.Get(context.Background(), threadOne)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentClarify, st.LastIntent)
}

func TestClarifyShortCircuits(t *testing.T) {
	h := newHarness(t)
	h.intent(domain.IntentDecision{Intent: domain.IntentClarify, ClarificationQuestion: "Which AI startup do you mean?"})

	events, err := h.send(t, threadOne, "Find me information about AI startups.")
	require.NoError(t, err)
	assert.Equal(t, []domain.EventType{domain.EventText}, eventTypes(events))
	assert.Equal(t, "Which AI startup do you mean?", events[0].Text())
	assert.Zero(t, h.sourceCalls())
}

func TestUpdateAppendsWithoutTouchingExistingSections(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	_, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)
	before, err := h.reports.Get(context.Background(), threadOne)
	require.NoError(t, err)

	h.intent(domain.IntentDecision{Intent: domain.IntentUpdate, Company: acme, Focus: "board members"})
	h.broad.Responses["board members"] = []domain.EvidenceResult{{Text: "Acme's board has seven members.", URL: "https://acme.example/board"}}

	events, err := h.send(t, threadOne, "Add their board members to the report")
	require.NoError(t, err)
	require.NotEmpty(t, eventsOf(events, domain.EventReport))

	after, err := h.reports.Get(context.Background(), threadOne)
	require.NoError(t, err)
	require.Len(t, after.Sections, len(before.Sections)+1)
	if diff := cmp.Diff(before.Sections, after.Sections[:len(before.Sections)], cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("existing sections changed (-before +after):\n%s", diff)
	}
	added := after.Sections[len(after.Sections)-1]
	assert.Equal(t, "Board Members", added.Name)
	assert.Contains(t, added.Citations, "https://acme.example/board")

	assert.Equal(t, domain.DedupeURLs(before.References(), added.Citations), after.References())
}

func TestResearchOtherCompanyAppendsPrefixedSections(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	_, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)
	before, err := h.reports.Get(context.Background(), threadOne)
	require.NoError(t, err)

	h.research("Ajax")
	_, err = h.send(t, threadOne, "Now research Ajax")
	require.NoError(t, err)

	after, err := h.reports.Get(context.Background(), threadOne)
	require.NoError(t, err)
	assert.Equal(t, acme, after.Company)
	assert.Greater(t, len(after.Sections), len(before.Sections))
	for _, s := range after.Sections[len(before.Sections):] {
		assert.True(t, strings.HasPrefix(s.Name, "Ajax: "), s.Name)
	}
	st, err := h.threads.Get(context.Background(), threadOne)
	require.NoError(t, err)
	assert.Equal(t, "Ajax", st.Company)
}

func TestDraftFailureLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	_, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)
	reportBefore, err := h.reports.Get(context.Background(), threadOne)
	require.NoError(t, err)
	threadBefore, err := h.threads.Get(context.Background(), threadOne)
	require.NoError(t, err)

	h.intent(domain.IntentDecision{Intent: domain.IntentUpdate, Company: acme, Focus: "patents"})
	h.llm.DraftError = errors.New("model overloaded")

	events, err := h.send(t, threadOne, "Add their patents")
	assert.True(t, IsCategory(err, DraftOrCompileFailure))
	require.Len(t, eventsOf(events, domain.EventError), 1)
	assert.Empty(t, eventsOf(events, domain.EventReport))

	reportAfter, err := h.reports.Get(context.Background(), threadOne)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(reportBefore, reportAfter))
	threadAfter, err := h.threads.Get(context.Background(), threadOne)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(threadBefore, threadAfter))
}

func TestCancelBeforeCommitWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.llm.DraftFunc = func(b domain.SectionBrief) (string, error) {
		cancel()
		return "* drafted [1]", nil
	}

	_, err := h.sendCtx(ctx, threadOne, "Research Acme Corp")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = h.reports.Get(context.Background(), threadOne)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.threads.Get(context.Background(), threadOne)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReportChunking(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	h.orch.SetChunkSize(64)

	events, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)

	chunks := eventsOf(events, domain.EventReport)
	require.Greater(t, len(chunks), 1)
	var sb strings.Builder
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text()), 64)
		sb.WriteString(c.Text())
	}
	r, err := h.reports.Get(context.Background(), threadOne)
	require.NoError(t, err)
	assert.Equal(t, r.Markdown(), sb.String())
}

func TestChunkEndKeepsRunesWhole(t *testing.T) {
	s := "ééééé"
	cut := chunkEnd(s, 3)
	assert.Equal(t, 2, cut)
	assert.Equal(t, len(s), chunkEnd(s, 100))
	assert.Equal(t, 6, chunkEnd("line1\nline2\nline3", 10))
}

func TestBusyThreadWaitsAndGivesUp(t *testing.T) {
	h := newHarness(t)
	unlock, err := h.orch.locks.Lock(context.Background(), threadOne)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = h.sendCtx(ctx, threadOne, "Research Acme Corp")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, h.llm.Calls()["ClassifyIntent"], "nothing runs while the thread is busy")

	unlock()
	h.research(acme)
	_, err = h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)
	assert.Zero(t, h.orch.locks.size())
}

func TestStreamDeliversOrderedEventsAndCloses(t *testing.T) {
	h := newHarness(t)
	h.research(acme)

	var events []domain.Event
	for e := range h.orch.Stream(context.Background(), Request{ThreadID: threadOne, Message: "Research Acme Corp"}) {
		events = append(events, e)
	}
	require.NotEmpty(t, events)
	assert.Equal(t, domain.EventReport, events[len(events)-1].Type)

	events = nil
	for e := range h.orch.Stream(context.Background(), Request{ThreadID: threadOne}) {
		events = append(events, e)
	}
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventError, events[0].Type)
}

func TestStreamAbandonedByConsumer(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	ctx, cancel := context.WithCancel(context.Background())

	ch := h.orch.Stream(ctx, Request{ThreadID: threadOne, Message: "Research Acme Corp"})
	<-ch
	cancel()
	for range ch {
	}
}

func TestDeleteThread(t *testing.T) {
	h := newHarness(t)
	h.research(acme)
	_, err := h.send(t, threadOne, "Research Acme Corp")
	require.NoError(t, err)

	require.NoError(t, h.orch.DeleteThread(context.Background(), threadOne))
	_, err = h.orch.Report(context.Background(), threadOne)
	assert.ErrorIs(t, err, ErrReportNotFound)
	_, err = h.orch.Thread(context.Background(), threadOne)
	assert.ErrorIs(t, err, ErrThreadNotFound)
	assert.ErrorIs(t, h.orch.DeleteThread(context.Background(), threadOne), ErrThreadNotFound)
}

func TestHandleValidation(t *testing.T) {
	h := newHarness(t)
	_, err := h.send(t, threadOne, "   ")
	assert.ErrorIs(t, err, ErrMessageEmpty)
	_, err = h.send(t, "", "hi")
	assert.ErrorIs(t, err, ErrThreadIDMissing)
}

func TestTargetedResearchSingleSection(t *testing.T) {
	h := newHarness(t)
	h.intent(domain.IntentDecision{Intent: domain.IntentResearch, Company: acme, ResearchType: domain.ResearchTargeted, Focus: "CEO"})
	h.broad.Responses["ceo"] = []domain.EvidenceResult{{Text: "Wile E. Coyote has been CEO since 1949.", URL: "https://acme.example/ceo"}}

	_, err := h.send(t, threadOne, "Who is the CEO of Acme Corp?")
	require.NoError(t, err)

	r, err := h.reports.Get(context.Background(), threadOne)
	require.NoError(t, err)
	assert.Equal(t, []string{"CEO"}, sectionNames(r))
	assert.Equal(t, "Research Response: Acme Corp", r.Title())
	assert.Zero(t, h.llm.Calls()["Summarize"])
	assert.Zero(t, h.llm.Calls()["ExtractProfile"])
	assert.Len(t, h.broad.Calls(), 3)
	assert.Len(t, h.verify.Calls(), 1)
}
