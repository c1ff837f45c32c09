package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/store"
)

const (
	streamBuffer   = 16
	genericFailure = "Something went wrong while handling your request. Please try again."
)

// Request is one user turn.
type Request struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

// Emitter receives the events of one turn in order.
type Emitter func(domain.Event)

// Stages bundles the pipeline components the orchestrator routes through.
type Stages struct {
	Classifier *IntentClassifier
	Hunter     *Hunter
	Judge      *Judge
	Resolver   *Resolver
	Drafter    *Drafter
	Compiler   *Compiler
	Updater    *Updater
	Chat       *ChatResponder
}

// Orchestrator runs one message through classification and the matching
// workflow. At most one cycle runs per thread; thread and report state are
// written only when a cycle completes.
type Orchestrator struct {
	stages    Stages
	threads   domain.ThreadStore
	reports   domain.ReportStore
	locks     *threadLocks
	chunkSize int
	logger    *zap.Logger
	now       func() time.Time
}

func NewOrchestrator(stages Stages, ts domain.ThreadStore, rs domain.ReportStore, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		stages:  stages,
		threads: ts,
		reports: rs,
		locks:   newThreadLocks(),
		logger:  logger,
		now:     time.Now,
	}
}

// SetChunkSize makes report text stream as several report events of at
// most n bytes. Zero sends the report in one event.
func (o *Orchestrator) SetChunkSize(n int) {
	o.chunkSize = n
}

// Handle processes req and sends its events to emit. Cycle failures are
// reported through emit and also returned.
func (o *Orchestrator) Handle(ctx context.Context, req Request, emit Emitter) error {
	msg := strings.TrimSpace(req.Message)
	id := strings.TrimSpace(req.ThreadID)
	if msg == "" {
		return ErrMessageEmpty
	}
	if id == "" {
		return ErrThreadIDMissing
	}

	unlock, err := o.locks.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	st, err := o.loadThread(ctx, id)
	if err != nil {
		emit(domain.ErrorEvent(genericFailure))
		return err
	}
	report, err := o.loadReport(ctx, id)
	if err != nil {
		emit(domain.ErrorEvent(genericFailure))
		return err
	}

	c := &cycle{o: o, ctx: ctx, st: st, report: report, msg: msg, emit: emit}
	start := time.Now()
	err = c.run()
	o.logger.Info("cycle finished",
		zap.String("thread_id", id),
		zap.String("intent", string(st.LastIntent)),
		zap.Duration("took", time.Since(start)),
		zap.Error(err))
	return err
}

// Stream runs Handle in a goroutine and delivers its events on a channel
// that is closed when the turn ends. A consumer that stops reading should
// cancel ctx.
func (o *Orchestrator) Stream(ctx context.Context, req Request) <-chan domain.Event {
	ch := make(chan domain.Event, streamBuffer)
	go func() {
		defer close(ch)
		send := func(e domain.Event) {
			select {
			case ch <- e:
			case <-ctx.Done():
			}
		}
		err := o.Handle(ctx, req, send)
		if errors.Is(err, ErrMessageEmpty) || errors.Is(err, ErrThreadIDMissing) {
			send(domain.ErrorEvent(err.Error()))
		}
	}()
	return ch
}

func (o *Orchestrator) Report(ctx context.Context, threadID string) (*domain.Report, error) {
	r, err := o.reports.Get(ctx, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	return r, err
}

func (o *Orchestrator) Thread(ctx context.Context, threadID string) (*domain.ThreadState, error) {
	t, err := o.threads.Get(ctx, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrThreadNotFound
	}
	return t, err
}

// DeleteThread destroys the thread state and its report. It waits for any
// running cycle on the thread.
func (o *Orchestrator) DeleteThread(ctx context.Context, threadID string) error {
	unlock, err := o.locks.Lock(ctx, threadID)
	if err != nil {
		return err
	}
	defer unlock()

	terr := o.threads.Delete(ctx, threadID)
	rerr := o.reports.Delete(ctx, threadID)
	if errors.Is(terr, store.ErrNotFound) && errors.Is(rerr, store.ErrNotFound) {
		return ErrThreadNotFound
	}
	if terr != nil && !errors.Is(terr, store.ErrNotFound) {
		return terr
	}
	if rerr != nil && !errors.Is(rerr, store.ErrNotFound) {
		return rerr
	}
	o.logger.Info("thread deleted", zap.String("thread_id", threadID))
	return nil
}

func (o *Orchestrator) Ping(ctx context.Context) error {
	return o.reports.Ping(ctx)
}

func (o *Orchestrator) loadThread(ctx context.Context, id string) (*domain.ThreadState, error) {
	st, err := o.threads.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewThreadState(id, o.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	return st, nil
}

func (o *Orchestrator) loadReport(ctx context.Context, id string) (*domain.Report, error) {
	r, err := o.reports.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	return r, nil
}

// cycle is the working state of one turn. st is a private copy; it is
// saved only when the turn completes.
type cycle struct {
	o      *Orchestrator
	ctx    context.Context
	st     *domain.ThreadState
	report *domain.Report
	msg    string
	emit   Emitter
}

func (c *cycle) run() error {
	d, err := c.o.stages.Classifier.Classify(c.ctx, c.st, c.report != nil, c.msg)
	if err != nil && c.ctx.Err() != nil {
		return c.ctx.Err()
	}

	c.st.Transcript = append(c.st.Transcript, domain.Message{Role: domain.RoleUser, Content: c.msg})
	c.st.LastIntent = d.Intent

	switch d.Intent {
	case domain.IntentClarify:
		return c.reply(d.ClarificationQuestion)
	case domain.IntentResearch, domain.IntentUpdate:
		return c.research(d)
	case domain.IntentResolve:
		return c.resolve(d)
	default:
		return c.chat(d)
	}
}

func (c *cycle) reply(text string) error {
	c.emit(domain.TextEvent(text))
	c.say(text)
	return c.save()
}

func (c *cycle) chat(d *domain.IntentDecision) error {
	res, err := c.o.stages.Chat.Respond(c.ctx, c.st, c.report, c.msg, d)
	if err != nil {
		return c.fail(err)
	}
	if res.Refused {
		c.o.logger.Info("guardrail refusal", zap.String("thread_id", c.st.ID), zap.String("category", string(GuardrailRefusal)))
	} else if d.Company != "" && c.st.Company == "" {
		c.st.Company = d.Company
	}
	for _, w := range res.Warnings {
		c.emit(domain.WarningEvent(w))
	}
	if len(res.Citations) > 0 {
		c.emit(domain.CitationsEvent(res.Citations))
	}
	return c.reply(res.Answer)
}

func (c *cycle) research(d *domain.IntentDecision) error {
	company := d.Company
	if d.ResearchType == domain.ResearchTargeted && d.Focus != "" {
		c.emit(domain.StatusEvent(fmt.Sprintf("Researching %s: %s...", company, d.Focus)))
	} else {
		c.emit(domain.StatusEvent(fmt.Sprintf("Researching %s...", company)))
	}

	hunt, err := c.o.stages.Hunter.Hunt(c.ctx, company, d.ResearchType, d.Focus)
	if err != nil {
		return c.fail(err)
	}
	for _, w := range hunt.Warnings {
		c.emit(domain.WarningEvent(w))
	}
	c.emit(domain.CitationsEvent(hunt.Citations))

	c.emit(domain.StatusEvent("Checking the findings for conflicting facts..."))
	verdict, err := c.o.stages.Judge.Evaluate(c.ctx, company, hunt.Findings)
	if err != nil {
		if c.ctx.Err() != nil {
			return c.ctx.Err()
		}
		c.emit(domain.WarningEvent("The conflict check is unavailable, so the findings were not cross-checked."))
	}
	c.emit(domain.ConflictEvent(*verdict))

	if verdict.IsConflict() {
		c.st.Company = company
		c.st.Findings = hunt.Findings
		c.st.Pending = &domain.PendingConflict{
			Mode:         d.Intent,
			Company:      company,
			ResearchType: d.ResearchType,
			Focus:        d.Focus,
			Findings:     hunt.Findings,
			Verdict:      *verdict,
		}
		prompt := fmt.Sprintf("Conflict found: %s. Reply 'resolve' for a deep dive or 'ignore' to continue.",
			strings.TrimSuffix(verdict.Reason, "."))
		c.emit(domain.WarningEvent(prompt))
		c.say(prompt)
		return c.save()
	}

	c.emit(domain.StatusEvent("Data is clean. Drafting report sections..."))
	return c.finish(company, d.ResearchType, d.Focus, hunt.Findings)
}

func (c *cycle) resolve(d *domain.IntentDecision) error {
	p := c.st.Pending
	if p == nil {
		return c.chat(d)
	}

	if d.Choice == domain.ChoiceIgnore {
		c.emit(domain.StatusEvent("Keeping the original findings. Drafting report sections..."))
		return c.finish(p.Company, p.ResearchType, p.Focus, p.Findings)
	}

	c.emit(domain.StatusEvent("Running a deep dive on the disputed facts..."))
	out, err := c.o.stages.Resolver.Resolve(c.ctx, p.Company, p.Findings, p.Verdict)
	if err != nil {
		return c.fail(err)
	}
	for _, w := range out.Warnings {
		c.emit(domain.WarningEvent(w))
	}
	if len(out.Citations) > 0 {
		c.emit(domain.CitationsEvent(out.Citations))
	}
	for _, u := range out.Unresolved {
		c.emit(domain.WarningEvent(fmt.Sprintf("Sources still disagree on %s; the report shows the competing values.", u.Topic)))
	}

	if len(out.Unresolved) == 0 {
		c.emit(domain.StatusEvent("Conflict resolved. Drafting report sections..."))
	} else {
		c.emit(domain.StatusEvent("Drafting report sections with the disagreement flagged..."))
	}
	return c.finish(p.Company, p.ResearchType, p.Focus, out.Findings)
}

// finish drafts, compiles and commits. Nothing is written unless every
// step succeeds and the caller is still there.
func (c *cycle) finish(company string, rtype domain.ResearchType, focus string, findings []domain.Finding) error {
	s := c.o.stages
	draft, err := s.Drafter.Draft(c.ctx, company, rtype, focus, findings)
	if err != nil {
		return c.fail(err)
	}

	var report *domain.Report
	if c.report == nil {
		compiled, err := s.Compiler.Compile(c.ctx, c.st.ID, company, rtype, draft)
		if err != nil {
			return c.fail(err)
		}
		if err := c.ctx.Err(); err != nil {
			return err
		}
		report, err = s.Updater.Commit(c.ctx, compiled)
		if err != nil {
			return c.fail(err)
		}
	} else {
		prefix := ""
		if !strings.EqualFold(company, c.report.Company) {
			prefix = company
		}
		sections := s.Compiler.Sections(c.ctx, draft, prefix)
		if err := c.ctx.Err(); err != nil {
			return err
		}
		report, err = s.Updater.Append(c.ctx, c.st.ID, sections)
		if err != nil {
			return c.fail(err)
		}
	}

	// The report is committed; the thread must follow even if the caller left.
	c.ctx = context.WithoutCancel(c.ctx)

	c.st.Company = company
	c.st.ResearchType = rtype
	c.st.Focus = focus
	c.st.Findings = domain.CloneFindings(findings)
	c.st.Pending = nil

	c.emitReport(report.Markdown())
	c.say(fmt.Sprintf("Delivered %s (%d sections).", report.Title(), len(report.Sections)))
	return c.save()
}

func (c *cycle) emitReport(md string) {
	n := c.o.chunkSize
	if n <= 0 {
		c.emit(domain.ReportEvent(md))
		return
	}
	for len(md) > 0 {
		cut := chunkEnd(md, n)
		c.emit(domain.ReportEvent(md[:cut]))
		md = md[cut:]
	}
}

// chunkEnd picks a cut point of at most n bytes, preferring a line break
// in the second half of the window and never splitting a rune.
func chunkEnd(s string, n int) int {
	if len(s) <= n {
		return len(s)
	}
	if i := strings.LastIndexByte(s[:n], '\n'); i >= n/2 {
		return i + 1
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(s)
		return size
	}
	return cut
}

func (c *cycle) say(text string) {
	c.st.Transcript = append(c.st.Transcript, domain.Message{Role: domain.RoleAssistant, Content: text})
}

func (c *cycle) save() error {
	c.st.UpdatedAt = c.o.now()
	if err := c.o.threads.Save(c.ctx, c.st); err != nil {
		c.o.logger.Error("failed to save thread", zap.String("thread_id", c.st.ID), zap.Error(err))
		return fmt.Errorf("save thread: %w", err)
	}
	return nil
}

// fail converts err into at most one error event. State is left untouched.
func (c *cycle) fail(err error) error {
	if c.ctx.Err() != nil {
		return c.ctx.Err()
	}
	var ce *CycleError
	if errors.As(err, &ce) {
		c.o.logger.Error("cycle failed",
			zap.String("thread_id", c.st.ID),
			zap.String("category", string(ce.Category)),
			zap.Error(ce.Err))
		c.emit(domain.ErrorEvent(ce.Message))
		return ce
	}
	c.o.logger.Error("cycle failed", zap.String("thread_id", c.st.ID), zap.Error(err))
	c.emit(domain.ErrorEvent(genericFailure))
	return err
}
