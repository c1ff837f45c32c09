package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const (
	classifierHistoryTurns = 6
	defaultClarification   = "Which company would you like me to research?"
	restateClarification   = "Sorry, I couldn't process that request. Could you restate which company you'd like me to research and what you'd like to know?"
)

var (
	resolveWords = map[string]bool{
		"resolve": true, "yes": true, "y": true, "yeah": true, "yep": true, "sure": true,
		"ok": true, "okay": true, "go ahead": true, "deep dive": true, "dig deeper": true,
		"please resolve": true, "yes please": true, "resolve it": true, "fix it": true,
	}
	ignoreWords = map[string]bool{
		"ignore": true, "no": true, "n": true, "nope": true, "skip": true, "skip it": true,
		"continue": true, "proceed": true, "ignore it": true, "no thanks": true, "just continue": true,
	}
)

// IntentClassifier routes one message. Local rules run first so that
// pending conflict replies and off-topic requests never reach the model.
type IntentClassifier struct {
	llm    domain.LLMClient
	guard  *Guardrail
	logger *zap.Logger
}

func NewIntentClassifier(lc domain.LLMClient, guard *Guardrail, logger *zap.Logger) *IntentClassifier {
	return &IntentClassifier{llm: lc, guard: guard, logger: logger}
}

// Classify returns the routing decision for message. The returned error is
// a ClassificationFailure when the model could not be used; the decision is
// still valid (CLARIFY) in that case.
func (c *IntentClassifier) Classify(ctx context.Context, thread *domain.ThreadState, hasReport bool, message string) (*domain.IntentDecision, error) {
	pending := thread.Pending != nil

	if pending {
		if choice := parseResolveReply(message); choice != domain.ChoiceNone {
			return &domain.IntentDecision{
				Intent:       domain.IntentResolve,
				Company:      thread.Pending.Company,
				ResearchType: thread.Pending.ResearchType,
				Focus:        thread.Pending.Focus,
				Choice:       choice,
				Reasoning:    "reply to pending conflict",
			}, nil
		}
	}

	if c.guard != nil && c.guard.OffTopic(message) {
		return &domain.IntentDecision{
			Intent:    domain.IntentChat,
			Company:   thread.Company,
			OffTopic:  true,
			Reasoning: "off-topic request",
		}, nil
	}

	d, err := c.llm.ClassifyIntent(ctx, domain.IntentInput{
		Message:         message,
		Company:         thread.Company,
		HasReport:       hasReport,
		PendingConflict: pending,
		History:         thread.Recent(classifierHistoryTurns),
	})
	if err != nil {
		c.logger.Warn("intent classification failed, asking user to restate",
			zap.String("thread_id", thread.ID), zap.Error(err))
		return &domain.IntentDecision{
			Intent:                domain.IntentClarify,
			ClarificationQuestion: restateClarification,
			Reasoning:             "classification failed",
		}, newCycleError(ClassificationFailure, restateClarification, err)
	}

	c.applyRules(d, thread, hasReport)
	c.logger.Debug("intent classified",
		zap.String("thread_id", thread.ID),
		zap.String("intent", string(d.Intent)),
		zap.String("company", d.Company),
		zap.String("research_type", string(d.ResearchType)))
	return d, nil
}

func (c *IntentClassifier) applyRules(d *domain.IntentDecision, thread *domain.ThreadState, hasReport bool) {
	if d.Company == "" {
		d.Company = thread.Company
	}
	if d.ResearchType == "" {
		d.ResearchType = domain.ResearchFull
	}
	sameCompany := thread.Company != "" && strings.EqualFold(d.Company, thread.Company)

	switch d.Intent {
	case domain.IntentResearch:
		if d.Company == "" {
			toClarify(d)
			return
		}
		if hasReport && sameCompany && !d.NewReport && d.ResearchType == domain.ResearchFull {
			d.Intent = domain.IntentChat
		}
	case domain.IntentUpdate:
		if d.Company == "" {
			toClarify(d)
			return
		}
		if !hasReport {
			d.Intent = domain.IntentResearch
		}
		if d.Focus == "" && d.Feedback != "" {
			d.Focus = d.Feedback
		}
		if d.Focus != "" {
			d.ResearchType = domain.ResearchTargeted
		}
	case domain.IntentResolve:
		if thread.Pending == nil {
			d.Intent = domain.IntentChat
		} else {
			d.Choice = domain.ChoiceResolve
			d.Company = thread.Pending.Company
		}
	case domain.IntentClarify:
		if d.ClarificationQuestion == "" {
			d.ClarificationQuestion = defaultClarification
		}
	}
}

func toClarify(d *domain.IntentDecision) {
	d.Intent = domain.IntentClarify
	if d.ClarificationQuestion == "" {
		d.ClarificationQuestion = defaultClarification
	}
}

// parseResolveReply recognises a short yes/no answer to the conflict prompt.
func parseResolveReply(message string) domain.ResolveChoice {
	n := normalize(message)
	switch {
	case n == "":
		return domain.ChoiceNone
	case resolveWords[n]:
		return domain.ChoiceResolve
	case ignoreWords[n]:
		return domain.ChoiceIgnore
	}
	words := strings.Fields(n)
	if len(words) > 6 {
		return domain.ChoiceNone
	}
	switch words[0] {
	case "no", "nope", "nah":
		return domain.ChoiceIgnore
	}
	// An ignore word wins over resolve; "don't resolve" counts as ignore.
	negated, resolve, ignore := false, false, false
	for _, w := range words {
		switch w {
		case "don't", "dont", "don", "not", "never", "no":
			negated = true
		case "ignore", "skip":
			ignore = true
		case "resolve":
			if negated {
				ignore = true
			} else {
				resolve = true
			}
		}
	}
	switch {
	case ignore:
		return domain.ChoiceIgnore
	case resolve:
		return domain.ChoiceResolve
	}
	return domain.ChoiceNone
}
