package domain

import "strings"

type Intent string

const (
	IntentClarify  Intent = "CLARIFY"
	IntentChat     Intent = "CHAT"
	IntentResearch Intent = "RESEARCH"
	IntentUpdate   Intent = "UPDATE"
	IntentResolve  Intent = "RESOLVE"
)

func ValidIntent(s string) bool {
	switch Intent(strings.ToUpper(strings.TrimSpace(s))) {
	case IntentClarify, IntentChat, IntentResearch, IntentUpdate, IntentResolve:
		return true
	}
	return false
}

func ParseIntent(s string) (Intent, bool) {
	if !ValidIntent(s) {
		return "", false
	}
	return Intent(strings.ToUpper(strings.TrimSpace(s))), true
}

type ResearchType string

const (
	ResearchFull     ResearchType = "full"
	ResearchTargeted ResearchType = "targeted"
)

// ResolveChoice is the user's answer to a pending conflict prompt.
type ResolveChoice string

const (
	ChoiceNone    ResolveChoice = ""
	ChoiceResolve ResolveChoice = "resolve"
	ChoiceIgnore  ResolveChoice = "ignore"
)

type IntentDecision struct {
	Intent                Intent        `json:"intent"`
	Company               string        `json:"company_name"`
	ResearchType          ResearchType  `json:"research_type"`
	Focus                 string        `json:"research_focus"`
	Feedback              string        `json:"user_feedback"`
	ClarificationQuestion string        `json:"clarification_question"`
	NewReport             bool          `json:"explicit_new_report"`
	OffTopic              bool          `json:"off_topic"`
	SmallTalk             bool          `json:"small_talk"`
	Reasoning             string        `json:"reasoning"`
	Choice                ResolveChoice `json:"-"`
}

// IntentInput is what the classifier model sees for one turn.
type IntentInput struct {
	Message         string
	Company         string
	HasReport       bool
	PendingConflict bool
	History         []Message
}
