package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// PendingConflict holds what is needed to continue a cycle that stopped at
// a conflict prompt.
type PendingConflict struct {
	Mode         Intent       `json:"mode"`
	Company      string       `json:"company"`
	ResearchType ResearchType `json:"research_type"`
	Focus        string       `json:"focus,omitempty"`
	Findings     []Finding    `json:"findings"`
	Verdict      Verdict      `json:"verdict"`
}

type ThreadState struct {
	ID           string           `json:"id"`
	Company      string           `json:"company,omitempty"`
	ResearchType ResearchType     `json:"research_type,omitempty"`
	Focus        string           `json:"focus,omitempty"`
	Transcript   []Message        `json:"transcript"`
	LastIntent   Intent           `json:"last_intent,omitempty"`
	Findings     []Finding        `json:"findings,omitempty"`
	Pending      *PendingConflict `json:"pending_conflict,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func NewThreadState(id string, now time.Time) *ThreadState {
	return &ThreadState{ID: id, CreatedAt: now, UpdatedAt: now}
}

func (t *ThreadState) Clone() *ThreadState {
	if t == nil {
		return nil
	}
	out := *t
	out.Transcript = append([]Message(nil), t.Transcript...)
	out.Findings = CloneFindings(t.Findings)
	if t.Pending != nil {
		p := *t.Pending
		p.Findings = CloneFindings(t.Pending.Findings)
		p.Verdict.Disputes = append([]Dispute(nil), t.Pending.Verdict.Disputes...)
		out.Pending = &p
	}
	return &out
}

// Recent returns the last n transcript messages.
func (t *ThreadState) Recent(n int) []Message {
	if n <= 0 || len(t.Transcript) <= n {
		return t.Transcript
	}
	return t.Transcript[len(t.Transcript)-n:]
}
