package domain

type VerdictStatus string

const (
	VerdictClean    VerdictStatus = "CLEAN"
	VerdictConflict VerdictStatus = "CONFLICT"
)

// Dispute names the findings that disagree about one fact.
type Dispute struct {
	Topic       string   `json:"topic"`
	FindingIDs  []string `json:"finding_ids"`
	Description string   `json:"description"`
}

type Verdict struct {
	Status          VerdictStatus `json:"status"`
	Reason          string        `json:"reason"`
	Disputes        []Dispute     `json:"disputes,omitempty"`
	TieBreakerQuery string        `json:"tie_breaker_query,omitempty"`
}

func (v Verdict) IsConflict() bool {
	return v.Status == VerdictConflict
}

// Resolution is the model's reading of authoritative evidence for a dispute.
type Resolution struct {
	Resolved    bool   `json:"resolved"`
	Value       string `json:"value"`
	SourceURL   string `json:"source_url"`
	Explanation string `json:"explanation"`
}
