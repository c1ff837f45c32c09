package domain

type EventType string

const (
	EventStatus    EventType = "status"
	EventCitations EventType = "citations"
	EventConflict  EventType = "conflict"
	EventReport    EventType = "report"
	EventText      EventType = "text"
	EventWarning   EventType = "warning"
	EventError     EventType = "error"
)

// Event is one item of the per-request stream. Content is a string for
// status, warning, error, report and text events, a []string for
// citations and a ConflictContent for conflict.
type Event struct {
	Type    EventType `json:"type"`
	Content any       `json:"content"`
}

type ConflictContent struct {
	Status VerdictStatus `json:"status"`
	Reason string        `json:"reason"`
}

func StatusEvent(msg string) Event  { return Event{Type: EventStatus, Content: msg} }
func WarningEvent(msg string) Event { return Event{Type: EventWarning, Content: msg} }
func ErrorEvent(msg string) Event   { return Event{Type: EventError, Content: msg} }
func TextEvent(text string) Event   { return Event{Type: EventText, Content: text} }
func ReportEvent(text string) Event { return Event{Type: EventReport, Content: text} }

func CitationsEvent(urls []string) Event {
	return Event{Type: EventCitations, Content: append([]string(nil), urls...)}
}

func ConflictEvent(v Verdict) Event {
	return Event{Type: EventConflict, Content: ConflictContent{Status: v.Status, Reason: v.Reason}}
}

// Text returns the string payload, or "" for structured events.
func (e Event) Text() string {
	s, _ := e.Content.(string)
	return s
}
