package domain

type SourceKind string

const (
	SourceBroad         SourceKind = "broad"
	SourceVerification  SourceKind = "verification"
	SourceAuthoritative SourceKind = "authoritative"
	SourceNews          SourceKind = "news"
)

func ValidSourceKind(s string) bool {
	switch SourceKind(s) {
	case SourceBroad, SourceVerification, SourceAuthoritative, SourceNews:
		return true
	}
	return false
}

type FindingStatus string

const (
	FindingPlain    FindingStatus = ""
	FindingResolved FindingStatus = "resolved"
	FindingDisputed FindingStatus = "disputed"
)

// Finding is immutable once created. Stages that revise a finding set
// build a new slice instead of editing entries in place.
type Finding struct {
	ID     string        `json:"id"`
	Claim  string        `json:"claim"`
	URL    string        `json:"url"`
	Kind   SourceKind    `json:"kind"`
	Topic  string        `json:"topic"`
	Status FindingStatus `json:"status,omitempty"`
}

// EvidenceResult is a single hit returned by an evidence provider.
type EvidenceResult struct {
	Text  string `json:"text"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// DedupeURLs returns the non-empty URLs in first-seen order.
func DedupeURLs(urls ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range urls {
		for _, u := range list {
			if u == "" {
				continue
			}
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

func FindingURLs(findings []Finding) []string {
	urls := make([]string, 0, len(findings))
	for _, f := range findings {
		urls = append(urls, f.URL)
	}
	return DedupeURLs(urls)
}

func CloneFindings(findings []Finding) []Finding {
	if findings == nil {
		return nil
	}
	out := make([]Finding, len(findings))
	copy(out, findings)
	return out
}
