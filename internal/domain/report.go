package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Section bodies carry citation markers [n] that index into the section's
// own Citations list (1-based). Rendering maps them onto References.
type Section struct {
	Name      string    `json:"name"`
	Body      string    `json:"body"`
	Citations []string  `json:"citations"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Report struct {
	ThreadID     string       `json:"thread_id"`
	Company      string       `json:"company"`
	ResearchType ResearchType `json:"research_type"`
	Industry     string       `json:"industry,omitempty"`
	HQLocation   string       `json:"hq_location,omitempty"`
	Sections     []Section    `json:"sections"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// References is always derived from the sections present.
func (r *Report) References() []string {
	lists := make([][]string, 0, len(r.Sections))
	for _, s := range r.Sections {
		lists = append(lists, s.Citations)
	}
	return DedupeURLs(lists...)
}

func (r *Report) Title() string {
	if r.ResearchType == ResearchTargeted {
		return "Research Response: " + r.Company
	}
	return r.Company + " Research Report"
}

func (r *Report) HasSection(name string) bool {
	for _, s := range r.Sections {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	out := *r
	out.Sections = make([]Section, len(r.Sections))
	for i, s := range r.Sections {
		out.Sections[i] = s.clone()
	}
	return &out
}

func (s Section) clone() Section {
	out := s
	if s.Citations != nil {
		out.Citations = append([]string(nil), s.Citations...)
	}
	if s.Embedding != nil {
		out.Embedding = append([]float32(nil), s.Embedding...)
	}
	return out
}

// AppendSections returns a new report holding every section of r followed
// by sections. r is not modified. Names that collide with an existing
// section get an "(update N)" suffix so earlier sections stay addressable.
func AppendSections(r *Report, sections []Section, now time.Time) *Report {
	out := r.Clone()
	for _, s := range sections {
		s = s.clone()
		s.Name = uniqueSectionName(out, s.Name)
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		out.Sections = append(out.Sections, s)
	}
	out.UpdatedAt = now
	return out
}

func uniqueSectionName(r *Report, name string) string {
	if !r.HasSection(name) {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (update %d)", name, n)
		if !r.HasSection(candidate) {
			return candidate
		}
	}
}

var markerRe = regexp.MustCompile(`(\s*)\[(\d+)\]`)

// RenumberMarkers rewrites local [n] markers through mapping. Markers with
// no mapping are dropped.
func RenumberMarkers(body string, mapping func(n int) (int, bool)) string {
	out := markerRe.ReplaceAllStringFunc(body, func(m string) string {
		sub := markerRe.FindStringSubmatch(m)
		n, err := strconv.Atoi(sub[2])
		if err != nil {
			return ""
		}
		g, ok := mapping(n)
		if !ok {
			return ""
		}
		return sub[1] + "[" + strconv.Itoa(g) + "]"
	})
	return strings.TrimSpace(out)
}

// Markers returns the distinct marker numbers in body, in order of appearance.
func Markers(body string) []int {
	var out []int
	seen := make(map[int]bool)
	for _, m := range markerRe.FindAllStringSubmatch(body, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Markdown renders the full report text, including the References section.
func (r *Report) Markdown() string {
	refs := r.References()
	index := make(map[string]int, len(refs))
	for i, u := range refs {
		index[u] = i + 1
	}

	var b strings.Builder
	b.WriteString("# " + r.Title() + "\n\n")

	var meta []string
	if r.Industry != "" {
		meta = append(meta, "**Industry:** "+r.Industry)
	}
	if r.HQLocation != "" {
		meta = append(meta, "**Headquarters:** "+r.HQLocation)
	}
	if len(meta) > 0 {
		b.WriteString(strings.Join(meta, " | ") + "\n\n")
	}

	for _, s := range r.Sections {
		cites := s.Citations
		body := RenumberMarkers(s.Body, func(n int) (int, bool) {
			if n < 1 || n > len(cites) {
				return 0, false
			}
			g, ok := index[cites[n-1]]
			return g, ok
		})
		b.WriteString("## " + s.Name + "\n\n")
		b.WriteString(body + "\n\n")
	}

	b.WriteString("## References\n\n")
	for i, u := range refs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, u)
	}
	return b.String()
}
