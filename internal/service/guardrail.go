package service

import (
	"strings"
	"unicode"

	"github.com/vishal27shetty/Company-Research-Agent/internal/config"
)

var smallTalkFillers = map[string]bool{
	"":         true,
	"there":    true,
	"so much":  true,
	"a lot":    true,
	"again":    true,
	"everyone": true,
}

// Guardrail is the local topic check run before any external call.
type Guardrail struct {
	offTopic  []string
	verbs     map[string]bool
	cues      map[string]bool
	smallTalk []string
	refusal   string
}

func NewGuardrail(g config.Guardrail) *Guardrail {
	out := &Guardrail{
		refusal: g.Refusal,
		verbs:   wordSet(g.CreativeVerbs),
		cues:    wordSet(g.BusinessCues),
	}
	for _, w := range g.OffTopic {
		if n := normalize(w); n != "" {
			out.offTopic = append(out.offTopic, n)
		}
	}
	for _, w := range g.SmallTalk {
		if n := normalize(w); n != "" {
			out.smallTalk = append(out.smallTalk, n)
		}
	}
	return out
}

func (g *Guardrail) Refusal() string { return g.refusal }

// OffTopic reports whether msg is plainly a creative request: a creative
// verb, one of the off-topic forms, and no business cue. Anything less
// clear-cut is left to the model's off_topic flag.
func (g *Guardrail) OffTopic(msg string) bool {
	n := normalize(msg)
	words := strings.Fields(n)
	hasVerb := false
	for _, w := range words {
		if g.cues[w] {
			return false
		}
		if g.verbs[w] {
			hasVerb = true
		}
	}
	if !hasVerb {
		return false
	}
	padded := " " + n + " "
	for _, p := range g.offTopic {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
		// plural forms: "poems", "jokes"
		if strings.Contains(padded, " "+p+"s ") {
			return true
		}
	}
	return false
}

// SmallTalk reports whether msg is only a greeting or a thank-you.
func (g *Guardrail) SmallTalk(msg string) bool {
	n := normalize(msg)
	for _, p := range g.smallTalk {
		if n == p {
			return true
		}
		if strings.HasPrefix(n, p+" ") && smallTalkFillers[strings.TrimPrefix(n, p+" ")] {
			return true
		}
	}
	return false
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if n := normalize(w); n != "" {
			set[n] = true
		}
	}
	return set
}

// normalize lowercases s and reduces it to space separated words.
func normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	return strings.Join(fields, " ")
}
