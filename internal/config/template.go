package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

//go:embed research.yaml
var defaultTemplateYAML []byte

type ResearchTemplate struct {
	Angles               []Angle           `yaml:"angles"`
	Verification         Angle             `yaml:"verification"`
	Focus                FocusTemplate     `yaml:"focus"`
	Sections             []SectionTemplate `yaml:"sections"`
	SummaryTitle         string            `yaml:"summary_title"`
	AuthoritativeDomains []string          `yaml:"authoritative_domains"`
	Resolver             ResolverLimits    `yaml:"resolver"`
	Chat                 ChatLimits        `yaml:"chat"`
	Guardrail            Guardrail         `yaml:"guardrail"`
}

// Angle is one Hunter query.
type Angle struct {
	Name  string            `yaml:"name"`
	Topic string            `yaml:"topic"`
	Query string            `yaml:"query"`
	Kind  domain.SourceKind `yaml:"kind"`
}

type FocusTemplate struct {
	Queries      []string `yaml:"queries"`
	Verification string   `yaml:"verification"`
}

type SectionTemplate struct {
	Topic        string `yaml:"topic"`
	Title        string `yaml:"title"`
	Instructions string `yaml:"instructions"`
}

type ResolverLimits struct {
	MaxQueries  int `yaml:"max_queries"`
	EnrichPages int `yaml:"enrich_pages"`
}

type ChatLimits struct {
	MaxQueries      int `yaml:"max_queries"`
	ContextSections int `yaml:"context_sections"`
}

type Guardrail struct {
	OffTopic      []string `yaml:"off_topic"`
	CreativeVerbs []string `yaml:"creative_verbs"`
	BusinessCues  []string `yaml:"business_cues"`
	SmallTalk     []string `yaml:"small_talk"`
	Refusal       string   `yaml:"refusal"`
}

// RenderQuery fills {company} and {focus} in a query template.
func RenderQuery(tmpl, company, focus string) string {
	r := strings.NewReplacer("{company}", company, "{focus}", focus)
	return strings.Join(strings.Fields(r.Replace(tmpl)), " ")
}

// LoadTemplate reads the template at path, or the embedded default when
// path is empty.
func LoadTemplate(path string) (*ResearchTemplate, error) {
	if path == "" {
		return ParseTemplate(defaultTemplateYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading research template: %w", err)
	}
	return ParseTemplate(data)
}

// DefaultTemplate returns the embedded template. It panics if the embedded
// file is invalid, which is a build defect.
func DefaultTemplate() *ResearchTemplate {
	t, err := ParseTemplate(defaultTemplateYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded research.yaml: %v", err))
	}
	return t
}

func ParseTemplate(data []byte) (*ResearchTemplate, error) {
	t := &ResearchTemplate{
		SummaryTitle: "Executive Summary",
		Resolver:     ResolverLimits{MaxQueries: 3, EnrichPages: 2},
		Chat:         ChatLimits{MaxQueries: 2, ContextSections: 6},
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing research template: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *ResearchTemplate) validate() error {
	if len(t.Angles) == 0 {
		return errors.New("research template: at least one angle is required")
	}
	for i, a := range t.Angles {
		if a.Query == "" || a.Topic == "" {
			return fmt.Errorf("research template: angle %d needs a topic and a query", i)
		}
		if !domain.ValidSourceKind(string(a.Kind)) {
			return fmt.Errorf("research template: angle %q has unknown kind %q", a.Name, a.Kind)
		}
	}
	if t.Verification.Query == "" {
		return errors.New("research template: verification query is required")
	}
	if t.Verification.Kind == "" {
		t.Verification.Kind = domain.SourceVerification
	}
	if len(t.Focus.Queries) == 0 {
		return errors.New("research template: at least one focus query is required")
	}
	if t.Resolver.MaxQueries <= 0 {
		t.Resolver.MaxQueries = 1
	}
	if t.Chat.MaxQueries < 0 {
		t.Chat.MaxQueries = 0
	}
	return nil
}

// SectionTitle returns the report heading for a topic tag.
func (t *ResearchTemplate) SectionTitle(topic string) string {
	for _, s := range t.Sections {
		if s.Topic == topic {
			return s.Title
		}
	}
	return TitleCase(strings.ReplaceAll(topic, "_", " "))
}

func (t *ResearchTemplate) SectionInstructions(topic string) string {
	for _, s := range t.Sections {
		if s.Topic == topic {
			return s.Instructions
		}
	}
	return ""
}

// TopicRank orders topics by their position in the section list. Unknown
// topics sort after every known one.
func (t *ResearchTemplate) TopicRank(topic string) int {
	for i, s := range t.Sections {
		if s.Topic == topic {
			return i
		}
	}
	return len(t.Sections)
}

// TitleRank is TopicRank keyed by section title.
func (t *ResearchTemplate) TitleRank(title string) int {
	for i, s := range t.Sections {
		if strings.EqualFold(s.Title, title) {
			return i
		}
	}
	return len(t.Sections)
}

// TitleCase upper-cases the first letter of each word.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
