package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"SERVER_PORT", "LLM_PROVIDER", "THREAD_TTL", "SOURCE_TIMEOUT", "REPORT_STORE", "HUNTER_CONCURRENCY"} {
		t.Setenv(k, "")
	}

	assert.Equal(t, 8080, ServerPort())
	assert.Equal(t, ":8080", ServerAddr())
	assert.Equal(t, "gemini", LLMProvider())
	assert.Equal(t, 2*time.Hour, ThreadTTL())
	assert.Equal(t, 30*time.Second, SourceTimeout())
	assert.Equal(t, "memory", ReportStore())
	assert.Equal(t, 9, HunterConcurrency())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("THREAD_TTL", "15m")
	t.Setenv("SOURCE_RPS", "not-a-number")

	assert.Equal(t, 9090, ServerPort())
	assert.Equal(t, "openai", LLMProvider())
	assert.Equal(t, "sk-test", LLMAPIKey())
	assert.Equal(t, 15*time.Minute, ThreadTTL())
	assert.Equal(t, 5.0, SourceRPS())
}

func TestGeminiKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")
	assert.Equal(t, "google-key", GeminiAPIKey())
}

func TestLoadReadsEnvAndSecret(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("REPORT_CHUNK_SIZE=64\n"), 0o600))
	require.NoError(t, os.WriteFile(envFile+".secret", []byte("API_TOKEN=secret-token\n"), 0o600))

	t.Setenv("RESEARCH_ENV", envFile)
	t.Setenv("REPORT_CHUNK_SIZE", "")
	os.Unsetenv("REPORT_CHUNK_SIZE")
	t.Setenv("API_TOKEN", "")
	os.Unsetenv("API_TOKEN")

	require.NoError(t, Load())
	assert.Equal(t, 64, ReportChunkSize())
	assert.Equal(t, "secret-token", APIToken())
}

func TestDefaultTemplate(t *testing.T) {
	tmpl := DefaultTemplate()

	assert.Len(t, tmpl.Angles, 8)
	assert.Equal(t, domain.SourceVerification, tmpl.Verification.Kind)
	assert.Equal(t, "Executive Summary", tmpl.SummaryTitle)
	assert.Equal(t, 3, tmpl.Resolver.MaxQueries)
	assert.Equal(t, 2, tmpl.Chat.MaxQueries)
	assert.Contains(t, tmpl.Guardrail.OffTopic, "poem")
	assert.Contains(t, tmpl.Guardrail.CreativeVerbs, "write")
	assert.Contains(t, tmpl.Guardrail.BusinessCues, "revenue")

	assert.Equal(t, "Financial Overview", tmpl.SectionTitle("financial"))
	assert.Equal(t, "Supply Chain", tmpl.SectionTitle("supply_chain"))
	assert.Less(t, tmpl.TopicRank("company"), tmpl.TopicRank("news"))
	assert.Equal(t, len(tmpl.Sections), tmpl.TopicRank("unknown"))
}

func TestParseTemplateValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no angles", "verification: {query: q}\nfocus: {queries: [q]}"},
		{"bad kind", "angles: [{name: a, topic: t, query: q, kind: telepathy}]\nverification: {query: q}\nfocus: {queries: [q]}"},
		{"no verification", "angles: [{name: a, topic: t, query: q, kind: broad}]\nfocus: {queries: [q]}"},
		{"no focus", "angles: [{name: a, topic: t, query: q, kind: broad}]\nverification: {query: q}"},
		{"not yaml", "angles: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplate([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadTemplateFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "research.yaml")
	data := "angles: [{name: a, topic: company, query: '{company} a', kind: broad}]\nverification: {query: '{company} v'}\nfocus: {queries: ['{company} {focus}']}\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	tmpl, err := LoadTemplate(path)
	require.NoError(t, err)
	assert.Len(t, tmpl.Angles, 1)
	assert.Equal(t, domain.SourceVerification, tmpl.Verification.Kind)
	assert.Equal(t, 3, tmpl.Resolver.MaxQueries)
}

func TestRenderQuery(t *testing.T) {
	assert.Equal(t, "Acme Corp pricing latest figures", RenderQuery("{company} {focus} latest figures", "Acme Corp", "pricing"))
	assert.Equal(t, "Acme latest news", RenderQuery("{company} {focus} latest news", "Acme", ""))
}
