package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

func TestOpenAICompleter(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  {\"ok\":true}  "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter("sk-test", "").WithBaseURL(srv.URL)
	out, err := c.Complete(context.Background(), Prompt{System: "sys", User: "hello", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, openAIModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[1].Content)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestOpenAICompleterStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOpenAICompleter("k", "m").WithBaseURL(srv.URL).Complete(context.Background(), Prompt{User: "x"})
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "openai", perr.Provider)
	assert.Equal(t, http.StatusServiceUnavailable, perr.StatusCode)
	assert.True(t, perr.IsRetryable())
}

func TestOpenAICompleterNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAICompleter("k", "m").WithBaseURL(srv.URL).Complete(context.Background(), Prompt{User: "x"})
	assert.Error(t, err)
}

func TestAnthropicCompleter(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ak", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}]}`))
	}))
	defer srv.Close()

	out, err := NewAnthropicCompleter("ak", "").WithBaseURL(srv.URL).Complete(context.Background(), Prompt{System: "sys", User: "q", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", out)
	assert.Equal(t, "sys", got.System)
	assert.Equal(t, anthropicMaxTokens, got.MaxTokens)
	assert.Contains(t, got.Messages[0].Content, "single JSON object")
}
