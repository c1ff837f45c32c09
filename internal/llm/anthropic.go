package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicModel       = "claude-3-5-haiku-20241022"
	anthropicVersion     = "2023-06-01"
	anthropicMaxTokens   = 2048
)

type AnthropicCompleter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewAnthropicCompleter(apiKey, model string) *AnthropicCompleter {
	if model == "" {
		model = anthropicModel
	}
	return &AnthropicCompleter{
		apiKey:     apiKey,
		baseURL:    anthropicMessagesURL,
		model:      model,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *AnthropicCompleter) WithBaseURL(u string) *AnthropicCompleter {
	c.baseURL = u
	return c
}

func (c *AnthropicCompleter) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature float32            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}
	user := p.User
	if p.JSON {
		user += "\n\nRespond with a single JSON object and nothing else."
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      p.System,
		Temperature: p.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewProviderError(c.Name(), "complete", 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewProviderError(c.Name(), "complete", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", domain.NewProviderError(c.Name(), "complete", resp.StatusCode,
			fmt.Errorf("anthropic API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
	}

	var result anthropicResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", domain.NewProviderError(c.Name(), "complete", resp.StatusCode, fmt.Errorf("unmarshal anthropic response: %w", err))
	}
	if result.Error != nil {
		return "", domain.NewProviderError(c.Name(), "complete", resp.StatusCode, fmt.Errorf("anthropic API error: %s", result.Error.Message))
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", domain.NewProviderError(c.Name(), "complete", resp.StatusCode, ErrEmptyCompletion)
	}
	return text, nil
}
