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
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	openAIModel   = "gpt-4o-mini"
)

// OpenAICompleter speaks the OpenAI chat completions protocol. Compatible
// providers reuse it with a different base URL.
type OpenAICompleter struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOpenAICompleter(apiKey, model string) *OpenAICompleter {
	if model == "" {
		model = openAIModel
	}
	return &OpenAICompleter{
		name:       "openai",
		apiKey:     apiKey,
		baseURL:    openAIChatURL,
		model:      model,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *OpenAICompleter) WithBaseURL(u string) *OpenAICompleter {
	c.baseURL = u
	return c
}

func (c *OpenAICompleter) Name() string { return c.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAICompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
	if p.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: p.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: p.User})
	if p.JSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", domain.NewProviderError(c.name, "complete", 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewProviderError(c.name, "complete", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", domain.NewProviderError(c.name, "complete", resp.StatusCode,
			fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", domain.NewProviderError(c.name, "complete", resp.StatusCode, fmt.Errorf("unmarshal chat response: %w", err))
	}
	if result.Error != nil {
		return "", domain.NewProviderError(c.name, "complete", resp.StatusCode, fmt.Errorf("chat API error: %s", result.Error.Message))
	}
	if len(result.Choices) == 0 {
		return "", domain.NewProviderError(c.name, "complete", resp.StatusCode, fmt.Errorf("chat API returned no choices"))
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return "", domain.NewProviderError(c.name, "complete", resp.StatusCode, ErrEmptyCompletion)
	}
	return text, nil
}
