package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderCerebras  = "cerebras"
	ProviderMock      = "mock"
)

// NewClient creates an LLM client for the named provider.
// Returns an error if the provider is unknown or the API key is empty (except for mock).
func NewClient(ctx context.Context, provider, apiKey, model string, logger *zap.Logger) (domain.LLMClient, error) {
	if provider != ProviderMock && apiKey == "" {
		return nil, fmt.Errorf("an API key is required for the %s provider", provider)
	}

	var completer Completer
	switch provider {
	case ProviderGemini:
		g, err := NewGeminiCompleter(ctx, apiKey, model)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		completer = g
	case ProviderOpenAI:
		completer = NewOpenAICompleter(apiKey, model)
	case ProviderAnthropic:
		completer = NewAnthropicCompleter(apiKey, model)
	case ProviderCerebras:
		completer = NewCerebrasCompleter(apiKey, model)
	case ProviderMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid options: gemini, openai, anthropic, cerebras, mock)", provider)
	}

	if logger != nil {
		logger.Info("llm provider configured", zap.String("provider", provider), zap.String("model", model))
	}
	return NewLLMClient(completer), nil
}
