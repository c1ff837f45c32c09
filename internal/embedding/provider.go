package embedding

import (
	"context"
	"fmt"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

// Provider constants
const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// NewClient creates an embedding client based on the provider name.
// ProviderNone yields a nil client: sections are stored without vectors and
// chat context falls back to the newest sections.
func NewClient(ctx context.Context, provider, apiKey string) (domain.EmbeddingClient, error) {
	switch provider {
	case ProviderNone, "":
		return nil, nil

	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embedding provider")
		}
		return NewOpenAIClient(apiKey), nil

	case ProviderGemini:
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini embedding provider")
		}
		return NewGeminiClient(ctx, apiKey)

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: none, openai, gemini, mock)", provider)
	}
}
