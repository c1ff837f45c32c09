package embedding

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const geminiModel = "text-embedding-004"

type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{client: client}, nil
}

func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncateInput(text)
	resp, err := c.client.Models.EmbedContent(ctx, geminiModel, genai.Text(text), nil)
	if err != nil {
		var apiErr genai.APIError
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.Code
		}
		return nil, domain.NewProviderError("gemini-embedding", "embed", status, err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("embedding API returned no data")
	}
	return resp.Embeddings[0].Values, nil
}
