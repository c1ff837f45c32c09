package llm

const (
	cerebrasChatURL = "https://api.cerebras.ai/v1/chat/completions"
	cerebrasModel   = "llama-3.3-70b"
)

// NewCerebrasCompleter returns an OpenAI-compatible completer for Cerebras.
func NewCerebrasCompleter(apiKey, model string) *OpenAICompleter {
	if model == "" {
		model = cerebrasModel
	}
	c := NewOpenAICompleter(apiKey, model).WithBaseURL(cerebrasChatURL)
	c.name = "cerebras"
	return c
}
