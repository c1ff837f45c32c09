package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Prompt is one model call. JSON asks the backend for a JSON object reply
// where it supports that natively.
type Prompt struct {
	System      string
	User        string
	JSON        bool
	Temperature float32
	MaxTokens   int
}

// Completer is a single text-completion backend.
type Completer interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

var ErrEmptyCompletion = errors.New("model returned an empty completion")

// decodeJSON unmarshals a model reply, tolerating markdown fences and
// prose around the first JSON object or array.
func decodeJSON(raw string, v any) error {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON in model reply: %q", truncate(s, 120))
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return fmt.Errorf("unterminated JSON in model reply: %q", truncate(s, 120))
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("unmarshal model reply: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
