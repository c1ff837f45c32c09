package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/vishal27shetty/Company-Research-Agent/internal/buildconfig"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const maxResponseBytes = 2 << 20

// postJSON sends body as JSON and decodes the response into out. Every
// failure comes back as a *domain.ProviderError.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return domain.NewProviderError(provider, "encode", 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return domain.NewProviderError(provider, "request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", buildconfig.UserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return domain.NewProviderError(provider, "request", 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.NewProviderError(provider, "read", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.NewProviderError(provider, "search", resp.StatusCode, errors.New(truncate(string(respBody), 200)))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return domain.NewProviderError(provider, "decode", resp.StatusCode, err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// htmlText returns the visible text of an HTML fragment with whitespace
// collapsed.
func htmlText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), nil)
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	var sb strings.Builder
	for _, n := range nodes {
		collectText(n, &sb)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteString(" ")
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

func errStatus(provider string, status int) error {
	return domain.NewProviderError(provider, "search", status, fmt.Errorf("HTTP %d", status))
}
