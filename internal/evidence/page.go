package evidence

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/vishal27shetty/Company-Research-Agent/internal/buildconfig"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

// PageReader fetches a page and extracts its readable article text.
type PageReader struct {
	client   *http.Client
	maxChars int
}

func NewPageReader(timeout time.Duration) *PageReader {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &PageReader{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		maxChars: 4000,
	}
}

func (p *PageReader) Read(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", domain.NewProviderError("page", "request", 0, err)
	}
	req.Header.Set("User-Agent", buildconfig.UserAgent())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", domain.NewProviderError("page", "request", 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", errStatus("page", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", domain.NewProviderError("page", "read", resp.StatusCode, err)
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		return "", domain.NewProviderError("page", "extract", resp.StatusCode, err)
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if len(text) > p.maxChars {
		text = text[:p.maxChars]
	}
	return text, nil
}
