package evidence

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const duckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the keyless HTML search page.
type DuckDuckGo struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
}

func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{
		baseURL:    duckDuckGoURL,
		maxResults: 8,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *DuckDuckGo) WithBaseURL(u string) *DuckDuckGo {
	d.baseURL = u
	return d
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]domain.EvidenceResult, error) {
	searchURL := fmt.Sprintf("%s?q=%s", d.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, domain.NewProviderError(d.Name(), "request", 0, err)
	}
	// The HTML endpoint rejects obvious bots.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError(d.Name(), "request", 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errStatus(d.Name(), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.NewProviderError(d.Name(), "read", resp.StatusCode, err)
	}

	results, err := parseDuckDuckGo(string(body), d.maxResults)
	if err != nil {
		return nil, domain.NewProviderError(d.Name(), "decode", resp.StatusCode, err)
	}
	return results, nil
}

func parseDuckDuckGo(page string, maxResults int) ([]domain.EvidenceResult, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var results []domain.EvidenceResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" {
			class := attr(n, "class")
			if strings.Contains(class, "result") && strings.Contains(class, "results_links") {
				r := extractDuckDuckGoResult(n)
				if r.URL != "" && r.Text != "" {
					results = append(results, r)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func extractDuckDuckGoResult(n *html.Node) domain.EvidenceResult {
	var r domain.EvidenceResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			class := attr(n, "class")
			switch {
			case n.Data == "a" && strings.Contains(class, "result__a"):
				r.URL = attr(n, "href")
				r.Title = nodeText(n)
			case strings.Contains(class, "result__snippet"):
				r.Text = nodeText(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	r.URL = unwrapRedirect(r.URL)
	if r.Text == "" {
		r.Text = r.Title
	}
	return r
}

// unwrapRedirect resolves DuckDuckGo's //duckduckgo.com/l/?uddg= links.
func unwrapRedirect(link string) string {
	if !strings.Contains(link, "duckduckgo.com/l/") {
		return link
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return link
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	collectText(n, &sb)
	return strings.Join(strings.Fields(sb.String()), " ")
}
