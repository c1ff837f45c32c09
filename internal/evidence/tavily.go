package evidence

import (
	"context"
	"net/http"
	"time"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const tavilyURL = "https://api.tavily.com/search"

// Tavily serves verification queries and, restricted to a domain list,
// authoritative queries for conflict resolution.
type Tavily struct {
	apiKey         string
	baseURL        string
	maxResults     int
	includeDomains []string
	httpClient     *http.Client
}

func NewTavily(apiKey string) *Tavily {
	return &Tavily{
		apiKey:     apiKey,
		baseURL:    tavilyURL,
		maxResults: 5,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *Tavily) WithBaseURL(u string) *Tavily {
	t.baseURL = u
	return t
}

// WithIncludeDomains restricts results to the given domains.
func (t *Tavily) WithIncludeDomains(domains []string) *Tavily {
	t.includeDomains = append([]string(nil), domains...)
	return t
}

func (t *Tavily) Name() string {
	if len(t.includeDomains) > 0 {
		return "tavily-authoritative"
	}
	return "tavily"
}

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	IncludeAnswer  bool     `json:"include_answer"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (t *Tavily) Search(ctx context.Context, query string) ([]domain.EvidenceResult, error) {
	var resp tavilyResponse
	err := postJSON(ctx, t.httpClient, t.Name(), t.baseURL,
		map[string]string{"Authorization": "Bearer " + t.apiKey},
		tavilyRequest{
			APIKey:         t.apiKey,
			Query:          query,
			SearchDepth:    "advanced",
			IncludeAnswer:  true,
			MaxResults:     t.maxResults,
			IncludeDomains: t.includeDomains,
		},
		&resp,
	)
	if err != nil {
		return nil, err
	}

	out := make([]domain.EvidenceResult, 0, len(resp.Results)+1)
	for _, r := range resp.Results {
		if r.URL == "" || r.Content == "" {
			continue
		}
		out = append(out, domain.EvidenceResult{Text: htmlText(r.Content), URL: r.URL, Title: r.Title})
	}
	// The synthesized answer is attributed to the top result it was built from.
	if resp.Answer != "" && len(out) > 0 {
		out = append(out, domain.EvidenceResult{Text: resp.Answer, URL: out[0].URL, Title: "Summary"})
	}
	return out, nil
}
