package evidence

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const (
	perplexityURL   = "https://api.perplexity.ai/chat/completions"
	perplexityModel = "sonar-pro"
	perplexitySys   = "You are a helpful research assistant. Provide detailed, factual information. Cite numbers clearly."
)

// Perplexity is the broad-search provider. One answer is split into
// paragraph-sized results, each attributed to the citations it marks.
type Perplexity struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewPerplexity(apiKey string) *Perplexity {
	return &Perplexity{
		apiKey:     apiKey,
		baseURL:    perplexityURL,
		model:      perplexityModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL points the client at a different endpoint.
func (p *Perplexity) WithBaseURL(u string) *Perplexity {
	p.baseURL = u
	return p
}

func (p *Perplexity) Name() string { return "perplexity" }

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityRequest struct {
	Model    string              `json:"model"`
	Messages []perplexityMessage `json:"messages"`
}

type perplexityResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

func (p *Perplexity) Search(ctx context.Context, query string) ([]domain.EvidenceResult, error) {
	var resp perplexityResponse
	err := postJSON(ctx, p.httpClient, p.Name(), p.baseURL,
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		perplexityRequest{
			Model: p.model,
			Messages: []perplexityMessage{
				{Role: "system", Content: perplexitySys},
				{Role: "user", Content: query},
			},
		},
		&resp,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}
	return splitCitedAnswer(resp.Choices[0].Message.Content, resp.Citations), nil
}

var (
	citeRe      = regexp.MustCompile(`\[(\d+)\]`)
	citeStripRe = regexp.MustCompile(`\s*\[\d+\]`)
)

// splitCitedAnswer turns a cited answer into one result per paragraph.
// A paragraph is attributed to the first citation it marks, or to the
// answer's first citation when it marks none.
func splitCitedAnswer(content string, citations []string) []domain.EvidenceResult {
	if len(citations) == 0 {
		return nil
	}
	var out []domain.EvidenceResult
	for _, para := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" || (strings.HasPrefix(para, "#") && !strings.Contains(para, "\n")) {
			continue
		}

		url := citations[0]
		for _, m := range citeRe.FindAllStringSubmatch(para, -1) {
			n, err := strconv.Atoi(m[1])
			if err == nil && n >= 1 && n <= len(citations) {
				url = citations[n-1]
				break
			}
		}

		text := strings.Join(strings.Fields(citeStripRe.ReplaceAllString(para, "")), " ")
		if text == "" {
			continue
		}
		out = append(out, domain.EvidenceResult{Text: text, URL: url})
	}
	return out
}
