package evidence

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/vishal27shetty/Company-Research-Agent/internal/buildconfig"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const googleNewsRSS = "https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en"

// NewsFeed answers news queries from an RSS search feed.
type NewsFeed struct {
	urlFormat string
	maxItems  int
	maxAge    time.Duration
	parser    *gofeed.Parser
	now       func() time.Time
}

func NewNewsFeed() *NewsFeed {
	p := gofeed.NewParser()
	p.UserAgent = buildconfig.UserAgent()
	p.Client = &http.Client{Timeout: 20 * time.Second}
	return &NewsFeed{
		urlFormat: googleNewsRSS,
		maxItems:  8,
		maxAge:    180 * 24 * time.Hour,
		parser:    p,
		now:       time.Now,
	}
}

// WithURLFormat sets the feed URL; %s receives the escaped query.
func (f *NewsFeed) WithURLFormat(format string) *NewsFeed {
	f.urlFormat = format
	return f
}

func (f *NewsFeed) Name() string { return "newsfeed" }

func (f *NewsFeed) Search(ctx context.Context, query string) ([]domain.EvidenceResult, error) {
	feedURL := fmt.Sprintf(f.urlFormat, url.QueryEscape(query))

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var status int
		if httpErr, ok := err.(gofeed.HTTPError); ok {
			status = httpErr.StatusCode
		}
		return nil, domain.NewProviderError(f.Name(), "search", status, err)
	}

	cutoff := f.now().Add(-f.maxAge)
	var out []domain.EvidenceResult
	for _, item := range feed.Items {
		if len(out) >= f.maxItems {
			break
		}
		r, ok := newsItem(item, cutoff)
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func newsItem(item *gofeed.Item, cutoff time.Time) (domain.EvidenceResult, bool) {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if link == "" || title == "" {
		return domain.EvidenceResult{}, false
	}

	published := item.PublishedParsed
	if published == nil {
		published = item.UpdatedParsed
	}
	if published != nil && published.Before(cutoff) {
		return domain.EvidenceResult{}, false
	}

	text := title
	if published != nil {
		text = published.Format("2006-01-02") + ": " + title
	}
	desc := item.Description
	if item.Content != "" {
		desc = item.Content
	}
	if d := htmlText(desc); d != "" && d != title {
		text += ". " + d
	}
	return domain.EvidenceResult{Text: text, URL: link, Title: title}, true
}
