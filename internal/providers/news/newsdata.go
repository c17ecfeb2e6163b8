package news

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/factfin-ai/factfin/internal/domain"
)

const newsdataDefaultBaseURL = "https://newsdata.io/api/1"

// NewsDataProvider fetches news from the NewsData API.
type NewsDataProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewNewsDataProvider creates a NewsData provider. baseURL may be empty for the default.
func NewNewsDataProvider(apiKey, baseURL string) *NewsDataProvider {
	if baseURL == "" {
		baseURL = newsdataDefaultBaseURL
	}
	return &NewsDataProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
	}
}

func (p *NewsDataProvider) Name() string { return "newsdata" }

type newsdataResponse struct {
	Results []struct {
		Title       string   `json:"title"`
		Link        string   `json:"link"`
		Description string   `json:"description"`
		Content     string   `json:"content"`
		PubDate     string   `json:"pubDate"`
		SourceID    string   `json:"source_id"`
		Category    []string `json:"category"`
	} `json:"results"`
}

func (p *NewsDataProvider) search(ctx context.Context, query, symbol string, limit int) ([]domain.RawDocument, error) {
	params := url.Values{}
	params.Set("apikey", p.apiKey)
	params.Set("language", "en")
	params.Set("category", "business")
	if query != "" {
		params.Set("q", query)
	}

	var resp newsdataResponse
	if err := getJSON(ctx, p.httpClient, p.Name(), buildURL(p.baseURL, "/latest", params), &resp); err != nil {
		return nil, err
	}

	limit = clampLimit(limit)
	docs := make([]domain.RawDocument, 0, limit)
	for _, r := range resp.Results {
		if len(docs) >= limit {
			break
		}
		body := r.Content
		if body == "" {
			body = r.Description
		}
		published, _ := time.Parse("2006-01-02 15:04:05", r.PubDate)
		docs = append(docs, domain.RawDocument{
			SourceID:    r.SourceID,
			URL:         r.Link,
			Title:       r.Title,
			Body:        body,
			PublishedAt: published,
			Provider:    p.Name(),
			Type:        domain.DocumentTypeNews,
			Symbol:      symbol,
		})
	}

	return docs, nil
}

func (p *NewsDataProvider) CompanyNews(ctx context.Context, symbol, company string, limit int) ([]domain.RawDocument, error) {
	query := company
	if query == "" {
		query = symbol
	}
	return p.search(ctx, query, symbol, limit)
}

func (p *NewsDataProvider) KeywordNews(ctx context.Context, keywords string, limit int) ([]domain.RawDocument, error) {
	return p.search(ctx, keywords, "", limit)
}

func (p *NewsDataProvider) MarketNews(ctx context.Context, limit int) ([]domain.RawDocument, error) {
	return p.search(ctx, "", "", limit)
}
