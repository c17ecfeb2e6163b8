package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/factfin-ai/factfin/internal/domain"
)

const gnewsDefaultBaseURL = "https://gnews.io/api/v4"

// GNewsProvider fetches news from the GNews API.
type GNewsProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGNewsProvider creates a GNews provider. baseURL may be empty for the default.
func NewGNewsProvider(apiKey, baseURL string) *GNewsProvider {
	if baseURL == "" {
		baseURL = gnewsDefaultBaseURL
	}
	return &GNewsProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
	}
}

func (p *GNewsProvider) Name() string { return "gnews" }

type gnewsResponse struct {
	Articles []struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Content     string    `json:"content"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (p *GNewsProvider) search(ctx context.Context, query, symbol string, limit int) ([]domain.RawDocument, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("lang", "en")
	params.Set("max", fmt.Sprintf("%d", clampLimit(limit)))
	params.Set("apikey", p.apiKey)

	var resp gnewsResponse
	if err := getJSON(ctx, p.httpClient, p.Name(), buildURL(p.baseURL, "/search", params), &resp); err != nil {
		return nil, err
	}

	docs := make([]domain.RawDocument, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		body := a.Content
		if body == "" {
			body = a.Description
		}
		docs = append(docs, domain.RawDocument{
			SourceID:    a.Source.Name,
			URL:         a.URL,
			Title:       a.Title,
			Body:        body,
			PublishedAt: a.PublishedAt,
			Provider:    p.Name(),
			Type:        domain.DocumentTypeNews,
			Symbol:      symbol,
		})
	}

	return docs, nil
}

func (p *GNewsProvider) CompanyNews(ctx context.Context, symbol, company string, limit int) ([]domain.RawDocument, error) {
	query := company
	if query == "" {
		query = symbol
	}
	return p.search(ctx, fmt.Sprintf("%q stock", query), symbol, limit)
}

func (p *GNewsProvider) KeywordNews(ctx context.Context, keywords string, limit int) ([]domain.RawDocument, error) {
	return p.search(ctx, keywords, "", limit)
}

func (p *GNewsProvider) MarketNews(ctx context.Context, limit int) ([]domain.RawDocument, error) {
	return p.search(ctx, "stock market", "", limit)
}
