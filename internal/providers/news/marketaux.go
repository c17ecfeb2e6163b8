package news

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/factfin-ai/factfin/internal/domain"
)

const marketauxDefaultBaseURL = "https://api.marketaux.com/v1"

// MarketauxProvider fetches news from the Marketaux API. Unlike the general
// providers it supports symbol-keyed queries natively.
type MarketauxProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewMarketauxProvider creates a Marketaux provider. baseURL may be empty for the default.
func NewMarketauxProvider(apiKey, baseURL string) *MarketauxProvider {
	if baseURL == "" {
		baseURL = marketauxDefaultBaseURL
	}
	return &MarketauxProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
	}
}

func (p *MarketauxProvider) Name() string { return "marketaux" }

type marketauxResponse struct {
	Data []struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Snippet     string    `json:"snippet"`
		URL         string    `json:"url"`
		Source      string    `json:"source"`
		PublishedAt time.Time `json:"published_at"`
	} `json:"data"`
}

func (p *MarketauxProvider) search(ctx context.Context, params url.Values, symbol string, limit int) ([]domain.RawDocument, error) {
	params.Set("api_token", p.apiKey)
	params.Set("language", "en")
	params.Set("limit", "50")

	var resp marketauxResponse
	if err := getJSON(ctx, p.httpClient, p.Name(), buildURL(p.baseURL, "/news/all", params), &resp); err != nil {
		return nil, err
	}

	limit = clampLimit(limit)
	docs := make([]domain.RawDocument, 0, limit)
	for _, d := range resp.Data {
		if len(docs) >= limit {
			break
		}
		body := d.Description
		if body == "" {
			body = d.Snippet
		}
		docs = append(docs, domain.RawDocument{
			SourceID:    d.Source,
			URL:         d.URL,
			Title:       d.Title,
			Body:        body,
			PublishedAt: d.PublishedAt,
			Provider:    p.Name(),
			Type:        domain.DocumentTypeNews,
			Symbol:      symbol,
		})
	}

	return docs, nil
}

func (p *MarketauxProvider) CompanyNews(ctx context.Context, symbol, company string, limit int) ([]domain.RawDocument, error) {
	params := url.Values{}
	params.Set("symbols", symbol)
	return p.search(ctx, params, symbol, limit)
}

func (p *MarketauxProvider) KeywordNews(ctx context.Context, keywords string, limit int) ([]domain.RawDocument, error) {
	params := url.Values{}
	params.Set("search", keywords)
	return p.search(ctx, params, "", limit)
}

func (p *MarketauxProvider) MarketNews(ctx context.Context, limit int) ([]domain.RawDocument, error) {
	params := url.Values{}
	params.Set("filter_entities", "true")
	return p.search(ctx, params, "", limit)
}
