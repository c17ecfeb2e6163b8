package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factfin-ai/factfin/internal/domain"
)

func TestGNewsCompanyNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, `"Tesla Inc" stock`, r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"articles": [
				{
					"title": "Tesla deliveries beat estimates",
					"description": "Short summary.",
					"content": "Tesla delivered more vehicles than expected this quarter.",
					"url": "https://example.com/tesla-deliveries",
					"publishedAt": "2026-08-20T09:30:00Z",
					"source": {"name": "Example Wire"}
				}
			]
		}`))
	}))
	defer server.Close()

	provider := NewGNewsProvider("test-key", server.URL)
	docs, err := provider.CompanyNews(context.Background(), "TSLA", "Tesla Inc", 10)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "gnews", docs[0].Provider)
	assert.Equal(t, "TSLA", docs[0].Symbol)
	assert.Equal(t, domain.DocumentTypeNews, docs[0].Type)
	assert.Equal(t, "Tesla deliveries beat estimates", docs[0].Title)
	assert.Equal(t, "Tesla delivered more vehicles than expected this quarter.", docs[0].Body)
	assert.Equal(t, "https://example.com/tesla-deliveries", docs[0].URL)
	assert.Equal(t, "Example Wire", docs[0].SourceID)
}

func TestGNewsFallsBackToDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"articles": [
				{
					"title": "Markets open higher",
					"description": "Indexes rose at the open.",
					"content": "",
					"url": "https://example.com/markets",
					"publishedAt": "2026-08-20T09:30:00Z",
					"source": {"name": "Example Wire"}
				}
			]
		}`))
	}))
	defer server.Close()

	provider := NewGNewsProvider("test-key", server.URL)
	docs, err := provider.MarketNews(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Indexes rose at the open.", docs[0].Body)
	assert.Empty(t, docs[0].Symbol)
}

func TestNewsDataCompanyNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "Infosys", r.URL.Query().Get("q"))
		assert.Equal(t, "business", r.URL.Query().Get("category"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"results": [
				{
					"title": "Infosys wins large deal",
					"link": "https://example.com/infosys-deal",
					"description": "Deal summary.",
					"content": "Infosys signed a multi-year contract.",
					"pubDate": "2026-08-19 14:00:00",
					"source_id": "example_wire",
					"category": ["business"]
				},
				{
					"title": "Second story",
					"link": "https://example.com/second",
					"description": "More news.",
					"content": "",
					"pubDate": "2026-08-18 10:00:00",
					"source_id": "example_wire",
					"category": ["business"]
				}
			]
		}`))
	}))
	defer server.Close()

	provider := NewNewsDataProvider("test-key", server.URL)
	docs, err := provider.CompanyNews(context.Background(), "INFY.NS", "Infosys", 1)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "newsdata", docs[0].Provider)
	assert.Equal(t, "INFY.NS", docs[0].Symbol)
	assert.Equal(t, "Infosys signed a multi-year contract.", docs[0].Body)
	assert.Equal(t, 2026, docs[0].PublishedAt.Year())
}

func TestMarketauxCompanyNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news/all", r.URL.Path)
		assert.Equal(t, "NVDA", r.URL.Query().Get("symbols"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": [
				{
					"title": "Nvidia guidance tops forecasts",
					"description": "",
					"snippet": "Nvidia raised its outlook for the current quarter.",
					"url": "https://example.com/nvda-guidance",
					"source": "example.com",
					"published_at": "2026-08-21T16:00:00Z"
				}
			]
		}`))
	}))
	defer server.Close()

	provider := NewMarketauxProvider("test-key", server.URL)
	docs, err := provider.CompanyNews(context.Background(), "NVDA", "Nvidia", 10)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "marketaux", docs[0].Provider)
	assert.Equal(t, "NVDA", docs[0].Symbol)
	assert.Equal(t, "Nvidia raised its outlook for the current quarter.", docs[0].Body)
	assert.Equal(t, "example.com", docs[0].SourceID)
}

func TestProviderUnavailableOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	providers := []Provider{
		NewGNewsProvider("test-key", server.URL),
		NewNewsDataProvider("test-key", server.URL),
		NewMarketauxProvider("test-key", server.URL),
	}

	for _, p := range providers {
		t.Run(p.Name(), func(t *testing.T) {
			_, err := p.CompanyNews(context.Background(), "AAPL", "Apple", 10)
			require.Error(t, err)

			var domainErr *domain.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, domain.ErrCodeProviderUnavailable, domainErr.Code)
		})
	}
}

func TestProviderUnavailableOnUnreachableHost(t *testing.T) {
	provider := NewGNewsProvider("test-key", "http://127.0.0.1:1")

	_, err := provider.MarketNews(context.Background(), 5)
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.ErrCodeProviderUnavailable, domainErr.Code)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 10, clampLimit(0))
	assert.Equal(t, 10, clampLimit(-3))
	assert.Equal(t, 1, clampLimit(1))
	assert.Equal(t, 50, clampLimit(200))
}
