// Package websearch provides domain-restricted web search and the deep-fetch
// step that turns the top results into readable evidence documents.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/factfin-ai/factfin/internal/domain"
)

const (
	// DefaultBaseURL is the base URL for the search API.
	DefaultBaseURL = "https://google.serper.dev"

	// DefaultTimeout is the default HTTP timeout for search calls.
	DefaultTimeout = 10 * time.Second

	// DefaultDeepFetchLimit is how many top results get deep-fetched.
	DefaultDeepFetchLimit = 3

	providerName = "websearch"
)

// SearchResult is one hit from the search API.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Fetcher extracts readable content from a URL. Implemented by Scraper.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (title, text string, err error)
}

// Client searches the web restricted to a context's publisher domains and
// deep-fetches the top results.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	fetcher    Fetcher
	fetchLimit int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom search API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithDeepFetchLimit sets how many top results get deep-fetched.
func WithDeepFetchLimit(limit int) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.fetchLimit = limit
		}
	}
}

// NewClient creates a search client. fetcher may be nil to disable deep-fetch.
func NewClient(apiKey string, fetcher Fetcher, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		fetcher:    fetcher,
		fetchLimit: DefaultDeepFetchLimit,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search queries the search API restricted to the context's publisher domains.
func (c *Client) Search(ctx context.Context, query string, qc QueryContext) ([]SearchResult, error) {
	domains := Domains(qc)
	restrictions := make([]string, 0, len(domains))
	for _, d := range domains {
		restrictions = append(restrictions, "site:"+d)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"q":   query + " " + strings.Join(restrictions, " OR "),
		"num": 10,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeProviderUnavailable, providerName+" request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.NewDomainError(domain.ErrCodeProviderUnavailable,
			fmt.Sprintf("%s returned status %d: %s", providerName, resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeProviderUnavailable, providerName+" returned malformed response", err)
	}

	results := make([]SearchResult, 0, len(sr.Organic))
	for _, o := range sr.Organic {
		results = append(results, SearchResult{Title: o.Title, URL: o.Link, Snippet: o.Snippet})
	}
	return results, nil
}

// DeepFetch fetches readable content for the top results in parallel.
// A result whose fetch fails falls back to its search snippet; results with
// neither content nor snippet are dropped. Result order is preserved.
func (c *Client) DeepFetch(ctx context.Context, results []SearchResult, symbol string) []domain.RawDocument {
	limit := c.fetchLimit
	if limit > len(results) {
		limit = len(results)
	}

	docs := make([]*domain.RawDocument, limit)
	var wg sync.WaitGroup
	for i := 0; i < limit; i++ {
		wg.Add(1)
		go func(i int, r SearchResult) {
			defer wg.Done()

			title, body := r.Title, r.Snippet
			if c.fetcher != nil {
				fetchedTitle, text, err := c.fetcher.Fetch(ctx, r.URL)
				if err == nil && text != "" {
					body = text
					if fetchedTitle != "" {
						title = fetchedTitle
					}
				}
			}
			if body == "" {
				return
			}

			docs[i] = &domain.RawDocument{
				SourceID:    providerName,
				URL:         r.URL,
				Title:       title,
				Body:        body,
				PublishedAt: time.Now().UTC(),
				Provider:    providerName,
				Type:        domain.DocumentTypeWeb,
				Symbol:      symbol,
			}
		}(i, results[i])
	}
	wg.Wait()

	out := make([]domain.RawDocument, 0, limit)
	for _, d := range docs {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out
}
