package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/factfin-ai/factfin/internal/domain"
)

const (
	// scraperBaseURL is the rendering proxy used before falling back to a
	// direct fetch.
	scraperBaseURL = "https://api.scraperapi.com"

	// MaxContentChars caps extracted article text per document.
	MaxContentChars = 6000

	fetchUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Scraper fetches a URL through a scraping API, falling back to a plain HTTP
// GET, and extracts readable article text from the HTML.
type Scraper struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxChars   int
}

// NewScraper creates a scraper. apiKey may be empty, in which case every
// fetch goes direct.
func NewScraper(apiKey string, timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scraper{
		apiKey:     apiKey,
		baseURL:    scraperBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		maxChars:   MaxContentChars,
	}
}

func (s *Scraper) fetchHTML(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if s.apiKey != "" {
		params := url.Values{}
		params.Set("api_key", s.apiKey)
		params.Set("url", rawURL)
		body, err := s.doGet(ctx, s.baseURL+"/?"+params.Encode())
		if err == nil {
			return body, nil
		}
		// Proxy failed, try the page directly.
	}
	return s.doGet(ctx, rawURL)
}

func (s *Scraper) doGet(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %w", rawURL, domain.ErrProviderQuota)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return resp.Body, nil
}

// Fetch returns the readable title and text of a page, truncated to the
// configured character limit.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (string, string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse url %s: %w", rawURL, err)
	}

	body, err := s.fetchHTML(ctx, rawURL)
	if err != nil {
		return "", "", err
	}
	defer body.Close()

	article, err := readability.FromReader(body, pageURL)
	if err != nil {
		return "", "", fmt.Errorf("extract %s: %w", rawURL, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if runes := []rune(text); len(runes) > s.maxChars {
		text = string(runes[:s.maxChars])
	}
	return strings.TrimSpace(article.Title), text, nil
}
