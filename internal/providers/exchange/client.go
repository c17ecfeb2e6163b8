// Package exchange provides a direct lookup client for secondary-market
// symbols. Quotes and corporate announcements come straight from the
// exchange rather than the aggregated market data API, which lags for
// suffixed listings.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/factfin-ai/factfin/internal/domain"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	// Exchange endpoints throttle aggressively.
	DefaultRateLimit = 3

	providerName = "exchange"
)

// Client talks to an exchange quote API for suffixed symbols.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates an exchange client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeProviderUnavailable, providerName+" request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.NewDomainError(domain.ErrCodeProviderUnavailable,
			fmt.Sprintf("%s returned status %d: %s", providerName, resp.StatusCode, strings.TrimSpace(string(body))))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeProviderUnavailable, providerName+" returned malformed response", err)
	}

	return nil
}

type quoteResponse struct {
	Info struct {
		Symbol      string `json:"symbol"`
		CompanyName string `json:"companyName"`
	} `json:"info"`
	PriceInfo struct {
		LastPrice      float64 `json:"lastPrice"`
		Change         float64 `json:"change"`
		PChange        float64 `json:"pChange"`
		IntraDayHighLow struct {
			Max float64 `json:"max"`
			Min float64 `json:"min"`
		} `json:"intraDayHighLow"`
	} `json:"priceInfo"`
	SecurityInfo struct {
		TradedVolume int64 `json:"tradedVolume"`
	} `json:"securityInfo"`
	Metadata struct {
		LastUpdateTime string `json:"lastUpdateTime"`
	} `json:"metadata"`
}

// Quote fetches a live quote by base symbol (without the market suffix).
func (c *Client) Quote(ctx context.Context, baseSymbol string) (*domain.Quote, error) {
	params := url.Values{}
	params.Set("symbol", baseSymbol)

	var resp quoteResponse
	if err := c.get(ctx, "/quote-equity", params, &resp); err != nil {
		return nil, err
	}
	if resp.Info.Symbol == "" {
		return nil, domain.NewDomainError(domain.ErrCodeProviderUnavailable, "no exchange quote returned for "+baseSymbol)
	}

	timestamp, _ := time.Parse("02-Jan-2006 15:04:05", resp.Metadata.LastUpdateTime)
	return &domain.Quote{
		Symbol:        resp.Info.Symbol,
		Price:         resp.PriceInfo.LastPrice,
		Change:        resp.PriceInfo.Change,
		ChangePercent: resp.PriceInfo.PChange,
		DayHigh:       resp.PriceInfo.IntraDayHighLow.Max,
		DayLow:        resp.PriceInfo.IntraDayHighLow.Min,
		Volume:        resp.SecurityInfo.TradedVolume,
		Timestamp:     timestamp,
	}, nil
}

type announcementsResponse []struct {
	Symbol   string `json:"symbol"`
	Desc     string `json:"desc"`
	Details  string `json:"attchmntText"`
	Link     string `json:"attchmntFile"`
	Date     string `json:"an_dt"`
}

// Announcements fetches recent corporate announcements by base symbol.
// Documents carry the full suffixed symbol so they index under the same
// entity as the rest of the evidence.
func (c *Client) Announcements(ctx context.Context, baseSymbol, fullSymbol string, limit int) ([]domain.RawDocument, error) {
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("symbol", baseSymbol)

	var resp announcementsResponse
	if err := c.get(ctx, "/corporate-announcements", params, &resp); err != nil {
		return nil, err
	}

	docs := make([]domain.RawDocument, 0, limit)
	for _, a := range resp {
		if len(docs) >= limit {
			break
		}
		published, _ := time.Parse("02-Jan-2006 15:04:05", a.Date)
		docs = append(docs, domain.RawDocument{
			SourceID:    providerName,
			URL:         a.Link,
			Title:       a.Desc,
			Body:        a.Details,
			PublishedAt: published,
			Provider:    providerName,
			Type:        domain.DocumentTypeExchange,
			Symbol:      fullSymbol,
		})
	}

	return docs, nil
}
