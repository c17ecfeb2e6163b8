// Package marketdata provides the structured market data client used for
// quotes, company profiles, fundamental ratios and symbol-keyed news.
package marketdata

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
	// DefaultBaseURL is the base URL for the market data API.
	DefaultBaseURL = "https://financialmodelingprep.com/api/v3"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10

	providerName = "marketdata"
)

// Client is a market data API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
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

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new market data API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
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

// get performs a GET request to the API and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

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
	Symbol            string  `json:"symbol"`
	Price             float64 `json:"price"`
	Change            float64 `json:"change"`
	ChangesPercentage float64 `json:"changesPercentage"`
	DayHigh           float64 `json:"dayHigh"`
	DayLow            float64 `json:"dayLow"`
	Volume            int64   `json:"volume"`
	MarketCap         float64 `json:"marketCap"`
	Timestamp         int64   `json:"timestamp"`
}

// Quote fetches the live quote for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	var resp []quoteResponse
	if err := c.get(ctx, "/quote/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeProviderUnavailable, "no quote returned for "+symbol)
	}

	q := resp[0]
	return &domain.Quote{
		Symbol:        q.Symbol,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangesPercentage,
		DayHigh:       q.DayHigh,
		DayLow:        q.DayLow,
		Volume:        q.Volume,
		MarketCap:     q.MarketCap,
		Timestamp:     time.Unix(q.Timestamp, 0).UTC(),
	}, nil
}

type profileResponse struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
	Exchange    string `json:"exchangeShortName"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

// Profile fetches the company profile for a symbol.
func (c *Client) Profile(ctx context.Context, symbol string) (*domain.Profile, error) {
	var resp []profileResponse
	if err := c.get(ctx, "/profile/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeProviderUnavailable, "no profile returned for "+symbol)
	}

	p := resp[0]
	return &domain.Profile{
		Symbol:      p.Symbol,
		CompanyName: p.CompanyName,
		Exchange:    p.Exchange,
		Sector:      p.Sector,
		Industry:    p.Industry,
		Description: p.Description,
		Website:     p.Website,
	}, nil
}

type ratiosResponse struct {
	Symbol                 string  `json:"symbol"`
	PERatioTTM             float64 `json:"peRatioTTM"`
	PriceToBookRatioTTM    float64 `json:"priceToBookRatioTTM"`
	DebtEquityRatioTTM     float64 `json:"debtEquityRatioTTM"`
	ReturnOnEquityTTM      float64 `json:"returnOnEquityTTM"`
	CurrentRatioTTM        float64 `json:"currentRatioTTM"`
	DividendYielPercentTTM float64 `json:"dividendYielPercentageTTM"`
}

// Ratios fetches trailing fundamental ratios for a symbol.
func (c *Client) Ratios(ctx context.Context, symbol string) (*domain.Ratios, error) {
	var resp []ratiosResponse
	if err := c.get(ctx, "/ratios-ttm/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeProviderUnavailable, "no ratios returned for "+symbol)
	}

	r := resp[0]
	return &domain.Ratios{
		Symbol:         symbol,
		PERatio:        r.PERatioTTM,
		PBRatio:        r.PriceToBookRatioTTM,
		DebtToEquity:   r.DebtEquityRatioTTM,
		ReturnOnEquity: r.ReturnOnEquityTTM,
		CurrentRatio:   r.CurrentRatioTTM,
		DividendYield:  r.DividendYielPercentTTM,
	}, nil
}

type newsResponse struct {
	Symbol        string `json:"symbol"`
	PublishedDate string `json:"publishedDate"`
	Title         string `json:"title"`
	Site          string `json:"site"`
	Text          string `json:"text"`
	URL           string `json:"url"`
}

// News fetches recent symbol-keyed news articles.
func (c *Client) News(ctx context.Context, symbol string, limit int) ([]domain.RawDocument, error) {
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("tickers", symbol)
	params.Set("limit", fmt.Sprintf("%d", limit))

	var resp []newsResponse
	if err := c.get(ctx, "/stock_news", params, &resp); err != nil {
		return nil, err
	}

	docs := make([]domain.RawDocument, 0, len(resp))
	for _, item := range resp {
		published, _ := time.Parse("2006-01-02 15:04:05", item.PublishedDate)
		docs = append(docs, domain.RawDocument{
			SourceID:    item.Site,
			URL:         item.URL,
			Title:       item.Title,
			Body:        item.Text,
			PublishedAt: published,
			Provider:    providerName,
			Type:        domain.DocumentTypeNews,
			Symbol:      item.Symbol,
		})
	}

	return docs, nil
}
