// Package news provides the independent news providers used by aggregation.
// Each provider normalizes its response into RawDocument at this boundary;
// provider-specific shapes never leak past this package.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/factfin-ai/factfin/internal/domain"
)

// Provider is a single independent news source.
type Provider interface {
	// Name identifies the provider in RawDocument.Provider.
	Name() string
	// CompanyNews fetches news for a specific company/symbol.
	CompanyNews(ctx context.Context, symbol, company string, limit int) ([]domain.RawDocument, error)
	// KeywordNews fetches news matching free-text keywords.
	KeywordNews(ctx context.Context, keywords string, limit int) ([]domain.RawDocument, error)
	// MarketNews fetches general market headlines.
	MarketNews(ctx context.Context, limit int) ([]domain.RawDocument, error)
}

const defaultTimeout = 10 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// getJSON performs a GET and decodes a JSON body, mapping failures to the
// provider-unavailable error code.
func getJSON(ctx context.Context, client *http.Client, provider, rawURL string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeProviderUnavailable, provider+" request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.NewDomainError(domain.ErrCodeProviderUnavailable,
			fmt.Sprintf("%s returned status %d: %s", provider, resp.StatusCode, strings.TrimSpace(string(body))))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeProviderUnavailable, provider+" returned malformed response", err)
	}

	return nil
}

func buildURL(base, path string, params url.Values) string {
	return strings.TrimRight(base, "/") + path + "?" + params.Encode()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 50 {
		return 50
	}
	return limit
}
