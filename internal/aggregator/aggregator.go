// Package aggregator fans out to the evidence providers and collects their
// results into a single Evidence bundle for indexing and prompting.
package aggregator

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/factfin-ai/factfin/internal/domain"
	"github.com/factfin-ai/factfin/internal/providers/websearch"
)

const (
	// DefaultCallTimeout bounds each individual provider call.
	DefaultCallTimeout = 8 * time.Second

	// maxConcurrentFetches bounds the provider fan-out.
	maxConcurrentFetches = 8

	// newsLimit is how many articles each news provider contributes.
	newsLimit = 10
)

// MarketDataClient provides structured market data for a symbol.
type MarketDataClient interface {
	Quote(ctx context.Context, symbol string) (*domain.Quote, error)
	Profile(ctx context.Context, symbol string) (*domain.Profile, error)
	Ratios(ctx context.Context, symbol string) (*domain.Ratios, error)
	News(ctx context.Context, symbol string, limit int) ([]domain.RawDocument, error)
}

// NewsProvider is one independent news source.
type NewsProvider interface {
	Name() string
	CompanyNews(ctx context.Context, symbol, company string, limit int) ([]domain.RawDocument, error)
	KeywordNews(ctx context.Context, keywords string, limit int) ([]domain.RawDocument, error)
	MarketNews(ctx context.Context, limit int) ([]domain.RawDocument, error)
}

// ExchangeClient provides direct exchange data for suffixed symbols.
type ExchangeClient interface {
	Quote(ctx context.Context, baseSymbol string) (*domain.Quote, error)
	Announcements(ctx context.Context, baseSymbol, fullSymbol string, limit int) ([]domain.RawDocument, error)
}

// WebSearcher provides domain-restricted search plus deep-fetch.
type WebSearcher interface {
	Search(ctx context.Context, query string, qc websearch.QueryContext) ([]websearch.SearchResult, error)
	DeepFetch(ctx context.Context, results []websearch.SearchResult, symbol string) []domain.RawDocument
}

// Evidence is everything the aggregation stage collected for one run.
type Evidence struct {
	Documents        []domain.RawDocument
	Facts            *domain.StructuredFacts
	ProviderFailures int
}

// Aggregator fetches evidence from all configured providers. Any client may
// be nil; its fetches are simply skipped.
type Aggregator struct {
	market        MarketDataClient
	newsProviders []NewsProvider
	exchange      ExchangeClient
	web           WebSearcher
	callTimeout   time.Duration
}

// New creates an Aggregator. callTimeout <= 0 selects the default.
func New(market MarketDataClient, newsProviders []NewsProvider, exchange ExchangeClient, web WebSearcher, callTimeout time.Duration) *Aggregator {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Aggregator{
		market:        market,
		newsProviders: newsProviders,
		exchange:      exchange,
		web:           web,
		callTimeout:   callTimeout,
	}
}

// Fetch collects evidence for a query. With a resolved entity every fetch is
// keyed by that entity's symbol only. Without one the query must pass the
// financial-relevance filter or ErrIrrelevantQuery is returned before any
// provider call.
func (a *Aggregator) Fetch(ctx context.Context, query string, entity *domain.Entity) (*Evidence, error) {
	if entity == nil && !IsFinanciallyRelevant(query) {
		return nil, domain.ErrIrrelevantQuery
	}

	ev := &Evidence{Facts: &domain.StructuredFacts{}}
	var (
		mu            sync.Mutex
		wg            sync.WaitGroup
		sem           = make(chan struct{}, maxConcurrentFetches)
		exchangeQuote *domain.Quote
	)

	// run executes one provider call with its own timeout. A failure logs,
	// counts against ProviderFailures and leaves the other calls alone.
	run := func(name string, call func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
			defer cancel()

			if err := call(callCtx); err != nil {
				log.Printf("aggregator: %s failed: %v", name, err)
				mu.Lock()
				ev.ProviderFailures++
				mu.Unlock()
			}
		}()
	}

	addDocs := func(docs []domain.RawDocument) {
		mu.Lock()
		ev.Documents = append(ev.Documents, docs...)
		mu.Unlock()
	}

	if entity != nil {
		symbol := entity.Symbol

		if a.market != nil {
			run("marketdata quote", func(ctx context.Context) error {
				quote, err := a.market.Quote(ctx, symbol)
				if err != nil {
					return err
				}
				mu.Lock()
				ev.Facts.Quote = quote
				mu.Unlock()
				return nil
			})
			run("marketdata profile", func(ctx context.Context) error {
				profile, err := a.market.Profile(ctx, symbol)
				if err != nil {
					return err
				}
				mu.Lock()
				ev.Facts.Profile = profile
				mu.Unlock()
				return nil
			})
			run("marketdata ratios", func(ctx context.Context) error {
				ratios, err := a.market.Ratios(ctx, symbol)
				if err != nil {
					return err
				}
				mu.Lock()
				ev.Facts.Ratios = ratios
				mu.Unlock()
				return nil
			})
			run("marketdata news", func(ctx context.Context) error {
				docs, err := a.market.News(ctx, symbol, newsLimit)
				if err != nil {
					return err
				}
				addDocs(docs)
				return nil
			})
		}

		for _, p := range a.newsProviders {
			provider := p
			run(provider.Name()+" company news", func(ctx context.Context) error {
				docs, err := provider.CompanyNews(ctx, symbol, entity.Name, newsLimit)
				if err != nil {
					return err
				}
				addDocs(docs)
				return nil
			})
		}

		if a.exchange != nil && entity.SecondaryMarket() {
			base := entity.BaseSymbol()
			run("exchange quote", func(ctx context.Context) error {
				quote, err := a.exchange.Quote(ctx, base)
				if err != nil {
					return err
				}
				mu.Lock()
				exchangeQuote = quote
				mu.Unlock()
				return nil
			})
			run("exchange announcements", func(ctx context.Context) error {
				docs, err := a.exchange.Announcements(ctx, base, symbol, newsLimit)
				if err != nil {
					return err
				}
				addDocs(docs)
				return nil
			})
		}
	} else {
		for _, p := range a.newsProviders {
			provider := p
			run(provider.Name()+" market news", func(ctx context.Context) error {
				docs, err := provider.MarketNews(ctx, newsLimit)
				if err != nil {
					return err
				}
				addDocs(docs)
				return nil
			})
			run(provider.Name()+" keyword news", func(ctx context.Context) error {
				docs, err := provider.KeywordNews(ctx, query, newsLimit)
				if err != nil {
					return err
				}
				addDocs(docs)
				return nil
			})
		}
	}

	if a.web != nil {
		run("web search", func(ctx context.Context) error {
			qc := websearch.ClassifyContext(query, entity)
			results, err := a.web.Search(ctx, query, qc)
			if err != nil {
				return err
			}
			symbol := ""
			if entity != nil {
				symbol = entity.Symbol
			}
			addDocs(a.web.DeepFetch(ctx, results, symbol))
			return nil
		})
	}

	wg.Wait()

	// The aggregated feed is preferred for quotes; the exchange fills in when
	// it has nothing for a suffixed symbol.
	if ev.Facts.Quote == nil && exchangeQuote != nil {
		ev.Facts.Quote = exchangeQuote
	}

	return ev, nil
}

var relevanceKeywords = []string{
	"stock", "share", "market", "price", "earning", "revenue", "profit",
	"dividend", "crypto", "bitcoin", "ethereum", "rate", "inflation", "ipo",
	"invest", "fund", "bond", "nifty", "sensex", "etf", "bull", "bear",
	"economy", "fed", "valuation", "portfolio", "trading", "nasdaq", "index",
	"recession", "yield", "forecast", "quarterly", "buyback",
}

// IsFinanciallyRelevant reports whether an unresolved query still looks like
// a financial question worth aggregating general evidence for.
func IsFinanciallyRelevant(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range relevanceKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
