package websearch

import (
	"strings"

	"github.com/factfin-ai/factfin/internal/domain"
)

// QueryContext selects which publisher domains a search is restricted to.
type QueryContext string

const (
	ContextCrypto          QueryContext = "crypto"
	ContextSecondaryMarket QueryContext = "secondary-market"
	ContextGlobal          QueryContext = "global"
)

// Prioritized publisher domains per context. Order matters: earlier domains
// rank higher when search results tie.
var contextDomains = map[QueryContext][]string{
	ContextCrypto: {
		"coindesk.com",
		"cointelegraph.com",
		"decrypt.co",
		"theblock.co",
	},
	ContextSecondaryMarket: {
		"moneycontrol.com",
		"economictimes.indiatimes.com",
		"livemint.com",
		"business-standard.com",
	},
	ContextGlobal: {
		"reuters.com",
		"cnbc.com",
		"marketwatch.com",
		"finance.yahoo.com",
		"investing.com",
	},
}

var cryptoKeywords = []string{
	"crypto", "bitcoin", "ethereum", "solana", "dogecoin", "altcoin",
	"blockchain", "token", "stablecoin", "defi",
}

// ClassifyContext picks the search context for a query. The resolved entity
// wins over keyword inspection when present.
func ClassifyContext(query string, entity *domain.Entity) QueryContext {
	if entity != nil {
		if entity.Exchange == "CRYPTO" {
			return ContextCrypto
		}
		if entity.SecondaryMarket() {
			return ContextSecondaryMarket
		}
		return ContextGlobal
	}

	lower := strings.ToLower(query)
	for _, kw := range cryptoKeywords {
		if strings.Contains(lower, kw) {
			return ContextCrypto
		}
	}
	return ContextGlobal
}

// Domains returns the prioritized publisher domains for a context.
func Domains(qc QueryContext) []string {
	if domains, ok := contextDomains[qc]; ok {
		return domains
	}
	return contextDomains[ContextGlobal]
}
