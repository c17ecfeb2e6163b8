package domain

import "strings"

// Entity is a resolved tradable symbol. It is derived once per pipeline run
// and never mutated afterward. A nil *Entity means the query resolved to none.
type Entity struct {
	Symbol   string // e.g. "TSLA" or "RELIANCE.NS"
	Name     string // company name from the directory, if known
	Exchange string // e.g. "NASDAQ", "NSE"
	Suffix   string // market qualifier, e.g. "NS" for "RELIANCE.NS"
}

// SecondaryMarket reports whether the symbol is market-qualified, which routes
// the aggregator through the direct exchange-data lookup.
func (e *Entity) SecondaryMarket() bool {
	return e != nil && e.Suffix != ""
}

// BaseSymbol returns the symbol without its market suffix.
func (e *Entity) BaseSymbol() string {
	if e == nil {
		return ""
	}
	if e.Suffix == "" {
		return e.Symbol
	}
	return strings.TrimSuffix(e.Symbol, "."+e.Suffix)
}

// ValidateEntity validates an Entity instance
func ValidateEntity(e *Entity) error {
	if e == nil {
		return nil
	}
	if strings.TrimSpace(e.Symbol) == "" {
		return ErrMissingRequiredField
	}
	if e.Suffix != "" && !strings.HasSuffix(e.Symbol, "."+e.Suffix) {
		return NewDomainError(ErrCodeValidation, "symbol does not carry its market suffix")
	}
	return nil
}
