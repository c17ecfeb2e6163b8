// Package symbols provides the known-symbol directory used for entity resolution.
package symbols

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/factfin-ai/factfin/internal/domain"
)

//go:embed symbols.json
var symbolsJSON []byte

type entry struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// Directory is an in-memory lookup of known tradable symbols, including
// market-suffixed secondary-market variants.
type Directory struct {
	entries  []entry
	bySymbol map[string]int
}

// NewDirectory loads the embedded symbol list.
func NewDirectory() (*Directory, error) {
	var entries []entry
	if err := json.Unmarshal(symbolsJSON, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse embedded symbol directory: %w", err)
	}

	d := &Directory{
		entries:  entries,
		bySymbol: make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		d.bySymbol[strings.ToUpper(e.Symbol)] = i
	}
	return d, nil
}

// Len returns the number of directory entries.
func (d *Directory) Len() int {
	return len(d.entries)
}

// Lookup matches free text against the directory: exact ticker, company name
// containment, then fuzzy ticker match. Returns nil when nothing matches.
func (d *Directory) Lookup(text string) *domain.Entity {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}

	// Exact ticker match on any token, e.g. "is TSLA overvalued" or "RELIANCE.NS q4".
	for _, token := range tokenize(clean) {
		if idx, ok := d.bySymbol[strings.ToUpper(token)]; ok {
			return d.entity(idx)
		}
	}

	// Suffixless mention of a secondary-market symbol, e.g. "reliance results".
	upper := strings.ToUpper(clean)
	for _, token := range tokenize(upper) {
		for i, e := range d.entries {
			base, _, found := strings.Cut(e.Symbol, ".")
			if found && base == token {
				return d.entity(i)
			}
		}
	}

	// Company name containment, longest name first so "Tata Consultancy
	// Services" wins over "Tata Motors" when both appear.
	lower := strings.ToLower(clean)
	best := -1
	for i, e := range d.entries {
		name := strings.ToLower(strings.TrimSuffix(strings.TrimSuffix(e.Name, " Inc."), " Limited"))
		name = strings.TrimSuffix(name, " corporation")
		if name == "" {
			continue
		}
		if strings.Contains(lower, name) {
			if best == -1 || len(d.entries[best].Name) < len(e.Name) {
				best = i
			}
		}
	}
	if best >= 0 {
		return d.entity(best)
	}

	// Fuzzy ticker match (single edit) for typos like "TSLAA".
	for _, token := range tokenize(upper) {
		if len(token) < 3 {
			continue
		}
		for i, e := range d.entries {
			if editDistanceAtMostOne(token, strings.ToUpper(e.Symbol)) {
				return d.entity(i)
			}
		}
	}

	return nil
}

func (d *Directory) entity(idx int) *domain.Entity {
	e := d.entries[idx]
	ent := &domain.Entity{
		Symbol:   e.Symbol,
		Name:     e.Name,
		Exchange: e.Exchange,
	}
	if _, suffix, found := strings.Cut(e.Symbol, "."); found {
		ent.Suffix = suffix
	}
	return ent
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', ',', ';', ':', '?', '!', '(', ')', '"', '\'':
			return true
		}
		return false
	})
}

// editDistanceAtMostOne reports whether a and b are within one insertion,
// deletion or substitution of each other.
func editDistanceAtMostOne(a, b string) bool {
	if a == b {
		return true
	}
	la, lb := len(a), len(b)
	if la > lb {
		a, b = b, a
		la, lb = lb, la
	}
	if lb-la > 1 {
		return false
	}

	i, j := 0, 0
	edited := false
	for i < la && j < lb {
		if a[i] == b[j] {
			i++
			j++
			continue
		}
		if edited {
			return false
		}
		edited = true
		if la == lb {
			i++
		}
		j++
	}
	return true
}
