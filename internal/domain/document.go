package domain

import "time"

// DocumentType classifies a fetched unit of evidence.
type DocumentType string

const (
	DocumentTypeNews     DocumentType = "news"
	DocumentTypeQuote    DocumentType = "quote"
	DocumentTypeProfile  DocumentType = "profile"
	DocumentTypeRatios   DocumentType = "ratios"
	DocumentTypeExchange DocumentType = "exchange"
	DocumentTypeWeb      DocumentType = "web"
)

// RawDocument is a fetched unit of evidence produced by the aggregation stage.
// It is immutable once created and owned by the pipeline run until ingested.
type RawDocument struct {
	SourceID    string
	URL         string
	Title       string
	Body        string
	PublishedAt time.Time
	Provider    string
	Type        DocumentType
	Symbol      string // resolved symbol the document was fetched for, if any
}

// Quote is a live price snapshot for a symbol.
type Quote struct {
	Symbol        string
	Price         float64
	Change        float64
	ChangePercent float64
	DayHigh       float64
	DayLow        float64
	Volume        int64
	MarketCap     float64
	Timestamp     time.Time
}

// Profile describes the company behind a symbol.
type Profile struct {
	Symbol      string
	CompanyName string
	Exchange    string
	Sector      string
	Industry    string
	Description string
	Website     string
}

// Ratios carries fundamental ratios for a symbol.
type Ratios struct {
	Symbol         string
	PERatio        float64
	PBRatio        float64
	DebtToEquity   float64
	ReturnOnEquity float64
	CurrentRatio   float64
	DividendYield  float64
}

// StructuredFacts bundles the structured provider results for prompt building.
// Any field may be nil when the corresponding provider failed or did not apply.
type StructuredFacts struct {
	Quote   *Quote
	Profile *Profile
	Ratios  *Ratios
}

// Empty reports whether no structured fact was collected.
func (f *StructuredFacts) Empty() bool {
	return f == nil || (f.Quote == nil && f.Profile == nil && f.Ratios == nil)
}
