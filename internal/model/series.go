package model

import "time"

// PricePoint is one day of closing-price data, date in ISO form.
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// DividendPoint is one per-share dividend payment keyed by ex-dividend date.
type DividendPoint struct {
	ExDate   string  `json:"exDate"`
	PerShare float64 `json:"perShare"`
}

// ValueRow is one row of a holding's derived daily valuation series:
// cumulative shares held on the date and their market value at that day's
// close. Rows are persisted per symbol as date,shares,value CSV.
type ValueRow struct {
	Date   string  `json:"date"`
	Shares float64 `json:"shares"`
	Value  float64 `json:"value"`
}

// RealtimeQuote is the best-effort latest-price snapshot cached per symbol.
// It is opportunistic data for display, not a live feed.
type RealtimeQuote struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	AsOf   time.Time `json:"asOf"`
}

// HoldingSummary is the read-side per-holding summary: current position,
// net-flow cost basis (cash spent on buys minus cash received from sales,
// no lot tracking) and latest cached value.
type HoldingSummary struct {
	Symbol      string  `json:"symbol"`
	Shares      float64 `json:"shares"`
	CostBasis   float64 `json:"costBasis"`
	LatestValue float64 `json:"latestValue"`
	LatestDate  string  `json:"latestDate,omitempty"`
}
