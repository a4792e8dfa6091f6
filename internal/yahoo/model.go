package yahoo

import "time"

// Response represents the raw JSON response structure from the Yahoo Finance
// chart API. Dividend events appear under Events when the request asks for
// events=div.
type Response struct {
	Chart Chart `json:"chart"`
}

// Chart is the top-level chart payload.
type Chart struct {
	Result []Result `json:"result"`
	Error  *string  `json:"error"`
}

// Result holds one symbol's chart data.
type Result struct {
	Meta       Meta                `json:"meta"`
	Timestamp  []int64             `json:"timestamp"`
	Events     Events              `json:"events"`
	Indicators IndicatorsContainer `json:"indicators"`
}

// Meta holds symbol metadata from the chart response.
type Meta struct {
	Currency     string `json:"currency"`
	Symbol       string `json:"symbol"`
	ExchangeName string `json:"exchangeName"`
	Shortname    string `json:"shortName"`
}

// Events holds corporate action events keyed by their Unix timestamp.
type Events struct {
	Dividends map[string]DividendRecord `json:"dividends"`
}

// DividendRecord is one raw dividend entry from the chart response.
type DividendRecord struct {
	Amount float64 `json:"amount"`
	Date   int64   `json:"date"`
}

// IndicatorsContainer wraps the quote arrays.
type IndicatorsContainer struct {
	Quote []Quote `json:"quote"`
}

// Quote holds parallel OHLCV arrays, one entry per timestamp.
type Quote struct {
	Open   []float64 `json:"open"`
	Close  []float64 `json:"close"`
	Volume []int64   `json:"volume"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
}

// PriceChart is the parsed, application-facing form of a chart response:
// symbol metadata plus one Indicators entry per trading day.
type PriceChart struct {
	Currency     string       `json:"currency"`
	Symbol       string       `json:"symbol"`
	ExchangeName string       `json:"exchangeName"`
	Shortname    string       `json:"shortName"`
	Indicators   []Indicators `json:"indicators"`
}

// Indicators is one trading day's OHLCV data. Date is midnight UTC.
type Indicators struct {
	Date       time.Time
	PriceOpen  float64
	PriceClose float64
	Volume     int64
	PriceHigh  float64
	PriceLow   float64
}

// DividendEvent is one per-share dividend payment parsed from a chart
// response, keyed by its ex-dividend date (midnight UTC).
type DividendEvent struct {
	ExDate time.Time
	Amount float64
}
