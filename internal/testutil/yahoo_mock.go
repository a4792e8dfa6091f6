package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/yahoo"
)

// MockYahooClient is a mock implementation of yahoo.Client for testing.
// It returns predefined test data instead of making actual API calls.
type MockYahooClient struct {
	// MockResponse is the response to return from query methods
	MockResponse yahoo.Response
	// MockError is the error to return from query methods
	MockError error
	// QueryCount tracks how many times a query method was called
	QueryCount int

	// failuresRemaining makes the next N queries fail before succeeding,
	// for exercising retry behaviour. Set through WithFailures.
	failuresRemaining int
	transient         bool
}

// NewMockYahooClient creates a new mock Yahoo client with no data configured.
// Use WithPrices and WithDividends to load test data.
func NewMockYahooClient() *MockYahooClient {
	return &MockYahooClient{
		MockResponse: EmptyChartResponse(),
	}
}

// QueryRange mocks the date range query with the configured response.
func (m *MockYahooClient) QueryRange(_ context.Context, _ string, _, _ time.Time) (yahoo.Response, error) {
	return m.respond()
}

// QueryLatest mocks the 5-day latest price query with the configured response.
func (m *MockYahooClient) QueryLatest(_ context.Context, _ string) (yahoo.Response, error) {
	return m.respond()
}

// QueryDividends mocks the dividend query with the configured response.
func (m *MockYahooClient) QueryDividends(_ context.Context, _ string, _, _ time.Time) (yahoo.Response, error) {
	return m.respond()
}

func (m *MockYahooClient) respond() (yahoo.Response, error) {
	m.QueryCount++
	if m.failuresRemaining > 0 {
		m.failuresRemaining--
		return yahoo.Response{}, m.MockError
	}
	if m.MockError != nil && !m.transient {
		return yahoo.Response{}, m.MockError
	}
	return m.MockResponse, nil
}

// WithError configures the mock to return the specified error on every query.
func (m *MockYahooClient) WithError(err error) *MockYahooClient {
	m.MockError = err
	m.transient = false
	return m
}

// WithFailures configures the mock to fail the next n queries with err, then
// succeed with the configured response.
func (m *MockYahooClient) WithFailures(n int, err error) *MockYahooClient {
	m.failuresRemaining = n
	m.MockError = err
	m.transient = true
	return m
}

// WithPrices loads a daily close series into the mock response. Keys are ISO
// dates, values are closing prices.
func (m *MockYahooClient) WithPrices(closes map[string]float64) *MockYahooClient {
	result := m.ensureResult()

	dates := make([]string, 0, len(closes))
	for d := range closes {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	quote := yahoo.Quote{}
	result.Timestamp = nil
	for _, d := range dates {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		price := closes[d]
		result.Timestamp = append(result.Timestamp, day.Unix())
		quote.Open = append(quote.Open, price)
		quote.Close = append(quote.Close, price)
		quote.High = append(quote.High, price)
		quote.Low = append(quote.Low, price)
		quote.Volume = append(quote.Volume, 1000000)
	}
	result.Indicators.Quote = []yahoo.Quote{quote}
	return m
}

// WithDividends loads dividend events into the mock response. Keys are ISO
// ex-dividend dates, values are per-share amounts.
func (m *MockYahooClient) WithDividends(dividends map[string]float64) *MockYahooClient {
	result := m.ensureResult()

	result.Events.Dividends = make(map[string]yahoo.DividendRecord, len(dividends))
	for d, amount := range dividends {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		result.Events.Dividends[d] = yahoo.DividendRecord{
			Amount: amount,
			Date:   day.Unix(),
		}
	}
	return m
}

// ensureResult guarantees the response carries one result entry and returns it.
func (m *MockYahooClient) ensureResult() *yahoo.Result {
	if len(m.MockResponse.Chart.Result) == 0 {
		m.MockResponse = EmptyChartResponse()
	}
	return &m.MockResponse.Chart.Result[0]
}

// EmptyChartResponse creates a response with one result entry and no price or
// dividend data.
func EmptyChartResponse() yahoo.Response {
	return yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{
				{
					Meta: yahoo.Meta{
						Symbol:       "TEST",
						Currency:     "USD",
						ExchangeName: "NMS",
						Shortname:    "TEST",
					},
				},
			},
		},
	}
}
