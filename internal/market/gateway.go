// Package market implements the market data gateway: a cache-first, retrying
// accessor for historical prices, dividend series and best-effort realtime
// quotes. Provider failures never escape as errors to valuation callers; they
// surface as empty results so the derivation pipeline can degrade to stale or
// missing data.
package market

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/apperrors"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/yahoo"
)

// prefetchYears is how far back PrefetchSymbol reaches; enough to cover most
// portfolios' full event history.
const prefetchYears = 10

// Gateway is the market data accessor. Reads go to the local per-symbol CSV
// caches first; network calls retry with exponential backoff.
type Gateway struct {
	client  yahoo.Client
	prices  *repository.PriceRepository
	backoff func() retry.Backoff
}

// NewGateway creates a gateway over the given client and price cache, with the
// default retry policy: 3 retries, exponential backoff from a 2s base.
func NewGateway(client yahoo.Client, prices *repository.PriceRepository) *Gateway {
	return &Gateway{
		client: client,
		prices: prices,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(2*time.Second))
		},
	}
}

// WithBackoff overrides the retry policy; tests inject a no-delay policy.
func (g *Gateway) WithBackoff(factory func() retry.Backoff) *Gateway {
	g.backoff = factory
	return g
}

// FetchPriceHistory returns the daily closing prices for [startISO, endISO].
// The locally cached series is consulted before any network call; with
// avoidNetwork the cache is the only source and a miss returns empty. A
// network fetch merges the fetched range into the cached series, extending a
// prefetch-filled long history instead of truncating it to the query range.
func (g *Gateway) FetchPriceHistory(ctx context.Context, symbol, startISO, endISO string, avoidNetwork bool) []model.PricePoint {
	symbol = strings.ToUpper(symbol)

	cached := g.prices.ReadPrices(symbol)
	if inRange := filterPrices(cached, startISO, endISO); len(inRange) > 0 {
		return inRange
	}
	if avoidNetwork {
		return nil
	}

	points, err := g.fetchPrices(ctx, symbol, startISO, endISO)
	if err != nil {
		log.Printf("market: price fetch failed for %s: %v", symbol, err)
		return nil
	}
	if len(points) > 0 {
		if err := g.prices.WritePrices(symbol, mergePrices(cached, points)); err != nil {
			log.Printf("market: failed to cache prices for %s: %v", symbol, err)
		}
	}
	return filterPrices(points, startISO, endISO)
}

// FetchDividends returns the per-share dividend series for [startISO, endISO],
// ordered by ex-dividend date. Provider failure falls back to the cached
// series; dividends posted from a stale cache are still idempotence-checked
// downstream.
func (g *Gateway) FetchDividends(ctx context.Context, symbol, startISO, endISO string) []model.DividendPoint {
	symbol = strings.ToUpper(symbol)

	points, err := g.fetchDividendPoints(ctx, symbol, startISO, endISO)
	if err != nil {
		log.Printf("market: dividend fetch failed for %s, using cache: %v", symbol, err)
		return filterDividends(g.prices.ReadDividends(symbol), startISO, endISO)
	}
	return filterDividends(points, startISO, endISO)
}

// fetchDividendPoints performs the retried network fetch and parse of the full
// dividend series for a range.
func (g *Gateway) fetchDividendPoints(ctx context.Context, symbol, startISO, endISO string) ([]model.DividendPoint, error) {
	start, end, err := rangeBounds(startISO, endISO)
	if err != nil {
		return nil, err
	}

	var resp yahoo.Response
	err = retry.Do(ctx, g.backoff(), func(ctx context.Context) error {
		var qerr error
		resp, qerr = g.client.QueryDividends(ctx, symbol, start, end)
		if qerr != nil {
			return retry.RetryableError(qerr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %v", apperrors.ErrFailedToRetrieveDividends, symbol, err)
	}

	events, err := yahoo.ParseDividends(resp)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %v", apperrors.ErrFailedToRetrieveDividends, symbol, err)
	}
	points := make([]model.DividendPoint, 0, len(events))
	for _, ev := range events {
		points = append(points, model.DividendPoint{
			ExDate:   ev.ExDate.Format("2006-01-02"),
			PerShare: ev.Amount,
		})
	}
	return points, nil
}

// PrefetchSymbol downloads and caches a symbol's full price and dividend
// history. Errors are returned so callers can report them per symbol; the
// caches keep whatever succeeded.
func (g *Gateway) PrefetchSymbol(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(symbol)
	end := time.Now().UTC()
	start := end.AddDate(-prefetchYears, 0, 0)

	points, err := g.fetchPrices(ctx, symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("prefetch %s: %w", symbol, err)
	}
	if len(points) > 0 {
		if err := g.prices.WritePrices(symbol, points); err != nil {
			return fmt.Errorf("prefetch %s: %w", symbol, err)
		}
	}

	dividends, err := g.fetchDividendPoints(ctx, symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("prefetch %s: %w", symbol, err)
	}
	if len(dividends) > 0 {
		if err := g.prices.WriteDividends(symbol, dividends); err != nil {
			return fmt.Errorf("prefetch %s: %w", symbol, err)
		}
	}
	return nil
}

// UpdateRealtime refreshes the symbol's latest-price snapshot. Returns true
// when the snapshot changed. This is opportunistic display data, not a feed.
func (g *Gateway) UpdateRealtime(ctx context.Context, symbol string) (bool, error) {
	symbol = strings.ToUpper(symbol)

	var resp yahoo.Response
	err := retry.Do(ctx, g.backoff(), func(ctx context.Context) error {
		var qerr error
		resp, qerr = g.client.QueryLatest(ctx, symbol)
		if qerr != nil {
			return retry.RetryableError(qerr)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("realtime %s: %w", symbol, err)
	}

	chart, err := yahoo.ParseChart(resp)
	if err != nil {
		return false, fmt.Errorf("realtime %s: %w", symbol, err)
	}
	latest := 0.0
	for i := len(chart.Indicators) - 1; i >= 0; i-- {
		if c := chart.Indicators[i].PriceClose; !math.IsNaN(c) && c > 0 {
			latest = c
			break
		}
	}
	if latest <= 0 {
		return false, fmt.Errorf("realtime %s: no usable close price", symbol)
	}

	if existing, ok := g.prices.ReadRealtime(symbol); ok && existing.Price == latest {
		return false, nil
	}
	quote := model.RealtimeQuote{Symbol: symbol, Price: latest, AsOf: time.Now().UTC()}
	if err := g.prices.WriteRealtime(quote); err != nil {
		return false, fmt.Errorf("realtime %s: %w", symbol, err)
	}
	return true, nil
}

// FirstCloseOnOrAfter finds the first available closing price on or after the
// given date, scanning forward up to 5 calendar days. Used to price DRIP
// purchases whose ex-dates fall on non-trading days.
func (g *Gateway) FirstCloseOnOrAfter(ctx context.Context, symbol, dateISO string) (float64, bool) {
	start, err := model.ParseISODate(dateISO)
	if err != nil {
		return 0, false
	}
	endISO := start.AddDate(0, 0, 5).Format("2006-01-02")
	for _, p := range g.FetchPriceHistory(ctx, symbol, dateISO, endISO, false) {
		if !math.IsNaN(p.Close) && p.Close > 0 {
			return p.Close, true
		}
	}
	return 0, false
}

// fetchPrices performs the retried network fetch and chart parse for a range.
func (g *Gateway) fetchPrices(ctx context.Context, symbol, startISO, endISO string) ([]model.PricePoint, error) {
	start, end, err := rangeBounds(startISO, endISO)
	if err != nil {
		return nil, err
	}

	var resp yahoo.Response
	err = retry.Do(ctx, g.backoff(), func(ctx context.Context) error {
		var qerr error
		resp, qerr = g.client.QueryRange(ctx, symbol, start, end)
		if qerr != nil {
			return retry.RetryableError(qerr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %v", apperrors.ErrFailedToRetrievePrices, symbol, err)
	}

	chart, err := yahoo.ParseChart(resp)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %v", apperrors.ErrFailedToRetrievePrices, symbol, err)
	}
	points := make([]model.PricePoint, 0, len(chart.Indicators))
	for _, ind := range chart.Indicators {
		if math.IsNaN(ind.PriceClose) || ind.PriceClose <= 0 {
			continue
		}
		points = append(points, model.PricePoint{
			Date:  ind.Date.Format("2006-01-02"),
			Close: ind.PriceClose,
		})
	}
	return points, nil
}

// rangeBounds converts an ISO date range to half-open UTC bounds, extending
// the end by one day so the end date itself is included.
func rangeBounds(startISO, endISO string) (time.Time, time.Time, error) {
	start, err := model.ParseISODate(startISO)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := model.ParseISODate(endISO)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s after %s", apperrors.ErrInvalidDateRange, startISO, endISO)
	}
	return start, end.AddDate(0, 0, 1), nil
}

// mergePrices unions a cached series with freshly fetched points, the fetched
// close winning on a shared date, sorted by date.
func mergePrices(cached, fetched []model.PricePoint) []model.PricePoint {
	byDate := make(map[string]model.PricePoint, len(cached)+len(fetched))
	for _, p := range cached {
		byDate[p.Date] = p
	}
	for _, p := range fetched {
		byDate[p.Date] = p
	}
	merged := make([]model.PricePoint, 0, len(byDate))
	for _, p := range byDate {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })
	return merged
}

func filterPrices(points []model.PricePoint, startISO, endISO string) []model.PricePoint {
	var out []model.PricePoint
	for _, p := range points {
		if p.Date >= startISO && p.Date <= endISO {
			out = append(out, p)
		}
	}
	return out
}

func filterDividends(points []model.DividendPoint, startISO, endISO string) []model.DividendPoint {
	var out []model.DividendPoint
	for _, p := range points {
		if p.ExDate >= startISO && p.ExDate <= endISO {
			out = append(out, p)
		}
	}
	return out
}
