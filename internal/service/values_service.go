package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/apperrors"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/market"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
)

// ValuesService is the value-cache engine. It turns a holding's event log plus
// a daily price series into a persisted (date, shares, value) series, and
// decides per symbol whether a recompute is needed at all.
type ValuesService struct {
	portfolioRepo *repository.PortfolioRepository
	valuesRepo    *repository.ValuesRepository
	gateway       *market.Gateway
	dirty         repository.DirtyStore
	now           func() time.Time
}

// NewValuesService creates a new ValuesService with the provided dependencies.
func NewValuesService(
	portfolioRepo *repository.PortfolioRepository,
	valuesRepo *repository.ValuesRepository,
	gateway *market.Gateway,
	dirty repository.DirtyStore,
) *ValuesService {
	return &ValuesService{
		portfolioRepo: portfolioRepo,
		valuesRepo:    valuesRepo,
		gateway:       gateway,
		dirty:         dirty,
		now:           time.Now,
	}
}

// WithClock overrides the service clock; tests pin "today".
func (s *ValuesService) WithClock(now func() time.Time) *ValuesService {
	s.now = now
	return s
}

// MarkDirty flags a symbol for recomputation on the next warm pass.
func (s *ValuesService) MarkDirty(symbol string) error {
	return s.dirty.Mark(symbol)
}

// Read returns the persisted value series for a symbol. A symbol held in some
// portfolio but not yet warmed reads as ErrValuesCacheNotFound; a symbol held
// nowhere as ErrHoldingNotFound.
func (s *ValuesService) Read(symbol string) ([]model.ValueRow, error) {
	symbol = strings.ToUpper(symbol)
	if s.valuesRepo.Exists(symbol) {
		return s.valuesRepo.Read(symbol), nil
	}
	for _, path := range s.portfolioRepo.List() {
		portfolio, err := s.portfolioRepo.Load(path)
		if err != nil {
			continue
		}
		if portfolio.GetHolding(symbol) != nil {
			return nil, fmt.Errorf("%s: %w", symbol, apperrors.ErrValuesCacheNotFound)
		}
	}
	return nil, fmt.Errorf("%s: %w", symbol, apperrors.ErrHoldingNotFound)
}

// Compute derives and persists the holding's full value series from startISO
// through today. Returns false without error when no price data is available:
// an expected outcome for untradeable or freshly listed symbols, recorded by
// persisting an empty series so the attempt is visible to staleness checks.
// avoidNetwork keeps the price read off the provider only while the cache has
// usable history; with nothing cached the provider is consulted regardless.
//
// The shares series is the cumulative sum of signed per-event deltas, each
// forward-aligned to the first trading day on or after the event's normalized
// date, so events on non-trading days are attributed to the next session
// instead of being dropped. Value is shares times that day's close.
func (s *ValuesService) Compute(ctx context.Context, holding *model.Holding, startISO string, avoidNetwork bool) (bool, error) {
	endISO := s.now().UTC().Format("2006-01-02")

	prices := s.gateway.FetchPriceHistory(ctx, holding.Symbol, model.NormalizeDate(startISO), endISO, avoidNetwork)
	if len(prices) == 0 && avoidNetwork {
		// An empty cache-preferring read still consults the provider:
		// persisting an empty series here would pass every later staleness
		// check and pin the symbol to an empty valuation.
		prices = s.gateway.FetchPriceHistory(ctx, holding.Symbol, model.NormalizeDate(startISO), endISO, false)
	}
	if len(prices) == 0 {
		return false, s.valuesRepo.Write(holding.Symbol, nil)
	}

	dates := make([]string, len(prices))
	for i, p := range prices {
		dates[i] = p.Date
	}
	deltas := make([]float64, len(prices))

	for _, ev := range holding.SortedEvents() {
		if ev.Date == "" {
			continue
		}
		evISO := model.NormalizeDate(ev.Date)
		if _, err := model.ParseISODate(evISO); err != nil {
			continue
		}
		idx := sort.SearchStrings(dates, evISO)
		if idx >= len(dates) {
			// Event after the last trading day in the series.
			continue
		}
		deltas[idx] += ev.ShareDelta()
	}

	rows := make([]model.ValueRow, len(prices))
	shares := 0.0
	for i, p := range prices {
		shares += deltas[i]
		rows[i] = model.ValueRow{
			Date:   p.Date,
			Shares: shares,
			Value:  shares * p.Close,
		}
	}

	if err := s.valuesRepo.Write(holding.Symbol, rows); err != nil {
		return false, err
	}
	return true, nil
}

// Warm recomputes the value cache for every holding of the portfolio file that
// is stale: cache missing, cache older than the portfolio file, or symbol in
// the dirty set. Holdings without events are skipped (no meaningful start
// date). Returns the number of holdings recomputed.
//
// The dirty flag is cleared once the recompute persisted, including the
// empty-series case; leaving dead symbols dirty would force a network attempt
// on every maintenance tick.
func (s *ValuesService) Warm(ctx context.Context, portfolioPath string, preferCache bool) (int, error) {
	portfolio, err := s.portfolioRepo.Load(portfolioPath)
	if err != nil {
		return 0, err
	}

	portMtime := s.portfolioRepo.ModTime(portfolioPath)
	dirty := s.dirty.Read()

	updated := 0
	for i := range portfolio.Holdings {
		holding := &portfolio.Holdings[i]
		symbol := holding.Symbol

		stale := !s.valuesRepo.Exists(symbol) ||
			s.valuesRepo.ModTime(symbol).Before(portMtime) ||
			dirty[symbol]
		if !stale {
			continue
		}

		startISO := holding.EarliestEventDate()
		if startISO == "" {
			continue
		}

		ok, err := s.Compute(ctx, holding, startISO, preferCache)
		if err != nil {
			return updated, err
		}
		if ok {
			updated++
		}
		if err := s.dirty.Clear(symbol); err != nil {
			return updated, err
		}
	}
	return updated, nil
}
