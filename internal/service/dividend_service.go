package service

import (
	"context"
	"time"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/market"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
)

// DividendService is the dividend ingestion engine. It walks each holding's
// ex-dividend dates, posts cash dividend events or DRIP purchases, and keeps
// the whole operation idempotent via event provenance markers.
type DividendService struct {
	portfolioRepo *repository.PortfolioRepository
	seenRepo      *repository.DividendSeenRepository
	gateway       *market.Gateway
	now           func() time.Time
}

// NewDividendService creates a new DividendService with the provided dependencies.
func NewDividendService(
	portfolioRepo *repository.PortfolioRepository,
	seenRepo *repository.DividendSeenRepository,
	gateway *market.Gateway,
) *DividendService {
	return &DividendService{
		portfolioRepo: portfolioRepo,
		seenRepo:      seenRepo,
		gateway:       gateway,
		now:           time.Now,
	}
}

// WithClock overrides the service clock; tests pin "today".
func (s *DividendService) WithClock(now func() time.Time) *DividendService {
	s.now = now
	return s
}

// OwnedSharesOnDate replays the holding's events in chronological order up to
// and including the target date and returns the share count, clamped to zero.
// This uses the same signed-delta semantics as the value-cache engine but at
// event granularity: ex-dividend dates need not be trading days with cached
// prices.
func OwnedSharesOnDate(holding *model.Holding, targetISO string) float64 {
	target := model.NormalizeDate(targetISO)
	shares := 0.0
	for _, ev := range holding.SortedEvents() {
		if ev.Date == "" {
			continue
		}
		evISO := model.NormalizeDate(ev.Date)
		if _, err := model.ParseISODate(evISO); err != nil {
			break // unparsable dates sort last; nothing later can qualify
		}
		if evISO > target {
			break
		}
		shares += ev.ShareDelta()
	}
	if shares < 0 {
		return 0
	}
	return shares
}

// IngestPortfolio fetches each holding's dividend series for the range and
// posts the missing events. Calling it twice with the same inputs and no new
// upstream dividends adds zero events the second time.
//
// When a first pass adds events it runs one more pass over the same range:
// a DRIP purchase created mid-range must be visible when a later ex-date's
// owned shares are computed. The per-symbol seen-date cache only short-circuits
// symbols whose fetched series contains nothing new; it is merged back after a
// real pass and never trusted for correctness.
func (s *DividendService) IngestPortfolio(ctx context.Context, portfolio *model.Portfolio, startISO, endISO string, reinvest *bool) int {
	doReinvest := portfolio.DividendReinvest
	if reinvest != nil {
		doReinvest = *reinvest
	}
	startISO, endISO = s.defaultRange(portfolio, startISO, endISO)

	added := 0
	for i := range portfolio.Holdings {
		holding := &portfolio.Holdings[i]

		series := s.gateway.FetchDividends(ctx, holding.Symbol, startISO, endISO)
		if len(series) == 0 {
			continue
		}

		seen := s.seenRepo.Read(holding.Symbol)
		hasNew := false
		for _, point := range series {
			if _, ok := seen[point.ExDate]; !ok {
				hasNew = true
				break
			}
		}
		if !hasNew {
			continue
		}

		n := s.ingestHolding(ctx, portfolio, holding, series, doReinvest)
		if n > 0 {
			// Second pass: earlier DRIP shares compound into later ex-dates.
			n += s.ingestHolding(ctx, portfolio, holding, series, doReinvest)
		}
		added += n

		merged := make(map[string]float64, len(series))
		for _, point := range series {
			merged[point.ExDate] = point.PerShare
		}
		if err := s.seenRepo.Merge(holding.Symbol, merged); err != nil {
			// Cache write failure only costs a redundant pass next cycle.
			continue
		}
	}
	return added
}

// IngestFile loads a portfolio file, ingests dividends over its full event
// range, and saves the file back when anything was added.
func (s *DividendService) IngestFile(ctx context.Context, path string) (int, error) {
	portfolio, err := s.portfolioRepo.Load(path)
	if err != nil {
		return 0, err
	}
	added := s.IngestPortfolio(ctx, portfolio, "", "", nil)
	if added > 0 {
		if err := s.portfolioRepo.Save(portfolio, path); err != nil {
			return added, err
		}
	}
	return added, nil
}

// ingestHolding runs one ingestion pass for one holding over an already
// fetched series, returning the number of events created.
func (s *DividendService) ingestHolding(ctx context.Context, portfolio *model.Portfolio, holding *model.Holding, series []model.DividendPoint, reinvest bool) int {
	added := 0
	for _, point := range series {
		exISO := model.NormalizeDate(point.ExDate)

		owned := OwnedSharesOnDate(holding, exISO)
		if owned <= 0 {
			continue
		}
		cash := point.PerShare * owned
		if cash == 0 {
			continue
		}

		if reinvest {
			if hasDripPurchase(holding, exISO) {
				continue
			}
			price, ok := s.gateway.FirstCloseOnOrAfter(ctx, holding.Symbol, exISO)
			if !ok || price <= 0 {
				continue
			}
			holding.Events = append(holding.Events, model.Event{
				Date:       exISO,
				Type:       model.EventPurchase,
				Shares:     cash / price,
				Price:      price,
				Provenance: model.DividendReinvest(holding.Symbol),
			})
			added++
			continue
		}

		if hasCashDividend(portfolio, holding.Symbol, exISO) {
			continue
		}
		portfolio.CashEvents = append(portfolio.CashEvents, model.Event{
			Date:       exISO,
			Type:       model.EventDividend,
			Amount:     cash,
			Provenance: model.DividendCash(holding.Symbol),
		})
		added++
	}
	return added
}

// defaultRange fills missing range bounds from the portfolio's earliest event
// date and today.
func (s *DividendService) defaultRange(portfolio *model.Portfolio, startISO, endISO string) (string, string) {
	today := s.now().UTC().Format("2006-01-02")
	if endISO == "" {
		endISO = today
	}
	if startISO != "" {
		return model.NormalizeDate(startISO), model.NormalizeDate(endISO)
	}
	earliest := ""
	for _, h := range portfolio.Holdings {
		if d := h.EarliestEventDate(); d != "" && (earliest == "" || d < earliest) {
			earliest = d
		}
	}
	if earliest == "" {
		earliest = today
	}
	return earliest, model.NormalizeDate(endISO)
}

func hasCashDividend(portfolio *model.Portfolio, symbol, exISO string) bool {
	want := model.DividendCash(symbol)
	for _, ev := range portfolio.CashEvents {
		if ev.Type == model.EventDividend && ev.Provenance == want && model.NormalizeDate(ev.Date) == exISO {
			return true
		}
	}
	return false
}

func hasDripPurchase(holding *model.Holding, exISO string) bool {
	want := model.DividendReinvest(holding.Symbol)
	for _, ev := range holding.Events {
		if ev.Type == model.EventPurchase && ev.Provenance == want && model.NormalizeDate(ev.Date) == exISO {
			return true
		}
	}
	return false
}
