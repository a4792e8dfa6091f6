package service

import (
	"time"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/apperrors"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
)

// SummaryService produces the read-side per-portfolio summary from the event
// log and the persisted caches. No derivation happens here.
type SummaryService struct {
	portfolioRepo *repository.PortfolioRepository
	valuesRepo    *repository.ValuesRepository
	priceRepo     *repository.PriceRepository
}

// NewSummaryService creates a new SummaryService with the provided dependencies.
func NewSummaryService(
	portfolioRepo *repository.PortfolioRepository,
	valuesRepo *repository.ValuesRepository,
	priceRepo *repository.PriceRepository,
) *SummaryService {
	return &SummaryService{
		portfolioRepo: portfolioRepo,
		valuesRepo:    valuesRepo,
		priceRepo:     priceRepo,
	}
}

// PortfolioSummary aggregates a portfolio's holdings with cash totals.
type PortfolioSummary struct {
	Name             string                 `json:"name"`
	Path             string                 `json:"path"`
	DividendReinvest bool                   `json:"dividendReinvest"`
	Holdings         []model.HoldingSummary `json:"holdings"`
	CashBalance      float64                `json:"cashBalance"`
}

// Summarize builds the summary for one portfolio file. Cost basis is net cash
// flow: purchases minus sales at their event prices, with no lot tracking.
// Latest value prefers the realtime snapshot over the last cached value row.
func (s *SummaryService) Summarize(path string) (PortfolioSummary, error) {
	if !s.portfolioRepo.Exists(path) {
		return PortfolioSummary{}, apperrors.ErrPortfolioNotFound
	}
	portfolio, err := s.portfolioRepo.Load(path)
	if err != nil {
		return PortfolioSummary{}, err
	}

	today := time.Now().UTC().Format("2006-01-02")
	summary := PortfolioSummary{
		Name:             portfolio.Name,
		Path:             path,
		DividendReinvest: portfolio.DividendReinvest,
		Holdings:         make([]model.HoldingSummary, 0, len(portfolio.Holdings)),
	}

	for i := range portfolio.Holdings {
		holding := &portfolio.Holdings[i]

		costBasis := 0.0
		for _, ev := range holding.Events {
			switch ev.Type {
			case model.EventPurchase:
				costBasis += ev.Shares * ev.Price
			case model.EventSale:
				costBasis -= ev.Shares * ev.Price
			}
		}

		hs := model.HoldingSummary{
			Symbol:    holding.Symbol,
			Shares:    OwnedSharesOnDate(holding, today),
			CostBasis: costBasis,
		}
		if quote, ok := s.priceRepo.ReadRealtime(holding.Symbol); ok && quote.Price > 0 {
			hs.LatestValue = hs.Shares * quote.Price
			hs.LatestDate = quote.AsOf.UTC().Format("2006-01-02")
		} else if rows := s.valuesRepo.Read(holding.Symbol); len(rows) > 0 {
			last := rows[len(rows)-1]
			hs.LatestValue = last.Value
			hs.LatestDate = last.Date
		}
		summary.Holdings = append(summary.Holdings, hs)
	}

	for _, ev := range portfolio.CashEvents {
		switch ev.Type {
		case model.EventCashDeposit, model.EventDividend:
			summary.CashBalance += ev.Amount
		case model.EventCashWithdrawal:
			summary.CashBalance -= ev.Amount
		}
	}

	return summary, nil
}
