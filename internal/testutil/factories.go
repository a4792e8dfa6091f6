package testutil

import (
	"testing"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
)

// PortfolioBuilder provides a fluent interface for creating test portfolios.
//
// Example usage:
//
//	// Simple creation with defaults
//	portfolio := testutil.NewTestPortfolio().Build()
//
//	// Customized portfolio
//	portfolio := testutil.NewTestPortfolio().
//	    WithName("Retirement").
//	    CashReinvest(false).
//	    WithHolding("AAPL", testutil.Purchase("2024-01-02", 10, 100)).
//	    Build()
type PortfolioBuilder struct {
	Name             string
	DividendReinvest bool
	Holdings         []model.Holding
	CashEvents       []model.Event
}

// NewTestPortfolio creates a PortfolioBuilder with sensible defaults.
func NewTestPortfolio() *PortfolioBuilder {
	return &PortfolioBuilder{
		Name:             "Test Portfolio",
		DividendReinvest: true,
	}
}

// WithName sets a custom name.
func (b *PortfolioBuilder) WithName(name string) *PortfolioBuilder {
	b.Name = name
	return b
}

// CashReinvest sets the dividend reinvestment flag.
func (b *PortfolioBuilder) CashReinvest(reinvest bool) *PortfolioBuilder {
	b.DividendReinvest = reinvest
	return b
}

// WithHolding adds a holding with the given events.
func (b *PortfolioBuilder) WithHolding(symbol string, events ...model.Event) *PortfolioBuilder {
	b.Holdings = append(b.Holdings, model.Holding{Symbol: symbol, Events: events})
	return b
}

// WithCashEvent adds a portfolio-level cash event.
func (b *PortfolioBuilder) WithCashEvent(event model.Event) *PortfolioBuilder {
	b.CashEvents = append(b.CashEvents, event)
	return b
}

// Build assembles the portfolio value.
func (b *PortfolioBuilder) Build() *model.Portfolio {
	return &model.Portfolio{
		Name:             b.Name,
		DividendReinvest: b.DividendReinvest,
		Holdings:         b.Holdings,
		CashEvents:       b.CashEvents,
	}
}

// Save assembles the portfolio and persists it through the repository,
// returning the portfolio and the path it was written to.
func (b *PortfolioBuilder) Save(t *testing.T, repo *repository.PortfolioRepository, layout repository.Layout) (*model.Portfolio, string) {
	t.Helper()

	portfolio := b.Build()
	path := layout.DefaultPortfolioPath()
	if err := repo.Save(portfolio, path); err != nil {
		t.Fatalf("Failed to save test portfolio: %v", err)
	}
	return portfolio, path
}

// Purchase creates a purchase event.
func Purchase(date string, shares, price float64) model.Event {
	return model.Event{Date: date, Type: model.EventPurchase, Shares: shares, Price: price}
}

// Sale creates a sale event.
func Sale(date string, shares, price float64) model.Event {
	return model.Event{Date: date, Type: model.EventSale, Shares: shares, Price: price}
}

// CashDeposit creates a portfolio-level cash deposit event.
func CashDeposit(date string, amount float64) model.Event {
	return model.Event{Date: date, Type: model.EventCashDeposit, Amount: amount}
}
