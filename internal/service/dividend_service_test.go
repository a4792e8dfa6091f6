package service_test

import (
	"context"
	"math"
	"testing"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/market"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/service"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/testutil"
)

type dividendFixture struct {
	layout        repository.Layout
	portfolioRepo *repository.PortfolioRepository
	seenRepo      *repository.DividendSeenRepository
	svc           *service.DividendService
}

func newDividendFixture(t *testing.T, client *testutil.MockYahooClient) *dividendFixture {
	t.Helper()
	layout := testutil.SetupLayout(t)
	portfolioRepo := repository.NewPortfolioRepository(layout)
	seenRepo := repository.NewDividendSeenRepository(layout)
	priceRepo := repository.NewPriceRepository(layout)
	gateway := market.NewGateway(client, priceRepo).WithBackoff(fastBackoff)
	svc := service.NewDividendService(portfolioRepo, seenRepo, gateway)
	return &dividendFixture{
		layout:        layout,
		portfolioRepo: portfolioRepo,
		seenRepo:      seenRepo,
		svc:           svc,
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestOwnedSharesOnDate tests share-count replay at event granularity.
//
// WHY: Dividend cash is per-share; owning the wrong share count on an ex-date
// pays the wrong dividend. The replay must include same-day events, clamp
// negatives and stop at the first unparsable date.
func TestOwnedSharesOnDate(t *testing.T) {
	holding := &model.Holding{Symbol: "AAPL", Events: []model.Event{
		testutil.Purchase("2024-01-02", 10, 100),
		testutil.Sale("2024-06-03", 4, 160),
	}}

	tests := []struct {
		name     string
		target   string
		expected float64
	}{
		{"before first purchase", "2023-12-31", 0},
		{"on purchase date", "2024-01-02", 10},
		{"between events", "2024-03-15", 10},
		{"on sale date", "2024-06-03", 6},
		{"after all events", "2024-12-31", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := service.OwnedSharesOnDate(holding, tt.target); got != tt.expected {
				t.Errorf("OwnedSharesOnDate(%q) = %v, want %v", tt.target, got, tt.expected)
			}
		})
	}

	t.Run("oversold position clamps to zero", func(t *testing.T) {
		oversold := &model.Holding{Symbol: "X", Events: []model.Event{
			testutil.Purchase("2024-01-02", 5, 10),
			testutil.Sale("2024-02-01", 8, 10),
		}}
		if got := service.OwnedSharesOnDate(oversold, "2024-06-01"); got != 0 {
			t.Errorf("Expected clamp to zero, got %v", got)
		}
	})
}

// TestDividendService_CashDividends tests non-reinvesting ingestion.
//
// WHY: With reinvestment off, each ex-date posts one portfolio-level cash
// event of per-share amount times owned shares, tagged with provenance so a
// later run recognizes it.
func TestDividendService_CashDividends(t *testing.T) {
	client := testutil.NewMockYahooClient().
		WithDividends(map[string]float64{"2024-03-15": 0.25})
	f := newDividendFixture(t, client)

	portfolio := testutil.NewTestPortfolio().
		CashReinvest(false).
		WithHolding("AAPL", testutil.Purchase("2024-01-02", 20, 100)).
		Build()

	added := f.svc.IngestPortfolio(context.Background(), portfolio, "", "", nil)
	if added != 1 {
		t.Fatalf("Expected 1 event added, got %d", added)
	}

	if len(portfolio.CashEvents) != 1 {
		t.Fatalf("Expected 1 cash event, got %d", len(portfolio.CashEvents))
	}
	cash := portfolio.CashEvents[0]
	if cash.Type != model.EventDividend {
		t.Errorf("Expected dividend event, got %s", cash.Type)
	}
	if !approx(cash.Amount, 5.00) {
		t.Errorf("Expected amount 5.00 for 20 shares at 0.25, got %v", cash.Amount)
	}
	if cash.Provenance != model.DividendCash("AAPL") {
		t.Errorf("Expected cash dividend provenance, got %+v", cash.Provenance)
	}
	if cash.Date != "2024-03-15" {
		t.Errorf("Expected ex-date 2024-03-15, got %q", cash.Date)
	}

	t.Run("second run adds nothing", func(t *testing.T) {
		if again := f.svc.IngestPortfolio(context.Background(), portfolio, "", "", nil); again != 0 {
			t.Errorf("Expected idempotent second run, got %d added", again)
		}
		if len(portfolio.CashEvents) != 1 {
			t.Errorf("Expected still 1 cash event, got %d", len(portfolio.CashEvents))
		}
	})

	t.Run("existing marker blocks re-posting without the seen cache", func(t *testing.T) {
		// Fresh fixture, same portfolio state: idempotence must come from
		// the event provenance, not from the seen-date cache.
		f2 := newDividendFixture(t, testutil.NewMockYahooClient().
			WithDividends(map[string]float64{"2024-03-15": 0.25}))

		if again := f2.svc.IngestPortfolio(context.Background(), portfolio, "", "", nil); again != 0 {
			t.Errorf("Expected marker to block duplicate, got %d added", again)
		}
	})
}

// TestDividendService_Reinvestment tests DRIP ingestion.
//
// WHY: With reinvestment on, dividends become fractional purchases priced at
// the first close on or after the ex-date, and shares bought by an earlier
// ex-date must compound into a later one.
func TestDividendService_Reinvestment(t *testing.T) {
	client := testutil.NewMockYahooClient().
		WithPrices(map[string]float64{
			"2024-03-15": 100,
			"2024-06-14": 100,
		}).
		WithDividends(map[string]float64{
			"2024-03-15": 1.0,
			"2024-06-14": 1.0,
		})
	f := newDividendFixture(t, client)

	portfolio := testutil.NewTestPortfolio().
		WithHolding("AAPL", testutil.Purchase("2024-01-02", 10, 100)).
		Build()

	added := f.svc.IngestPortfolio(context.Background(), portfolio, "", "", nil)
	if added != 2 {
		t.Fatalf("Expected 2 DRIP purchases, got %d", added)
	}

	holding := portfolio.GetHolding("AAPL")
	if len(holding.Events) != 3 {
		t.Fatalf("Expected original purchase plus 2 DRIPs, got %d events", len(holding.Events))
	}

	first, second := holding.Events[1], holding.Events[2]
	if first.Provenance != model.DividendReinvest("AAPL") || second.Provenance != model.DividendReinvest("AAPL") {
		t.Error("Expected DRIP provenance on both purchases")
	}
	if !approx(first.Shares, 0.1) {
		t.Errorf("Expected first DRIP of 0.1 shares (10 shares x 1.0 at 100), got %v", first.Shares)
	}
	// 10.1 shares on the second ex-date after the first DRIP compounded.
	if !approx(second.Shares, 0.101) {
		t.Errorf("Expected second DRIP of 0.101 shares, got %v", second.Shares)
	}

	t.Run("second run adds nothing", func(t *testing.T) {
		if again := f.svc.IngestPortfolio(context.Background(), portfolio, "", "", nil); again != 0 {
			t.Errorf("Expected idempotent second run, got %d added", again)
		}
	})
}

// TestDividendService_Skips tests the cases where no event is posted.
//
// WHY: Ex-dates with no position must not pay, and the explicit reinvest
// override must win over the portfolio flag.
func TestDividendService_Skips(t *testing.T) {
	t.Run("no shares owned on the ex-date", func(t *testing.T) {
		client := testutil.NewMockYahooClient().
			WithDividends(map[string]float64{"2024-03-15": 0.25})
		f := newDividendFixture(t, client)

		portfolio := testutil.NewTestPortfolio().
			CashReinvest(false).
			WithHolding("AAPL", testutil.Purchase("2024-06-03", 10, 160)).
			Build()

		if added := f.svc.IngestPortfolio(context.Background(), portfolio, "2024-01-01", "2024-12-31", nil); added != 0 {
			t.Errorf("Expected no events for pre-purchase ex-date, got %d", added)
		}
	})

	t.Run("reinvest override wins over the portfolio flag", func(t *testing.T) {
		client := testutil.NewMockYahooClient().
			WithDividends(map[string]float64{"2024-03-15": 0.25})
		f := newDividendFixture(t, client)

		portfolio := testutil.NewTestPortfolio().
			WithHolding("AAPL", testutil.Purchase("2024-01-02", 20, 100)).
			Build()

		noReinvest := false
		added := f.svc.IngestPortfolio(context.Background(), portfolio, "", "", &noReinvest)
		if added != 1 {
			t.Fatalf("Expected 1 cash event, got %d", added)
		}
		if len(portfolio.CashEvents) != 1 {
			t.Errorf("Expected override to post cash, got %d cash events", len(portfolio.CashEvents))
		}
		if len(portfolio.GetHolding("AAPL").Events) != 1 {
			t.Error("Expected no DRIP purchase with override off")
		}
	})

	t.Run("DRIP without a usable price is skipped", func(t *testing.T) {
		client := testutil.NewMockYahooClient().
			WithDividends(map[string]float64{"2024-03-15": 0.25})
		f := newDividendFixture(t, client)

		portfolio := testutil.NewTestPortfolio().
			WithHolding("AAPL", testutil.Purchase("2024-01-02", 20, 100)).
			Build()

		if added := f.svc.IngestPortfolio(context.Background(), portfolio, "", "", nil); added != 0 {
			t.Errorf("Expected no DRIP without price data, got %d", added)
		}
	})
}

// TestDividendService_IngestFile tests the load-ingest-save cycle.
//
// WHY: The worker operates on files, not in-memory portfolios; additions must
// survive the save so the next load sees them.
func TestDividendService_IngestFile(t *testing.T) {
	client := testutil.NewMockYahooClient().
		WithPrices(map[string]float64{"2024-03-15": 100}).
		WithDividends(map[string]float64{"2024-03-15": 1.0})
	f := newDividendFixture(t, client)

	_, path := testutil.NewTestPortfolio().
		WithHolding("AAPL", testutil.Purchase("2024-01-02", 10, 100)).
		Save(t, f.portfolioRepo, f.layout)

	added, err := f.svc.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestFile() returned unexpected error: %v", err)
	}
	if added != 1 {
		t.Fatalf("Expected 1 DRIP added, got %d", added)
	}

	reloaded, err := f.portfolioRepo.Load(path)
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	events := reloaded.GetHolding("AAPL").Events
	if len(events) != 2 {
		t.Fatalf("Expected persisted DRIP purchase, got %d events", len(events))
	}
	if events[1].Provenance != model.DividendReinvest("AAPL") {
		t.Errorf("Expected DRIP provenance to survive save, got %+v", events[1].Provenance)
	}
}
