package repository_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/testutil"
)

// TestPortfolioRepository_RoundTrip tests saving and reloading an event log.
//
// WHY: The CSV files are the system of record. Anything lost or reshaped in a
// save/load cycle corrupts valuation for every downstream consumer, so the
// round trip must preserve events, cash entries and provenance markers.
func TestPortfolioRepository_RoundTrip(t *testing.T) {
	layout := testutil.SetupLayout(t)
	repo := repository.NewPortfolioRepository(layout)

	original := testutil.NewTestPortfolio().
		WithHolding("AAPL",
			testutil.Purchase("2024-01-02", 10, 100),
			testutil.Sale("2024-06-01", 2, 150),
			model.Event{
				Date:       "2024-03-15",
				Type:       model.EventPurchase,
				Shares:     0.25,
				Price:      120,
				Provenance: model.DividendReinvest("AAPL"),
			},
		).
		WithCashEvent(model.Event{
			Date:       "2024-03-15",
			Type:       model.EventDividend,
			Amount:     5,
			Provenance: model.DividendCash("MSFT"),
		}).
		Build()

	path := layout.DefaultPortfolioPath()
	if err := repo.Save(original, path); err != nil {
		t.Fatalf("Save() returned unexpected error: %v", err)
	}

	loaded, err := repo.Load(path)
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	holding := loaded.GetHolding("AAPL")
	if holding == nil {
		t.Fatal("Expected AAPL holding after reload")
	}
	if len(holding.Events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(holding.Events))
	}

	drip := holding.Events[2]
	if drip.Provenance != model.DividendReinvest("AAPL") {
		t.Errorf("Expected DRIP provenance to survive round trip, got %+v", drip.Provenance)
	}
	if drip.Shares != 0.25 || drip.Price != 120 {
		t.Errorf("Expected DRIP amounts preserved, got shares=%v price=%v", drip.Shares, drip.Price)
	}

	if len(loaded.CashEvents) != 1 {
		t.Fatalf("Expected 1 cash event, got %d", len(loaded.CashEvents))
	}
	cash := loaded.CashEvents[0]
	if cash.Provenance != model.DividendCash("MSFT") {
		t.Errorf("Expected cash dividend provenance to survive round trip, got %+v", cash.Provenance)
	}
	if cash.Amount != 5 {
		t.Errorf("Expected amount 5, got %v", cash.Amount)
	}
}

// TestPortfolioRepository_Load tests load edge cases.
//
// WHY: A missing file is the normal first-run state and must yield a usable
// empty portfolio; legacy files carry meta rows the writer no longer emits.
func TestPortfolioRepository_Load(t *testing.T) {
	t.Run("missing file loads as empty portfolio", func(t *testing.T) {
		layout := testutil.SetupLayout(t)
		repo := repository.NewPortfolioRepository(layout)

		portfolio, err := repo.Load(filepath.Join(layout.DataDir, "nope.csv"))
		if err != nil {
			t.Fatalf("Load() returned unexpected error: %v", err)
		}
		if len(portfolio.Holdings) != 0 || len(portfolio.CashEvents) != 0 {
			t.Error("Expected empty portfolio for missing file")
		}
		if !portfolio.DividendReinvest {
			t.Error("Expected reinvestment enabled by default")
		}
	})

	t.Run("legacy meta rows are honored on read", func(t *testing.T) {
		layout := testutil.SetupLayout(t)
		repo := repository.NewPortfolioRepository(layout)

		content := "row_type,key,value,symbol,date,type,shares,price,amount,note\n" +
			"meta,name,Legacy Portfolio,,,,,,,\n" +
			"meta,dividend_reinvest,false,,,,,,,\n" +
			"event,,,aapl,2024-01-02,purchase,10,100,,\n"
		path := filepath.Join(layout.DataDir, "legacy.csv")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write fixture: %v", err)
		}

		portfolio, err := repo.Load(path)
		if err != nil {
			t.Fatalf("Load() returned unexpected error: %v", err)
		}
		if portfolio.Name != "Legacy Portfolio" {
			t.Errorf("Expected meta name honored, got %q", portfolio.Name)
		}
		if portfolio.DividendReinvest {
			t.Error("Expected meta dividend_reinvest=false honored")
		}
		if portfolio.GetHolding("AAPL") == nil {
			t.Error("Expected symbol upper-cased into AAPL holding")
		}
	})

	t.Run("rows with unknown event types fall back per row kind", func(t *testing.T) {
		layout := testutil.SetupLayout(t)
		repo := repository.NewPortfolioRepository(layout)

		content := "row_type,key,value,symbol,date,type,shares,price,amount,note\n" +
			"event,,,AAPL,2024-01-02,weird,10,100,,\n"
		path := filepath.Join(layout.DataDir, "odd.csv")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write fixture: %v", err)
		}

		portfolio, err := repo.Load(path)
		if err != nil {
			t.Fatalf("Load() returned unexpected error: %v", err)
		}
		events := portfolio.GetHolding("AAPL").Events
		if len(events) != 1 || events[0].Type != model.EventPurchase {
			t.Errorf("Expected unknown event type to fall back to purchase, got %+v", events)
		}
	})
}

// TestLayout_PortfolioPaths tests portfolio file discovery.
//
// WHY: The worker derives its entire workload from this listing; picking up a
// stray cache file as a portfolio would feed garbage into every pipeline stage.
func TestLayout_PortfolioPaths(t *testing.T) {
	layout := testutil.SetupLayout(t)

	for _, name := range []string{"portfolio_default.csv", "portfolio_ira.csv", "cache_AAPL.csv", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(layout.DataDir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("Failed to write fixture %s: %v", name, err)
		}
	}

	paths := layout.PortfolioPaths()
	if len(paths) != 2 {
		t.Fatalf("Expected 2 portfolio files, got %d: %v", len(paths), paths)
	}
	if filepath.Base(paths[0]) != "portfolio_default.csv" || filepath.Base(paths[1]) != "portfolio_ira.csv" {
		t.Errorf("Expected sorted portfolio files, got %v", paths)
	}
}
