package repository_test

import (
	"sync"
	"testing"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/testutil"
)

// TestValuesRepository tests the per-symbol value-series cache files.
//
// WHY: Staleness detection compares cache files against portfolio files; the
// empty-write behavior is load-bearing because it records a compute attempt
// for symbols with no price data.
func TestValuesRepository(t *testing.T) {
	t.Run("round trips a series sorted by date", func(t *testing.T) {
		layout := testutil.SetupLayout(t)
		repo := repository.NewValuesRepository(layout)

		rows := []model.ValueRow{
			{Date: "2024-06-03", Shares: 15, Value: 2400},
			{Date: "2024-01-02", Shares: 10, Value: 1000},
		}
		if err := repo.Write("AAPL", rows); err != nil {
			t.Fatalf("Write() returned unexpected error: %v", err)
		}

		got := repo.Read("AAPL")
		if len(got) != 2 {
			t.Fatalf("Expected 2 rows, got %d", len(got))
		}
		if got[0].Date != "2024-01-02" || got[1].Date != "2024-06-03" {
			t.Errorf("Expected rows sorted by date, got %v", got)
		}
		if got[0].Shares != 10 || got[0].Value != 1000 {
			t.Errorf("Expected first row (10, 1000), got %+v", got[0])
		}
	})

	t.Run("missing cache reads as empty", func(t *testing.T) {
		layout := testutil.SetupLayout(t)
		repo := repository.NewValuesRepository(layout)

		if rows := repo.Read("NOPE"); rows != nil {
			t.Errorf("Expected nil for missing cache, got %v", rows)
		}
		if repo.Exists("NOPE") {
			t.Error("Expected Exists() false for missing cache")
		}
	})

	t.Run("empty write still creates the cache file", func(t *testing.T) {
		layout := testutil.SetupLayout(t)
		repo := repository.NewValuesRepository(layout)

		if err := repo.Write("DEAD", nil); err != nil {
			t.Fatalf("Write() returned unexpected error: %v", err)
		}
		if !repo.Exists("DEAD") {
			t.Error("Expected cache file to exist after empty write")
		}
		if rows := repo.Read("DEAD"); len(rows) != 0 {
			t.Errorf("Expected empty series, got %v", rows)
		}
	})
}

// TestDirtyStores tests both dirty-set implementations.
//
// WHY: A symbol lost from the dirty set stays stale until the next portfolio
// edit; a symbol that never clears forces a recompute on every maintenance
// tick. Both stores must also normalize symbol case.
func TestDirtyStores(t *testing.T) {
	layout := testutil.SetupLayout(t)

	stores := map[string]repository.DirtyStore{
		"file":   repository.NewFileDirtyStore(layout),
		"memory": repository.NewMemoryDirtyStore(),
	}

	for name, store := range stores {
		t.Run(name+" store marks, reads and clears", func(t *testing.T) {
			if len(store.Read()) != 0 {
				t.Fatal("Expected empty initial dirty set")
			}

			if err := store.Mark("aapl"); err != nil {
				t.Fatalf("Mark() returned unexpected error: %v", err)
			}
			if err := store.Mark("MSFT"); err != nil {
				t.Fatalf("Mark() returned unexpected error: %v", err)
			}

			set := store.Read()
			if !set["AAPL"] || !set["MSFT"] {
				t.Errorf("Expected upper-cased symbols in dirty set, got %v", set)
			}

			if err := store.Clear("AAPL"); err != nil {
				t.Fatalf("Clear() returned unexpected error: %v", err)
			}
			set = store.Read()
			if set["AAPL"] {
				t.Error("Expected AAPL cleared")
			}
			if !set["MSFT"] {
				t.Error("Expected MSFT still dirty")
			}

			// Clearing an absent symbol is a no-op, not an error.
			if err := store.Clear("NOPE"); err != nil {
				t.Errorf("Clear() of absent symbol returned error: %v", err)
			}
		})
	}

	for name, store := range map[string]repository.DirtyStore{
		"file":   repository.NewFileDirtyStore(testutil.SetupLayout(t)),
		"memory": repository.NewMemoryDirtyStore(),
	} {
		t.Run(name+" store keeps concurrent marks", func(t *testing.T) {
			symbols := []string{"AAPL", "MSFT", "GOOG", "AMZN", "META", "NVDA", "TSLA", "NFLX"}

			var wg sync.WaitGroup
			for _, symbol := range symbols {
				wg.Add(1)
				go func(symbol string) {
					defer wg.Done()
					if err := store.Mark(symbol); err != nil {
						t.Errorf("Mark(%s) returned unexpected error: %v", symbol, err)
					}
					if err := store.Clear("GONE"); err != nil {
						t.Errorf("Clear() returned unexpected error: %v", err)
					}
				}(symbol)
			}
			wg.Wait()

			set := store.Read()
			for _, symbol := range symbols {
				if !set[symbol] {
					t.Errorf("Expected %s to survive concurrent marking, got %v", symbol, set)
				}
			}
		})
	}
}

// TestDividendSeenRepository tests the ingested ex-date cache.
//
// WHY: Merge must never drop previously seen dates; forgetting one would
// disable the short-circuit and cost a redundant ingestion pass, while a
// corrupted file must degrade to an empty map instead of an error.
func TestDividendSeenRepository(t *testing.T) {
	layout := testutil.SetupLayout(t)
	repo := repository.NewDividendSeenRepository(layout)

	if seen := repo.Read("AAPL"); len(seen) != 0 {
		t.Fatalf("Expected empty map for missing file, got %v", seen)
	}

	if err := repo.Merge("AAPL", map[string]float64{"2024-03-15": 0.25}); err != nil {
		t.Fatalf("Merge() returned unexpected error: %v", err)
	}
	if err := repo.Merge("AAPL", map[string]float64{"2024-06-14": 0.26}); err != nil {
		t.Fatalf("Merge() returned unexpected error: %v", err)
	}

	seen := repo.Read("AAPL")
	if len(seen) != 2 {
		t.Fatalf("Expected both ex-dates retained, got %v", seen)
	}
	if seen["2024-03-15"] != 0.25 || seen["2024-06-14"] != 0.26 {
		t.Errorf("Expected merged amounts preserved, got %v", seen)
	}
}
