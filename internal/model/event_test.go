package model_test

import (
	"testing"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
)

// TestNormalizeDate tests date normalization of stored event dates.
//
// WHY: Event logs are hand-editable CSV files, so dates arrive in more than
// one format. Every derivation keys on the normalized ISO form; a wrong
// normalization silently misplaces an event in the value series.
func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"iso date passes through", "2024-01-02", "2024-01-02"},
		{"compact date is expanded", "20240102", "2024-01-02"},
		{"surrounding whitespace is trimmed", "  2024-01-02 ", "2024-01-02"},
		{"unparsable text is returned trimmed", " not-a-date ", "not-a-date"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := model.NormalizeDate(tt.input); got != tt.expected {
				t.Errorf("NormalizeDate(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

// TestDateSortKey tests chronological ordering keys.
//
// WHY: Events with broken dates must never interleave with valid ones during
// replay; they sort after every parsable date so share-count replay stops at
// the first broken entry instead of miscounting.
func TestDateSortKey(t *testing.T) {
	t.Run("valid dates order chronologically", func(t *testing.T) {
		if model.DateSortKey("2024-01-02") >= model.DateSortKey("2024-06-01") {
			t.Error("Expected January key to sort before June key")
		}
	})

	t.Run("compact and iso forms produce the same key", func(t *testing.T) {
		if model.DateSortKey("20240102") != model.DateSortKey("2024-01-02") {
			t.Error("Expected equal keys for equivalent dates")
		}
	})

	t.Run("unparsable dates sort after all valid dates", func(t *testing.T) {
		if model.DateSortKey("garbage") <= model.DateSortKey("9998-12-31") {
			t.Error("Expected unparsable date to sort after valid dates")
		}
	})
}

// TestProvenanceRoundTrip tests the note-prefix serialization of provenance.
//
// WHY: Idempotent dividend ingestion depends on recognizing its own earlier
// events after a save/load cycle. If the marker does not survive the round
// trip, every ingestion run duplicates past dividends.
func TestProvenanceRoundTrip(t *testing.T) {
	t.Run("cash dividend marker round trips", func(t *testing.T) {
		ev := model.Event{
			Date:       "2024-03-15",
			Type:       model.EventDividend,
			Amount:     5.00,
			Provenance: model.DividendCash("aapl"),
		}

		stored := ev.StoredNote()
		if stored != "DIV:AAPL" {
			t.Errorf("StoredNote() = %q, want %q", stored, "DIV:AAPL")
		}

		back := model.EventFromStored(ev.Date, ev.Type, 0, 0, ev.Amount, stored)
		if back.Provenance != model.DividendCash("AAPL") {
			t.Errorf("Parsed provenance = %+v, want cash dividend for AAPL", back.Provenance)
		}
		if back.Note != "" {
			t.Errorf("Expected empty note after marker extraction, got %q", back.Note)
		}
	})

	t.Run("reinvest marker round trips with free-form note", func(t *testing.T) {
		ev := model.Event{
			Date:       "2024-03-15",
			Type:       model.EventPurchase,
			Shares:     0.5,
			Price:      100,
			Note:       "quarterly",
			Provenance: model.DividendReinvest("MSFT"),
		}

		stored := ev.StoredNote()
		if stored != "DRIP:MSFT quarterly" {
			t.Errorf("StoredNote() = %q, want %q", stored, "DRIP:MSFT quarterly")
		}

		back := model.EventFromStored(ev.Date, ev.Type, ev.Shares, ev.Price, 0, stored)
		if back.Provenance != model.DividendReinvest("MSFT") {
			t.Errorf("Parsed provenance = %+v, want reinvest for MSFT", back.Provenance)
		}
		if back.Note != "quarterly" {
			t.Errorf("Expected note %q, got %q", "quarterly", back.Note)
		}
	})

	t.Run("plain note parses as no provenance", func(t *testing.T) {
		back := model.EventFromStored("2024-01-02", model.EventPurchase, 10, 100, 0, "opening position")
		if back.Provenance.Kind != model.ProvenanceNone {
			t.Errorf("Expected no provenance, got %+v", back.Provenance)
		}
		if back.Note != "opening position" {
			t.Errorf("Expected note preserved, got %q", back.Note)
		}
	})
}

// TestShareDelta tests the signed share effect of each event type.
//
// WHY: The cumulative sum of these deltas is the position size everywhere in
// the system. Dividend and cash events contributing a nonzero delta would
// corrupt every valuation.
func TestShareDelta(t *testing.T) {
	tests := []struct {
		name     string
		event    model.Event
		expected float64
	}{
		{"purchase adds shares", model.Event{Type: model.EventPurchase, Shares: 10}, 10},
		{"sale removes shares", model.Event{Type: model.EventSale, Shares: 4}, -4},
		{"dividend leaves position unchanged", model.Event{Type: model.EventDividend, Shares: 3}, 0},
		{"cash deposit leaves position unchanged", model.Event{Type: model.EventCashDeposit, Amount: 100}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.ShareDelta(); got != tt.expected {
				t.Errorf("ShareDelta() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestSortedEvents tests stable chronological sorting of a holding's log.
//
// WHY: Storage order is explicitly not chronological order; derivations must
// be independent of how rows happen to be appended to the file.
func TestSortedEvents(t *testing.T) {
	holding := model.Holding{
		Symbol: "AAPL",
		Events: []model.Event{
			{Date: "2024-06-01", Type: model.EventPurchase, Shares: 5},
			{Date: "bogus", Type: model.EventPurchase, Shares: 1},
			{Date: "2024-01-02", Type: model.EventPurchase, Shares: 10},
		},
	}

	sorted := holding.SortedEvents()
	if len(sorted) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(sorted))
	}
	if sorted[0].Date != "2024-01-02" || sorted[1].Date != "2024-06-01" {
		t.Errorf("Expected chronological order, got %q then %q", sorted[0].Date, sorted[1].Date)
	}
	if sorted[2].Date != "bogus" {
		t.Errorf("Expected unparsable date last, got %q", sorted[2].Date)
	}
}
