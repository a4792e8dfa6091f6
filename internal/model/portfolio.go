package model

import (
	"sort"
	"strings"
)

// Holding is the per-symbol event log. Insertion order of events is not
// significant; consumers sort by normalized date before replaying.
type Holding struct {
	Symbol string  `json:"symbol"`
	Events []Event `json:"events"`
}

// SortedEvents returns the events ordered by normalized date. The receiver's
// slice is left untouched.
func (h *Holding) SortedEvents() []Event {
	events := make([]Event, len(h.Events))
	copy(events, h.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return DateSortKey(events[i].Date) < DateSortKey(events[j].Date)
	})
	return events
}

// EarliestEventDate returns the smallest normalized event date, or "" when the
// holding has no dated events.
func (h *Holding) EarliestEventDate() string {
	earliest := ""
	for _, ev := range h.Events {
		if ev.Date == "" {
			continue
		}
		iso := NormalizeDate(ev.Date)
		if earliest == "" || iso < earliest {
			earliest = iso
		}
	}
	return earliest
}

// Portfolio is the in-memory event-sourced portfolio: one holding per symbol
// plus portfolio-level cash events (deposits, withdrawals, cash dividends).
type Portfolio struct {
	Name             string    `json:"name"`
	DividendReinvest bool      `json:"dividendReinvest"`
	Holdings         []Holding `json:"holdings"`
	CashEvents       []Event   `json:"cashEvents"`
}

// NewPortfolio returns an empty portfolio with the default reinvestment policy.
func NewPortfolio() *Portfolio {
	return &Portfolio{Name: "Default", DividendReinvest: true}
}

// GetHolding finds the holding for symbol, case-insensitively.
func (p *Portfolio) GetHolding(symbol string) *Holding {
	upper := strings.ToUpper(symbol)
	for i := range p.Holdings {
		if strings.ToUpper(p.Holdings[i].Symbol) == upper {
			return &p.Holdings[i]
		}
	}
	return nil
}

// EnsureHolding finds or creates the holding for symbol.
func (p *Portfolio) EnsureHolding(symbol string) *Holding {
	if existing := p.GetHolding(symbol); existing != nil {
		return existing
	}
	p.Holdings = append(p.Holdings, Holding{Symbol: strings.ToUpper(symbol)})
	return &p.Holdings[len(p.Holdings)-1]
}

// Symbols returns the canonical upper-case symbols of all holdings.
func (p *Portfolio) Symbols() []string {
	symbols := make([]string, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		if h.Symbol != "" {
			symbols = append(symbols, strings.ToUpper(h.Symbol))
		}
	}
	sort.Strings(symbols)
	return symbols
}
