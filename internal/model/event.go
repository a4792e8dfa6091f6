package model

import (
	"fmt"
	"strings"
	"time"
)

// EventType identifies the kind of portfolio event.
type EventType string

// Supported event types.
const (
	EventPurchase       EventType = "purchase"
	EventSale           EventType = "sale"
	EventDividend       EventType = "dividend"
	EventCashDeposit    EventType = "cash_deposit"
	EventCashWithdrawal EventType = "cash_withdrawal"
)

// ValidEventTypes contains the allowed event type values.
var ValidEventTypes = map[EventType]bool{
	EventPurchase:       true,
	EventSale:           true,
	EventDividend:       true,
	EventCashDeposit:    true,
	EventCashWithdrawal: true,
}

// ProvenanceKind distinguishes user-entered events from events the dividend
// ingestion engine creates.
type ProvenanceKind int

// Provenance kinds.
const (
	ProvenanceNone ProvenanceKind = iota
	ProvenanceDividendCash
	ProvenanceDividendReinvest
)

const (
	divNotePrefix  = "DIV:"
	dripNotePrefix = "DRIP:"
)

// Provenance records which symbol's dividend produced an event, if any.
// It is serialized as a note prefix ("DIV:AAPL" / "DRIP:AAPL") so the stored
// event log stays a plain CSV without a dedicated column.
type Provenance struct {
	Kind   ProvenanceKind `json:"kind"`
	Symbol string         `json:"symbol,omitempty"`
}

// DividendCash returns the provenance of a cash dividend posted for symbol.
func DividendCash(symbol string) Provenance {
	return Provenance{Kind: ProvenanceDividendCash, Symbol: strings.ToUpper(symbol)}
}

// DividendReinvest returns the provenance of a DRIP purchase posted for symbol.
func DividendReinvest(symbol string) Provenance {
	return Provenance{Kind: ProvenanceDividendReinvest, Symbol: strings.ToUpper(symbol)}
}

// Marker renders the note prefix for this provenance, or "" for none.
func (p Provenance) Marker() string {
	switch p.Kind {
	case ProvenanceDividendCash:
		return divNotePrefix + p.Symbol
	case ProvenanceDividendReinvest:
		return dripNotePrefix + p.Symbol
	default:
		return ""
	}
}

// ParseProvenance extracts a provenance marker from a stored note.
// Notes without a marker parse as ProvenanceNone.
func ParseProvenance(note string) Provenance {
	switch {
	case strings.HasPrefix(note, dripNotePrefix):
		return DividendReinvest(firstToken(note[len(dripNotePrefix):]))
	case strings.HasPrefix(note, divNotePrefix):
		return DividendCash(firstToken(note[len(divNotePrefix):]))
	default:
		return Provenance{}
	}
}

func firstToken(s string) string {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i]
	}
	return s
}

// Event represents a single entry in a holding's append-only event log, or a
// portfolio-level cash entry. Shares and Price apply to purchase/sale events;
// Amount applies to dividend and cash events. The signed effect of Shares
// depends on Type.
type Event struct {
	Date       string     `json:"date"`
	Type       EventType  `json:"type"`
	Shares     float64    `json:"shares"`
	Price      float64    `json:"price"`
	Amount     float64    `json:"amount"`
	Note       string     `json:"note,omitempty"`
	Provenance Provenance `json:"provenance"`
}

// StoredNote renders the note column for persistence: the provenance marker,
// followed by any free-form note text.
func (e Event) StoredNote() string {
	marker := e.Provenance.Marker()
	if marker == "" {
		return e.Note
	}
	if e.Note == "" {
		return marker
	}
	return marker + " " + e.Note
}

// ShareDelta returns the signed effect of the event on the share count.
// Event types other than purchase and sale leave the position unchanged.
func (e Event) ShareDelta() float64 {
	switch e.Type {
	case EventPurchase:
		return e.Shares
	case EventSale:
		return -e.Shares
	default:
		return 0
	}
}

// EventFromStored rebuilds an event from persisted columns, splitting the
// provenance marker back out of the note.
func EventFromStored(date string, typ EventType, shares, price, amount float64, note string) Event {
	prov := ParseProvenance(note)
	if prov.Kind != ProvenanceNone {
		note = strings.TrimPrefix(note, prov.Marker())
		note = strings.TrimLeft(note, " \t")
	}
	return Event{
		Date:       date,
		Type:       typ,
		Shares:     shares,
		Price:      price,
		Amount:     amount,
		Note:       note,
		Provenance: prov,
	}
}

// dateSentinel sorts unparsable dates after every valid date while keeping the
// stored text untouched.
const dateSentinel = "9999-12-31"

// NormalizeDate converts free-form date text to ISO (YYYY-MM-DD).
// Accepted inputs are YYYY-MM-DD and YYYYMMDD; anything else is returned
// trimmed but otherwise verbatim.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// DateSortKey returns a key that orders events chronologically, with
// unparsable dates after all valid ones.
func DateSortKey(s string) string {
	iso := NormalizeDate(s)
	if _, err := time.Parse("2006-01-02", iso); err != nil {
		return dateSentinel + iso
	}
	return iso
}

// ParseISODate parses a normalized date, erroring on unparsable input.
func ParseISODate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", NormalizeDate(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
