package repository

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
)

// csvFields is the column layout of a portfolio event-log file. A "meta" row
// type is accepted on read for backward compatibility but never written.
var csvFields = []string{
	"row_type", // event | cash
	"key",
	"value",
	"symbol",
	"date",
	"type",
	"shares",
	"price",
	"amount",
	"note",
}

// PortfolioRepository reads and writes portfolio event-log CSV files.
type PortfolioRepository struct {
	layout Layout
}

// NewPortfolioRepository creates a new PortfolioRepository over the layout.
func NewPortfolioRepository(layout Layout) *PortfolioRepository {
	return &PortfolioRepository{layout: layout}
}

// Layout exposes the repository's on-disk layout.
func (r *PortfolioRepository) Layout() Layout {
	return r.layout
}

// List returns all portfolio file paths, sorted.
func (r *PortfolioRepository) List() []string {
	return r.layout.PortfolioPaths()
}

// Exists reports whether the portfolio file is present on disk. An empty path
// resolves to the default portfolio.
func (r *PortfolioRepository) Exists(path string) bool {
	if path == "" {
		path = r.layout.DefaultPortfolioPath()
	}
	_, err := os.Stat(path)
	return err == nil
}

// ModTime returns the portfolio file's modification time, zero if missing.
func (r *PortfolioRepository) ModTime(path string) time.Time {
	return modTime(path)
}

// Touch bumps the portfolio file's modification time to now. The worker calls
// this after task-triggered updates so a polling UI reloads the file.
func (r *PortfolioRepository) Touch(path string) error {
	now := time.Now()
	return os.Chtimes(path, now, now)
}

// Load reads a portfolio from its CSV event log. A missing file loads as an
// empty portfolio rather than an error.
func (r *PortfolioRepository) Load(path string) (*model.Portfolio, error) {
	if path == "" {
		path = r.layout.DefaultPortfolioPath()
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewPortfolio(), nil
		}
		return nil, fmt.Errorf("failed to open portfolio %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio %s: %w", path, err)
	}

	portfolio := model.NewPortfolio()
	if len(records) == 0 {
		return portfolio, nil
	}

	columns := indexColumns(records[0])
	for _, record := range records[1:] {
		get := func(field string) string {
			idx, ok := columns[field]
			if !ok || idx >= len(record) {
				return ""
			}
			return record[idx]
		}

		switch strings.ToLower(strings.TrimSpace(get("row_type"))) {
		case "meta":
			// Read-only backward compatibility; no longer written out.
			switch strings.ToLower(strings.TrimSpace(get("key"))) {
			case "name":
				if v := strings.TrimSpace(get("value")); v != "" {
					portfolio.Name = v
				}
			case "dividend_reinvest":
				portfolio.DividendReinvest = parseBool(get("value"))
			}
		case "event":
			symbol := strings.ToUpper(strings.TrimSpace(get("symbol")))
			if symbol == "" {
				continue
			}
			holding := portfolio.EnsureHolding(symbol)
			holding.Events = append(holding.Events, storedEvent(get, model.EventPurchase))
		case "cash":
			portfolio.CashEvents = append(portfolio.CashEvents, storedEvent(get, model.EventCashDeposit))
		}
	}

	return portfolio, nil
}

// Save writes the portfolio back as a whole-file rewrite of its event log.
func (r *PortfolioRepository) Save(portfolio *model.Portfolio, path string) error {
	if path == "" {
		path = r.layout.DefaultPortfolioPath()
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create portfolio %s: %w", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(csvFields); err != nil {
		return err
	}
	for _, holding := range portfolio.Holdings {
		for _, ev := range holding.Events {
			if err := writer.Write(eventRecord("event", holding.Symbol, ev)); err != nil {
				return err
			}
		}
	}
	for _, ev := range portfolio.CashEvents {
		if err := writer.Write(eventRecord("cash", "", ev)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return columns
}

func storedEvent(get func(string) string, fallback model.EventType) model.Event {
	typ := model.EventType(strings.TrimSpace(get("type")))
	if !model.ValidEventTypes[typ] {
		typ = fallback
	}
	return model.EventFromStored(
		strings.TrimSpace(get("date")),
		typ,
		parseFloat(get("shares")),
		parseFloat(get("price")),
		parseFloat(get("amount")),
		get("note"),
	)
}

func eventRecord(rowType, symbol string, ev model.Event) []string {
	return []string{
		rowType,
		"",
		"",
		symbol,
		ev.Date,
		string(ev.Type),
		formatFloat(ev.Shares),
		formatFloat(ev.Price),
		formatFloat(ev.Amount),
		ev.StoredNote(),
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "t":
		return true
	}
	return false
}
