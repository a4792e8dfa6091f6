package repository

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
)

// PriceRepository persists the per-symbol market data caches: daily closing
// prices, provider dividend series, and the best-effort realtime snapshot.
type PriceRepository struct {
	layout Layout
}

// NewPriceRepository creates a new PriceRepository over the layout.
func NewPriceRepository(layout Layout) *PriceRepository {
	return &PriceRepository{layout: layout}
}

// ReadPrices loads a symbol's cached price history, sorted by date. Missing or
// malformed files read as empty.
func (r *PriceRepository) ReadPrices(symbol string) []model.PricePoint {
	records := readCSV(r.layout.PricesPath(symbol))
	points := make([]model.PricePoint, 0, len(records))
	for _, record := range records {
		if len(record) < 2 {
			continue
		}
		points = append(points, model.PricePoint{Date: record[0], Close: parseFloat(record[1])})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// WritePrices replaces a symbol's cached price history.
func (r *PriceRepository) WritePrices(symbol string, points []model.PricePoint) error {
	records := make([][]string, 0, len(points))
	for _, p := range points {
		records = append(records, []string{p.Date, formatFloat(p.Close)})
	}
	return writeCSV(r.layout.PricesPath(symbol), []string{"date", "close"}, records)
}

// ReadDividends loads a symbol's cached provider dividend series, sorted by
// ex-dividend date.
func (r *PriceRepository) ReadDividends(symbol string) []model.DividendPoint {
	records := readCSV(r.layout.DividendsPath(symbol))
	points := make([]model.DividendPoint, 0, len(records))
	for _, record := range records {
		if len(record) < 2 {
			continue
		}
		points = append(points, model.DividendPoint{ExDate: record[0], PerShare: parseFloat(record[1])})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].ExDate < points[j].ExDate })
	return points
}

// WriteDividends replaces a symbol's cached provider dividend series.
func (r *PriceRepository) WriteDividends(symbol string, points []model.DividendPoint) error {
	records := make([][]string, 0, len(points))
	for _, p := range points {
		records = append(records, []string{p.ExDate, formatFloat(p.PerShare)})
	}
	return writeCSV(r.layout.DividendsPath(symbol), []string{"date", "value"}, records)
}

// ReadRealtime loads a symbol's realtime snapshot, reporting whether one
// exists and is readable.
func (r *PriceRepository) ReadRealtime(symbol string) (model.RealtimeQuote, bool) {
	data, err := os.ReadFile(r.layout.RealtimePath(symbol))
	if err != nil {
		return model.RealtimeQuote{}, false
	}
	var quote model.RealtimeQuote
	if err := json.Unmarshal(data, &quote); err != nil {
		return model.RealtimeQuote{}, false
	}
	return quote, true
}

// WriteRealtime replaces a symbol's realtime snapshot.
func (r *PriceRepository) WriteRealtime(quote model.RealtimeQuote) error {
	data, err := json.MarshalIndent(quote, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.layout.RealtimePath(quote.Symbol), data, 0o644)
}

func readCSV(path string) [][]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil || len(records) < 2 {
		return nil
	}
	return records[1:]
}

func writeCSV(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(records); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
