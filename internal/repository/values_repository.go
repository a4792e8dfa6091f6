package repository

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
)

// ValuesRepository persists per-symbol daily value series as
// date,shares,value CSV files. These caches are owned by the worker and
// overwritten wholesale on each recompute.
type ValuesRepository struct {
	layout Layout
}

// NewValuesRepository creates a new ValuesRepository over the layout.
func NewValuesRepository(layout Layout) *ValuesRepository {
	return &ValuesRepository{layout: layout}
}

// Path returns the cache file path for a symbol.
func (r *ValuesRepository) Path(symbol string) string {
	return r.layout.ValuesPath(symbol)
}

// ModTime returns the cache file's modification time, zero if missing.
func (r *ValuesRepository) ModTime(symbol string) time.Time {
	return modTime(r.layout.ValuesPath(symbol))
}

// Exists reports whether a cache file exists for the symbol.
func (r *ValuesRepository) Exists(symbol string) bool {
	_, err := os.Stat(r.layout.ValuesPath(symbol))
	return err == nil
}

// Read loads a symbol's value series, sorted by date. A missing or malformed
// cache file reads as empty: cache-consistency problems are cache misses, not
// errors.
func (r *ValuesRepository) Read(symbol string) []model.ValueRow {
	f, err := os.Open(r.layout.ValuesPath(symbol))
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

	rows := make([]model.ValueRow, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 3 {
			continue
		}
		rows = append(rows, model.ValueRow{
			Date:   record[0],
			Shares: parseFloat(record[1]),
			Value:  parseFloat(record[2]),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows
}

// Write replaces a symbol's value series. An empty slice still writes the
// header so a later staleness check sees the attempt.
func (r *ValuesRepository) Write(symbol string, rows []model.ValueRow) error {
	f, err := os.Create(r.layout.ValuesPath(symbol))
	if err != nil {
		return fmt.Errorf("failed to create values cache for %s: %w", symbol, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"date", "shares", "value"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Date,
			formatFloat(row.Shares),
			strconv.FormatFloat(row.Value, 'f', 6, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
