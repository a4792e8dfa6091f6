package repository

import (
	"encoding/json"
	"os"
	"strings"
)

// DividendSeenRepository persists the per-symbol map of already-ingested
// ex-dividend dates to per-share amounts. It exists purely as an optimization:
// when a freshly fetched provider series contains no dates absent from this
// cache, ingestion can skip the symbol for the cycle. Idempotence itself is
// guaranteed by event provenance markers, not by this cache.
type DividendSeenRepository struct {
	layout Layout
}

// NewDividendSeenRepository creates a new DividendSeenRepository over the layout.
func NewDividendSeenRepository(layout Layout) *DividendSeenRepository {
	return &DividendSeenRepository{layout: layout}
}

// Read loads the seen map for a symbol. Missing or malformed files read as
// empty.
func (r *DividendSeenRepository) Read(symbol string) map[string]float64 {
	data, err := os.ReadFile(r.layout.DividendSeenPath(symbol))
	if err != nil {
		return map[string]float64{}
	}
	var seen map[string]float64
	if err := json.Unmarshal(data, &seen); err != nil || seen == nil {
		return map[string]float64{}
	}
	return seen
}

// Merge folds the given series into the stored map and writes it back.
// Existing entries are never dropped.
func (r *DividendSeenRepository) Merge(symbol string, series map[string]float64) error {
	seen := r.Read(symbol)
	for date, perShare := range series {
		seen[date] = perShare
	}
	data, err := json.MarshalIndent(seen, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.layout.DividendSeenPath(strings.ToUpper(symbol)), data, 0o644)
}
