// Package repository provides access to the on-disk state of the system: the
// portfolio event logs (owned by callers of the API) and the derived caches
// (owned exclusively by the background worker). All writes are whole-file
// rewrites so a concurrent reader sees either the old or the new version.
package repository

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Layout describes the on-disk directory layout shared by the repositories.
type Layout struct {
	DataDir  string
	CacheDir string
}

// NewLayout creates the layout, making sure both directories exist.
func NewLayout(dataDir, cacheDir string) (Layout, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return Layout{}, err
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Layout{}, err
	}
	return Layout{DataDir: dataDir, CacheDir: cacheDir}, nil
}

// DefaultPortfolioPath returns the path of the default portfolio file.
func (l Layout) DefaultPortfolioPath() string {
	return filepath.Join(l.DataDir, "portfolio_default.csv")
}

// PortfolioPaths lists all portfolio event-log files in the data directory,
// sorted. Cache files that end up in the data dir are skipped.
func (l Layout) PortfolioPaths() []string {
	entries, err := os.ReadDir(l.DataDir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".csv") {
			continue
		}
		if strings.HasPrefix(strings.ToLower(name), "cache_") {
			continue
		}
		paths = append(paths, filepath.Join(l.DataDir, name))
	}
	sort.Strings(paths)
	return paths
}

// ValuesPath returns the per-symbol value-series cache path.
func (l Layout) ValuesPath(symbol string) string {
	return filepath.Join(l.CacheDir, strings.ToUpper(symbol)+"_values.csv")
}

// PricesPath returns the per-symbol price-history cache path.
func (l Layout) PricesPath(symbol string) string {
	return filepath.Join(l.CacheDir, strings.ToUpper(symbol)+"_prices.csv")
}

// DividendsPath returns the per-symbol provider dividend-series cache path.
func (l Layout) DividendsPath(symbol string) string {
	return filepath.Join(l.CacheDir, strings.ToUpper(symbol)+"_dividends.csv")
}

// DividendSeenPath returns the per-symbol ingested ex-date cache path. This is
// deliberately separate from DividendsPath: the provider cache is overwritten
// by prefetch before ingestion ever runs, so it cannot double as the seen-set.
func (l Layout) DividendSeenPath(symbol string) string {
	return filepath.Join(l.CacheDir, strings.ToUpper(symbol)+"_divseen.json")
}

// RealtimePath returns the per-symbol realtime snapshot path.
func (l Layout) RealtimePath(symbol string) string {
	return filepath.Join(l.CacheDir, strings.ToUpper(symbol)+"_realtime.json")
}

// DirtyPath returns the dirty-symbol set path.
func (l Layout) DirtyPath() string {
	return filepath.Join(l.CacheDir, "dirty_symbols.json")
}

// JournalPath returns the journal CSV path for a portfolio file.
func (l Layout) JournalPath(portfolioPath string) string {
	base := filepath.Base(portfolioPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(l.CacheDir, name+"_journal.csv")
}

// modTime returns a file's modification time, or the zero time if it does not
// exist or cannot be read.
func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
