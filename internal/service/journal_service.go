package service

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
)

// journalFlushRows is the buffered-write batch size for journal rows.
const journalFlushRows = 200

// JournalService builds the per-portfolio journal: a date-major CSV with one
// column per symbol carrying that day's position value. It is a pure
// projection over the persisted value caches, safe to rebuild fully on every
// call.
type JournalService struct {
	portfolioRepo *repository.PortfolioRepository
	valuesRepo    *repository.ValuesRepository
}

// NewJournalService creates a new JournalService with the provided dependencies.
func NewJournalService(
	portfolioRepo *repository.PortfolioRepository,
	valuesRepo *repository.ValuesRepository,
) *JournalService {
	return &JournalService{
		portfolioRepo: portfolioRepo,
		valuesRepo:    valuesRepo,
	}
}

// Path returns the journal CSV path for a portfolio file.
func (s *JournalService) Path(portfolioPath string) string {
	return s.portfolioRepo.Layout().JournalPath(portfolioPath)
}

// Build rebuilds the journal for one portfolio file: an outer join of the
// per-symbol value series on date, blank where the symbol held no shares or
// has no cached row. Rows are written in buffered batches to bound memory for
// long histories.
func (s *JournalService) Build(portfolioPath string) error {
	portfolio, err := s.portfolioRepo.Load(portfolioPath)
	if err != nil {
		return err
	}
	symbols := portfolio.Symbols()

	// Rows with zero shares or value are dropped so the journal carries no
	// blank-entry noise for dates before the first purchase.
	bySymbol := make(map[string]map[string]model.ValueRow, len(symbols))
	dateSet := map[string]bool{}
	for _, symbol := range symbols {
		rows := s.valuesRepo.Read(symbol)
		if len(rows) == 0 {
			continue
		}
		byDate := make(map[string]model.ValueRow, len(rows))
		for _, row := range rows {
			if row.Shares <= 0 || row.Value <= 0 {
				continue
			}
			byDate[row.Date] = row
			dateSet[row.Date] = true
		}
		bySymbol[symbol] = byDate
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	path := s.Path(portfolioPath)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create journal %s: %w", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(append([]string{"date"}, symbols...)); err != nil {
		return err
	}

	pending := 0
	for _, date := range dates {
		record := make([]string, 0, len(symbols)+1)
		record = append(record, date)
		for _, symbol := range symbols {
			row, ok := bySymbol[symbol][date]
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, fmt.Sprintf("%.2f", row.Value))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
		if pending++; pending >= journalFlushRows {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return err
			}
			pending = 0
		}
	}

	writer.Flush()
	return writer.Error()
}
