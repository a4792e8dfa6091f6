package testutil

import (
	"testing"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
)

// SetupLayout creates a storage layout rooted in per-test temporary
// directories. Files written through it are removed when the test completes.
//
// Example usage:
//
//	layout := testutil.SetupLayout(t)
//	portfolioRepo := repository.NewPortfolioRepository(layout)
func SetupLayout(t *testing.T) repository.Layout {
	t.Helper()

	layout, err := repository.NewLayout(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create test layout: %v", err)
	}
	return layout
}
