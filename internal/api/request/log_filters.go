package request

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/apperrors"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
)

// ParseLogFilters extracts and validates log filters from query parameters.
// Levels and categories are comma-separated; dates accept YYYY-MM-DD or
// RFC3339. sortDir defaults to "desc", limit defaults to 50 (max 500).
func ParseLogFilters(
	levelsParam, categoriesParam, startDateParam, endDateParam,
	sourceParam, messageParam, sortDirParam, limitParam string,
) (*model.LogFilters, error) {
	filters := &model.LogFilters{
		Source:   sourceParam,
		Message:  messageParam,
		SortDesc: true,
		Limit:    50,
	}

	if levelsParam != "" {
		for _, level := range strings.Split(levelsParam, ",") {
			level = strings.TrimSpace(strings.ToLower(level))
			if !model.ValidLogLevels[model.LogLevel(level)] {
				return nil, fmt.Errorf("invalid log level: %s", level)
			}
			filters.Levels = append(filters.Levels, level)
		}
	}

	if categoriesParam != "" {
		for _, category := range strings.Split(categoriesParam, ",") {
			if category = strings.TrimSpace(strings.ToLower(category)); category != "" {
				filters.Categories = append(filters.Categories, category)
			}
		}
	}

	if startDateParam != "" {
		startTime, err := parseFilterTime(startDateParam)
		if err != nil {
			return nil, fmt.Errorf("invalid start_date format: %w", err)
		}
		filters.StartDate = &startTime
	}

	if endDateParam != "" {
		endTime, err := parseFilterTime(endDateParam)
		if err != nil {
			return nil, fmt.Errorf("invalid end_date format: %w", err)
		}
		filters.EndDate = &endTime
	}

	if filters.StartDate != nil && filters.EndDate != nil && filters.EndDate.Before(*filters.StartDate) {
		return nil, fmt.Errorf("%w: end_date precedes start_date", apperrors.ErrInvalidDateRange)
	}

	switch strings.ToLower(sortDirParam) {
	case "", "desc":
	case "asc":
		filters.SortDesc = false
	default:
		return nil, fmt.Errorf("invalid sortDir: %s", sortDirParam)
	}

	if limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 1 || limit > 500 {
			return nil, fmt.Errorf("limit must be between 1 and 500")
		}
		filters.Limit = limit
	}

	return filters, nil
}

func parseFilterTime(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", value)
}
