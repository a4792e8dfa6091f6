package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
var (
	// ErrPortfolioNotFound indicates that a portfolio file does not exist.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrHoldingNotFound indicates that a portfolio has no holding for the symbol.
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrValuesCacheNotFound indicates no cached value series exists for the symbol.
	ErrValuesCacheNotFound = errors.New("values cache not found")
)

// Business logic errors represent validation failures or constraint violations.
var (
	// ErrInvalidDateRange indicates that the start date is after the end date.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidEventType indicates an event type outside the allowed set.
	ErrInvalidEventType = errors.New("invalid event type")

	// ErrInvalidSymbol indicates an empty or malformed ticker symbol.
	ErrInvalidSymbol = errors.New("symbol is required")

	// ErrInvalidTaskType indicates a task type outside the allowed set.
	ErrInvalidTaskType = errors.New("invalid task type")

	// ErrNegativeShares indicates a shares field with an invalid negative value.
	ErrNegativeShares = errors.New("shares cannot be negative")

	// ErrNegativePrice indicates a price field with an invalid negative value.
	ErrNegativePrice = errors.New("price cannot be negative")
)

// Operation failure errors represent system-level failures, not missing
// entities or validation issues.
var (
	ErrFailedToRetrievePrices    = errors.New("failed to retrieve price history")
	ErrFailedToRetrieveDividends = errors.New("failed to retrieve dividends")
	ErrFailedToRetrieveLogs      = errors.New("failed to retrieve logs")
	ErrQueueFull                 = errors.New("task queue is full")
	ErrWorkerStopped             = errors.New("worker is stopped")
)
