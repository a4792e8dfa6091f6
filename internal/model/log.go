package model

import "time"

// LogLevel represents the severity of a worker log entry.
type LogLevel string

// Supported log levels.
const (
	LogDebug   LogLevel = "debug"
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// ValidLogLevels contains the allowed log level values.
var ValidLogLevels = map[LogLevel]bool{
	LogDebug: true, LogInfo: true, LogWarning: true, LogError: true,
}

// LogEntry is one persisted worker log record. Progress messages are archived
// here so the developer endpoint can reconstruct what the worker did after the
// in-memory progress buffer has been drained.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Category  string    `json:"category"` // subsystem: prefetch, values, dividends, journal, realtime, worker
	Source    string    `json:"source"`   // symbol or portfolio path the entry concerns
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
}

// LogFilters narrows a log query. All fields are optional.
type LogFilters struct {
	Levels     []string
	Categories []string
	StartDate  *time.Time
	EndDate    *time.Time
	Source     string
	Message    string
	SortDesc   bool
	Limit      int
}
