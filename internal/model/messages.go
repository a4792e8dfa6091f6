package model

import "time"

// TaskType identifies an on-demand job sent to the background worker.
type TaskType string

// Task types accepted by the worker. Unknown types are ignored so older UIs
// can talk to newer workers.
const (
	TaskWarmValues      TaskType = "warm_values"
	TaskIngestDividends TaskType = "ingest_dividends"
	TaskPrefetchSymbol  TaskType = "prefetch_symbol"
	TaskRealtimeUpdate  TaskType = "realtime:update_all"
	TaskStop            TaskType = "stop"
)

// ValidTaskTypes contains the task types accepted over the API.
var ValidTaskTypes = map[TaskType]bool{
	TaskWarmValues:      true,
	TaskIngestDividends: true,
	TaskPrefetchSymbol:  true,
	TaskRealtimeUpdate:  true,
	TaskStop:            true,
}

// Task is one message on the UI-to-worker queue.
type Task struct {
	ID     string   `json:"id"`
	Type   TaskType `json:"type"`
	Path   string   `json:"path,omitempty"`   // warm_values, ingest_dividends: empty means all portfolios
	Symbol string   `json:"symbol,omitempty"` // prefetch_symbol
	// PreferCache keeps warm_values off the network where the price cache
	// suffices. Nil means true.
	PreferCache *bool `json:"preferCache,omitempty"`
}

// Progress message types follow the <subsystem>:<phase> convention. The UI
// treats unrecognized types as no-ops.
const (
	ProgressPrefetchStart    = "prefetch:start"
	ProgressPrefetchProgress = "prefetch:progress"
	ProgressPrefetchDone     = "prefetch:done"
	ProgressPrefetchOne      = "prefetch:one"
	ProgressPrefetchError    = "prefetch:error"
	ProgressPrefetchFatal    = "prefetch:fatal"
	ProgressDividendsIngest  = "dividends:ingested"
	ProgressDividendsDone    = "dividends:done"
	ProgressDividendsError   = "dividends:error"
	ProgressValuesWarmed     = "values:warmed"
	ProgressValuesDone       = "values:done"
	ProgressValuesError      = "values:error"
	ProgressJournalRebuilt   = "journal:rebuilt"
	ProgressJournalError     = "journal:error"
	ProgressMaintenanceError = "maintenance:error"
	ProgressRealtimeUpdated  = "realtime:updated"
	ProgressRealtimeBatch    = "realtime:batch"
	ProgressRealtimeDone     = "realtime:done"
	ProgressRealtimeError    = "realtime:error"
	ProgressStartupComplete  = "startup:complete"
	ProgressWorkerStopping   = "worker:stopping"
)

// Progress is one message on the worker-to-UI queue. Seq is assigned by the
// progress hub and strictly increases; the UI polls with an `after` cursor.
type Progress struct {
	Seq     int64     `json:"seq"`
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Path    string    `json:"path,omitempty"`
	Symbol  string    `json:"symbol,omitempty"`
	Error   string    `json:"error,omitempty"`
	Done    int       `json:"done,omitempty"`
	Total   int       `json:"total,omitempty"`
	Added   int       `json:"added,omitempty"`
	Updated int       `json:"updated,omitempty"`
	Count   int       `json:"count,omitempty"`
}
