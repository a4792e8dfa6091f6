// Package worker implements the background worker that owns all derived
// portfolio state. It sequences the startup pipeline (prefetch, dividend
// ingestion, value warming, journal build), then services an on-demand task
// queue while running two periodic timers. Nothing in here is allowed to crash
// the process: every per-item failure is contained and reported as a progress
// message.
package worker

import (
	"context"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/apperrors"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/market"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/repository"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/service"
)

const (
	// pollTimeout is how long the loop blocks on the task queue before
	// checking the periodic timers. A slow task delays but never skips a
	// pending timer; it fires on the next loop iteration.
	pollTimeout = 500 * time.Millisecond

	taskQueueSize = 256
)

// Worker is the single long-lived owner of the derivation pipeline and of all
// derived cache writes.
type Worker struct {
	portfolioRepo *repository.PortfolioRepository
	values        *service.ValuesService
	dividends     *service.DividendService
	journal       *service.JournalService
	gateway       *market.Gateway

	hub   *ProgressHub
	tasks chan model.Task

	maintenanceInterval time.Duration
	realtimeInterval    time.Duration

	// stopped is read by Enqueue from handler goroutines while the loop
	// goroutine writes it.
	stopped atomic.Bool
}

// New creates a worker. Intervals at zero fall back to the defaults
// (180s maintenance, 60s realtime).
func New(
	portfolioRepo *repository.PortfolioRepository,
	values *service.ValuesService,
	dividends *service.DividendService,
	journal *service.JournalService,
	gateway *market.Gateway,
	hub *ProgressHub,
	maintenanceInterval, realtimeInterval time.Duration,
) *Worker {
	if maintenanceInterval <= 0 {
		maintenanceInterval = 180 * time.Second
	}
	if realtimeInterval <= 0 {
		realtimeInterval = 60 * time.Second
	}
	return &Worker{
		portfolioRepo:       portfolioRepo,
		values:              values,
		dividends:           dividends,
		journal:             journal,
		gateway:             gateway,
		hub:                 hub,
		tasks:               make(chan model.Task, taskQueueSize),
		maintenanceInterval: maintenanceInterval,
		realtimeInterval:    realtimeInterval,
	}
}

// Hub returns the worker's progress hub.
func (w *Worker) Hub() *ProgressHub {
	return w.hub
}

// Enqueue adds a task to the queue without blocking.
func (w *Worker) Enqueue(task model.Task) error {
	if w.stopped.Load() {
		return apperrors.ErrWorkerStopped
	}
	select {
	case w.tasks <- task:
		return nil
	default:
		return apperrors.ErrQueueFull
	}
}

// Run executes the startup sequence and then the task loop until a stop task
// arrives or the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.startup(ctx)
	return w.loop(ctx)
}

// startup: prefetch every known symbol, mark everything dirty so values are
// recomputed with the freshly cached data, then ingest dividends, warm values
// and rebuild journals per portfolio file.
func (w *Worker) startup(ctx context.Context) {
	symbols, err := w.collectAllSymbols()
	if err != nil {
		w.hub.Publish(model.Progress{Type: model.ProgressPrefetchFatal, Error: err.Error()})
	}
	total := len(symbols)
	w.hub.Publish(model.Progress{Type: model.ProgressPrefetchStart, Total: total})

	done := 0
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return
		}
		if err := w.gateway.PrefetchSymbol(ctx, symbol); err != nil {
			w.hub.Publish(model.Progress{Type: model.ProgressPrefetchError, Symbol: symbol, Error: err.Error()})
		}
		done++
		if done == total || done%5 == 0 {
			w.hub.Publish(model.Progress{Type: model.ProgressPrefetchProgress, Done: done, Total: total})
		}
	}
	w.hub.Publish(model.Progress{Type: model.ProgressPrefetchDone, Total: total})

	for _, symbol := range symbols {
		if err := w.values.MarkDirty(symbol); err != nil {
			log.Printf("worker: failed to mark %s dirty: %v", symbol, err)
		}
	}

	for _, path := range w.portfolioRepo.List() {
		added, err := w.dividends.IngestFile(ctx, path)
		if err != nil {
			w.hub.Publish(model.Progress{Type: model.ProgressDividendsError, Path: path, Error: err.Error()})
			continue
		}
		w.hub.Publish(model.Progress{Type: model.ProgressDividendsIngest, Path: path, Added: added})
	}

	for _, path := range w.portfolioRepo.List() {
		updated, err := w.values.Warm(ctx, path, true)
		if err != nil {
			w.hub.Publish(model.Progress{Type: model.ProgressValuesError, Path: path, Error: err.Error()})
			continue
		}
		w.hub.Publish(model.Progress{Type: model.ProgressValuesWarmed, Path: path, Updated: updated})
	}

	for _, path := range w.portfolioRepo.List() {
		if err := w.journal.Build(path); err != nil {
			w.hub.Publish(model.Progress{Type: model.ProgressJournalError, Path: path, Error: err.Error()})
			continue
		}
		w.hub.Publish(model.Progress{Type: model.ProgressJournalRebuilt, Path: path})
	}

	w.hub.Publish(model.Progress{Type: model.ProgressStartupComplete})
}

// loop services the task queue with a blocking-with-timeout receive so the two
// periodic timers can be checked once per iteration without a timer goroutine.
func (w *Worker) loop(ctx context.Context) error {
	lastMaintenance := time.Now()
	var lastRealtime time.Time

	for {
		var task *model.Task
		select {
		case <-ctx.Done():
			w.stopped.Store(true)
			return ctx.Err()
		case t := <-w.tasks:
			task = &t
		case <-time.After(pollTimeout):
		}

		now := time.Now()
		if now.Sub(lastMaintenance) > w.maintenanceInterval {
			w.runMaintenance(ctx)
			lastMaintenance = now
		}
		if now.Sub(lastRealtime) > w.realtimeInterval {
			w.refreshRealtime(ctx, false)
			lastRealtime = now
		}

		if task == nil {
			continue
		}

		switch task.Type {
		case model.TaskStop:
			w.hub.Publish(model.Progress{Type: model.ProgressWorkerStopping})
			w.stopped.Store(true)
			return nil
		case model.TaskWarmValues:
			w.handleWarmValues(ctx, task)
		case model.TaskIngestDividends:
			w.handleIngestDividends(ctx, task)
		case model.TaskPrefetchSymbol:
			w.handlePrefetchSymbol(ctx, task)
		case model.TaskRealtimeUpdate:
			w.refreshRealtime(ctx, true)
		default:
			// Unknown task types are ignored for forward compatibility.
		}
	}
}

// runMaintenance warms values for every portfolio file and rebuilds journals
// where anything actually changed.
func (w *Worker) runMaintenance(ctx context.Context) {
	for _, path := range w.portfolioRepo.List() {
		updated, err := w.values.Warm(ctx, path, true)
		if err != nil {
			w.hub.Publish(model.Progress{Type: model.ProgressMaintenanceError, Path: path, Error: err.Error()})
			continue
		}
		if updated == 0 {
			continue
		}
		w.hub.Publish(model.Progress{Type: model.ProgressValuesWarmed, Path: path, Updated: updated})
		if err := w.journal.Build(path); err != nil {
			w.hub.Publish(model.Progress{Type: model.ProgressMaintenanceError, Path: path, Error: err.Error()})
			continue
		}
		w.hub.Publish(model.Progress{Type: model.ProgressJournalRebuilt, Path: path})
	}
}

// refreshRealtime updates the realtime snapshot for every known symbol,
// tolerating per-symbol failures.
func (w *Worker) refreshRealtime(ctx context.Context, report bool) {
	symbols, _ := w.collectAllSymbols()
	updatedAny := false
	for _, symbol := range symbols {
		updated, err := w.gateway.UpdateRealtime(ctx, symbol)
		if err != nil {
			w.hub.Publish(model.Progress{Type: model.ProgressRealtimeError, Symbol: symbol, Error: err.Error()})
			continue
		}
		if updated {
			updatedAny = true
			w.hub.Publish(model.Progress{Type: model.ProgressRealtimeUpdated, Symbol: symbol})
		}
	}
	if report {
		if updatedAny {
			w.hub.Publish(model.Progress{Type: model.ProgressRealtimeDone, Count: len(symbols)})
		}
		return
	}
	if len(symbols) > 0 {
		w.hub.Publish(model.Progress{Type: model.ProgressRealtimeBatch})
	}
}

func (w *Worker) handleWarmValues(ctx context.Context, task *model.Task) {
	preferCache := true
	if task.PreferCache != nil {
		preferCache = *task.PreferCache
	}
	paths := w.taskPaths(task)

	totalUpdated := 0
	for _, path := range paths {
		updated, err := w.values.Warm(ctx, path, preferCache)
		if err != nil {
			w.hub.Publish(model.Progress{Type: model.ProgressValuesError, Path: path, Error: err.Error()})
			continue
		}
		if err := w.journal.Build(path); err != nil {
			w.hub.Publish(model.Progress{Type: model.ProgressValuesError, Path: path, Error: err.Error()})
			continue
		}
		totalUpdated += updated
		w.hub.Publish(model.Progress{Type: model.ProgressValuesWarmed, Path: path, Updated: updated})
		w.hub.Publish(model.Progress{Type: model.ProgressJournalRebuilt, Path: path})
	}
	if totalUpdated > 0 {
		w.hub.Publish(model.Progress{Type: model.ProgressValuesDone, Updated: totalUpdated})
		w.touchAll(paths)
	}
}

func (w *Worker) handleIngestDividends(ctx context.Context, task *model.Task) {
	paths := w.taskPaths(task)

	totalAdded := 0
	for _, path := range paths {
		added, err := w.dividends.IngestFile(ctx, path)
		if err != nil {
			w.hub.Publish(model.Progress{Type: model.ProgressDividendsError, Path: path, Error: err.Error()})
			continue
		}
		if added > 0 {
			// New dividends can change valuation through DRIP purchases.
			if _, err := w.values.Warm(ctx, path, true); err != nil {
				w.hub.Publish(model.Progress{Type: model.ProgressValuesError, Path: path, Error: err.Error()})
			}
			if err := w.journal.Build(path); err != nil {
				w.hub.Publish(model.Progress{Type: model.ProgressJournalError, Path: path, Error: err.Error()})
			}
		}
		totalAdded += added
		w.hub.Publish(model.Progress{Type: model.ProgressDividendsIngest, Path: path, Added: added})
		w.hub.Publish(model.Progress{Type: model.ProgressJournalRebuilt, Path: path})
	}
	if totalAdded > 0 {
		w.hub.Publish(model.Progress{Type: model.ProgressDividendsDone, Added: totalAdded})
		w.touchAll(paths)
	}
}

func (w *Worker) handlePrefetchSymbol(ctx context.Context, task *model.Task) {
	symbol := task.Symbol
	if symbol == "" {
		return
	}
	if err := w.gateway.PrefetchSymbol(ctx, symbol); err != nil {
		w.hub.Publish(model.Progress{Type: model.ProgressPrefetchError, Symbol: symbol, Error: err.Error()})
		return
	}
	w.hub.Publish(model.Progress{Type: model.ProgressPrefetchOne, Symbol: symbol})
}

// taskPaths resolves a task's target: one portfolio file or all of them.
func (w *Worker) taskPaths(task *model.Task) []string {
	if task.Path != "" {
		return []string{task.Path}
	}
	return w.portfolioRepo.List()
}

// touchAll bumps portfolio mtimes after task-triggered changes so a polling
// UI reloads the files. Costs at most one redundant recompute on the next
// maintenance tick.
func (w *Worker) touchAll(paths []string) {
	for _, path := range paths {
		if err := w.portfolioRepo.Touch(path); err != nil {
			log.Printf("worker: failed to touch %s: %v", path, err)
		}
	}
}

// collectAllSymbols unions the holdings of every portfolio file, sorted. The
// error is non-nil only when portfolio files exist and none of them loaded.
func (w *Worker) collectAllSymbols() ([]string, error) {
	set := map[string]bool{}
	paths := w.portfolioRepo.List()
	var firstErr error
	loaded := 0
	for _, path := range paths {
		portfolio, err := w.portfolioRepo.Load(path)
		if err != nil {
			log.Printf("worker: failed to load %s: %v", path, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		loaded++
		for _, symbol := range portfolio.Symbols() {
			set[symbol] = true
		}
	}
	symbols := make([]string, 0, len(set))
	for symbol := range set {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	if len(paths) > 0 && loaded == 0 {
		return symbols, firstErr
	}
	return symbols, nil
}
