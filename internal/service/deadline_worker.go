// Package service holds background tasks that run alongside the engine.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"betmarkets/internal/events"
	"betmarkets/internal/logger"
	"betmarkets/internal/storage"
)

// DeadlineWorker periodically looks for unresolved markets whose
// deadline has passed and emits a ResolutionDue notification for each.
// It changes no state: "awaiting resolution" is a derived phase, and
// only the creator's explicit resolve call moves a market out of it.
type DeadlineWorker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	ticker   *time.Ticker
	store    *storage.Store
	notifier events.Notifier
	now      func() time.Time

	mu       sync.Mutex
	notified map[int64]bool // reminders already sent this process lifetime
}

// NewDeadlineWorker creates a worker ticking at the given interval
func NewDeadlineWorker(store *storage.Store, notifier events.Notifier, interval time.Duration) *DeadlineWorker {
	ctx, cancel := context.WithCancel(context.Background())
	if notifier == nil {
		notifier = events.Multi{}
	}
	return &DeadlineWorker{
		ctx:      ctx,
		cancel:   cancel,
		ticker:   time.NewTicker(interval),
		store:    store,
		notifier: notifier,
		now:      time.Now,
		notified: make(map[int64]bool),
	}
}

// SetClock overrides the worker's time source (tests)
func (w *DeadlineWorker) SetClock(now func() time.Time) {
	w.now = now
}

// Start begins the background worker
func (w *DeadlineWorker) Start() {
	logger.Info("deadline_worker_started", "")

	// Run immediately on start
	w.Sweep()

	go func() {
		for {
			select {
			case <-w.ticker.C:
				w.Sweep()
			case <-w.ctx.Done():
				logger.Info("deadline_worker_stopped", "")
				return
			}
		}
	}()
}

// Stop stops the background worker
func (w *DeadlineWorker) Stop() {
	w.ticker.Stop()
	w.cancel()
}

// Sweep emits ResolutionDue for every unresolved market past its
// deadline that has not been notified yet. Exported so tests can drive
// it without the ticker.
func (w *DeadlineWorker) Sweep() {
	markets, err := w.store.ListAwaitingResolution(w.ctx, w.now())
	if err != nil {
		logger.Error("deadline_worker_query_failed", err)
		return
	}

	for _, m := range markets {
		w.mu.Lock()
		seen := w.notified[m.ID]
		if !seen {
			w.notified[m.ID] = true
		}
		w.mu.Unlock()
		if seen {
			continue
		}

		logger.Debug(m.Creator, "resolution_due", fmt.Sprintf("market_id=%d deadline=%s", m.ID, m.ResolutionDeadline.Format(time.RFC3339)))
		w.notifier.ResolutionDue(events.ResolutionDue{
			MarketID: m.ID,
			Creator:  m.Creator,
			Question: m.Question,
			Deadline: m.ResolutionDeadline,
		})
	}
}
