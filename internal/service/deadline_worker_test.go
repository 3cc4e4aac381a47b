package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"betmarkets/internal/events"
	"betmarkets/internal/storage"
)

type recordingNotifier struct {
	mu  sync.Mutex
	due []events.ResolutionDue
}

func (r *recordingNotifier) MarketCreated(events.MarketCreated)   {}
func (r *recordingNotifier) BetPlaced(events.BetPlaced)           {}
func (r *recordingNotifier) MarketResolved(events.MarketResolved) {}
func (r *recordingNotifier) PayoutClaimed(events.PayoutClaimed)   {}

func (r *recordingNotifier) ResolutionDue(ev events.ResolutionDue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.due = append(r.due, ev)
}

func (r *recordingNotifier) dueCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.due)
}

func setupWorker(t *testing.T) (*DeadlineWorker, *storage.Store, *recordingNotifier) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	rec := &recordingNotifier{}
	worker := NewDeadlineWorker(store, rec, time.Hour)
	t.Cleanup(worker.Stop)
	return worker, store, rec
}

func insertWorkerMarket(t *testing.T, store *storage.Store, id int64, deadline time.Time, resolved bool) {
	t.Helper()
	ctx := context.Background()

	m := &storage.Market{
		ID: id, Creator: 1, Question: "q",
		Outcomes: []string{"Yes", "No"}, OutcomePools: []int64{0, 0},
		ResolutionDeadline: deadline,
		CreatedAt:          deadline.Add(-time.Hour),
	}
	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.InsertMarketTx(ctx, tx, m); err != nil {
		t.Fatalf("InsertMarketTx failed: %v", err)
	}
	if resolved {
		if _, err := store.MarkResolvedTx(ctx, tx, id, 0); err != nil {
			t.Fatalf("MarkResolvedTx failed: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestSweepNotifiesOverdueMarkets(t *testing.T) {
	worker, store, rec := setupWorker(t)
	now := time.Unix(1_750_000_000, 0).UTC()
	worker.SetClock(func() time.Time { return now })

	insertWorkerMarket(t, store, 0, now.Add(-time.Hour), false) // overdue
	insertWorkerMarket(t, store, 1, now.Add(time.Hour), false)  // still open
	insertWorkerMarket(t, store, 2, now.Add(-time.Hour), true)  // already resolved

	worker.Sweep()

	if rec.dueCount() != 1 {
		t.Fatalf("Expected 1 notification, got %d: %+v", rec.dueCount(), rec.due)
	}
	if rec.due[0].MarketID != 0 {
		t.Errorf("Expected notification for market 0, got %d", rec.due[0].MarketID)
	}
	if rec.due[0].Creator != 1 {
		t.Errorf("Expected creator 1, got %d", rec.due[0].Creator)
	}
}

func TestSweepNotifiesEachMarketOnce(t *testing.T) {
	worker, store, rec := setupWorker(t)
	now := time.Unix(1_750_000_000, 0).UTC()
	worker.SetClock(func() time.Time { return now })

	insertWorkerMarket(t, store, 0, now.Add(-time.Hour), false)

	worker.Sweep()
	worker.Sweep()

	if rec.dueCount() != 1 {
		t.Errorf("Expected 1 notification across repeated sweeps, got %d", rec.dueCount())
	}
}

func TestSweepPicksUpNewlyOverdueMarkets(t *testing.T) {
	worker, store, rec := setupWorker(t)
	now := time.Unix(1_750_000_000, 0).UTC()
	worker.SetClock(func() time.Time { return now })

	insertWorkerMarket(t, store, 0, now.Add(30*time.Minute), false)

	worker.Sweep()
	if rec.dueCount() != 0 {
		t.Fatalf("Expected no notification before the deadline, got %d", rec.dueCount())
	}

	// Advance past the deadline
	now = now.Add(time.Hour)
	worker.Sweep()
	if rec.dueCount() != 1 {
		t.Errorf("Expected notification after deadline passed, got %d", rec.dueCount())
	}
}
