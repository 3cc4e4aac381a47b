package storage

import (
	"context"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInitRegistry(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created, err := store.InitRegistry(ctx, 42)
	if err != nil {
		t.Fatalf("InitRegistry failed: %v", err)
	}
	if !created {
		t.Error("Expected first InitRegistry to create the row")
	}

	created, err = store.InitRegistry(ctx, 43)
	if err != nil {
		t.Fatalf("Second InitRegistry failed: %v", err)
	}
	if created {
		t.Error("Expected second InitRegistry to report not created")
	}

	reg, err := store.GetRegistry(ctx)
	if err != nil {
		t.Fatalf("GetRegistry failed: %v", err)
	}
	if reg == nil {
		t.Fatal("Expected registry, got nil")
	}
	if reg.Authority != 42 {
		t.Errorf("Expected authority 42 (first caller wins), got %d", reg.Authority)
	}
	if reg.MarketCount != 0 {
		t.Errorf("Expected market_count 0, got %d", reg.MarketCount)
	}
}

func TestGetRegistryBeforeInit(t *testing.T) {
	store := setupTestStore(t)

	reg, err := store.GetRegistry(context.Background())
	if err != nil {
		t.Fatalf("GetRegistry failed: %v", err)
	}
	if reg != nil {
		t.Errorf("Expected nil registry before init, got %+v", reg)
	}
}

func TestNextMarketID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	store.InitRegistry(ctx, 1)

	for want := int64(0); want < 3; want++ {
		tx, err := store.Begin(ctx)
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		id, err := store.NextMarketIDTx(ctx, tx)
		if err != nil {
			t.Fatalf("NextMarketIDTx failed: %v", err)
		}
		if id != want {
			t.Errorf("Expected id %d, got %d", want, id)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
	}
}

func TestNextMarketIDRollbackDoesNotConsume(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	store.InitRegistry(ctx, 1)

	tx, _ := store.Begin(ctx)
	if _, err := store.NextMarketIDTx(ctx, tx); err != nil {
		t.Fatalf("NextMarketIDTx failed: %v", err)
	}
	tx.Rollback()

	tx, _ = store.Begin(ctx)
	id, err := store.NextMarketIDTx(ctx, tx)
	if err != nil {
		t.Fatalf("NextMarketIDTx failed: %v", err)
	}
	tx.Commit()
	if id != 0 {
		t.Errorf("Expected rolled-back id to be reissued as 0, got %d", id)
	}
}

func insertTestMarket(t *testing.T, store *Store, m *Market) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.InsertMarketTx(ctx, tx, m); err != nil {
		t.Fatalf("InsertMarketTx failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestMarketRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	deadline := time.Unix(1_800_000_000, 0).UTC()
	m := &Market{
		ID:                 7,
		Creator:            1,
		Question:           "Will it rain tomorrow?",
		Outcomes:           []string{"Yes", "No", "Maybe"},
		OutcomePools:       []int64{0, 0, 0},
		ResolutionDeadline: deadline,
		MinWager:           5,
		CreatedAt:          time.Unix(1_700_000_000, 0).UTC(),
	}
	insertTestMarket(t, store, m)

	got, err := store.GetMarket(ctx, 7)
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected market, got nil")
	}
	if got.Question != m.Question {
		t.Errorf("Expected question %q, got %q", m.Question, got.Question)
	}
	if len(got.Outcomes) != 3 || got.Outcomes[2] != "Maybe" {
		t.Errorf("Unexpected outcomes: %v", got.Outcomes)
	}
	if len(got.OutcomePools) != 3 {
		t.Errorf("Unexpected pools: %v", got.OutcomePools)
	}
	if !got.ResolutionDeadline.Equal(deadline) {
		t.Errorf("Expected deadline %v, got %v", deadline, got.ResolutionDeadline)
	}
	if got.Resolved {
		t.Error("Expected new market to be unresolved")
	}
	if got.MinWager != 5 {
		t.Errorf("Expected min_wager 5, got %d", got.MinWager)
	}
}

func TestGetMarketMissing(t *testing.T) {
	store := setupTestStore(t)

	got, err := store.GetMarket(context.Background(), 99)
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing market, got %+v", got)
	}
}

func TestApplyWagerUpdatesBothPools(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := &Market{
		ID:                 0,
		Creator:            1,
		Question:           "q",
		Outcomes:           []string{"Yes", "No"},
		OutcomePools:       []int64{0, 0},
		ResolutionDeadline: time.Unix(1_800_000_000, 0),
		CreatedAt:          time.Unix(1_700_000_000, 0),
	}
	insertTestMarket(t, store, m)

	tx, _ := store.Begin(ctx)
	if err := store.ApplyWagerTx(ctx, tx, m, 1, 250); err != nil {
		t.Fatalf("ApplyWagerTx failed: %v", err)
	}
	tx.Commit()

	got, _ := store.GetMarket(ctx, 0)
	if got.OutcomePools[1] != 250 {
		t.Errorf("Expected pool[1] 250, got %d", got.OutcomePools[1])
	}
	if got.TotalPool != 250 {
		t.Errorf("Expected total_pool 250, got %d", got.TotalPool)
	}
}

func TestMarkResolved(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := &Market{
		ID:                 0,
		Creator:            1,
		Question:           "q",
		Outcomes:           []string{"Yes", "No"},
		OutcomePools:       []int64{10, 20},
		ResolutionDeadline: time.Unix(1_800_000_000, 0),
		TotalPool:          30,
		CreatedAt:          time.Unix(1_700_000_000, 0),
	}
	insertTestMarket(t, store, m)

	tx, _ := store.Begin(ctx)
	ok, err := store.MarkResolvedTx(ctx, tx, 0, 1)
	if err != nil {
		t.Fatalf("MarkResolvedTx failed: %v", err)
	}
	if !ok {
		t.Error("Expected first resolve to succeed")
	}
	tx.Commit()

	// Second resolve is rejected by the resolved = 0 guard
	tx, _ = store.Begin(ctx)
	ok, err = store.MarkResolvedTx(ctx, tx, 0, 0)
	if err != nil {
		t.Fatalf("MarkResolvedTx failed: %v", err)
	}
	if ok {
		t.Error("Expected second resolve to be rejected")
	}
	tx.Commit()

	got, _ := store.GetMarket(ctx, 0)
	if !got.Resolved {
		t.Error("Expected market to be resolved")
	}
	if got.WinningOutcome != 1 {
		t.Errorf("Expected winning outcome 1, got %d", got.WinningOutcome)
	}
	// Pool values are frozen by resolution
	if got.TotalPool != 30 || got.OutcomePools[0] != 10 || got.OutcomePools[1] != 20 {
		t.Errorf("Pools changed across resolve: %v total=%d", got.OutcomePools, got.TotalPool)
	}
}

func TestWagerRoundTripAndClaim(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := &Market{
		ID:                 0,
		Creator:            1,
		Question:           "q",
		Outcomes:           []string{"Yes", "No"},
		OutcomePools:       []int64{0, 0},
		ResolutionDeadline: time.Unix(1_800_000_000, 0),
		CreatedAt:          time.Unix(1_700_000_000, 0),
	}
	insertTestMarket(t, store, m)

	w := &Wager{
		Ticket:       "ticket-abc",
		Owner:        100,
		MarketID:     0,
		OutcomeIndex: 1,
		Amount:       50,
		CreatedAt:    time.Unix(1_700_000_100, 0).UTC(),
	}
	tx, _ := store.Begin(ctx)
	if err := store.InsertWagerTx(ctx, tx, w); err != nil {
		t.Fatalf("InsertWagerTx failed: %v", err)
	}
	tx.Commit()
	if w.ID == 0 {
		t.Error("Expected wager id to be assigned")
	}

	got, err := store.GetWagerByTicket(ctx, "ticket-abc")
	if err != nil {
		t.Fatalf("GetWagerByTicket failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected wager, got nil")
	}
	if got.Owner != 100 || got.OutcomeIndex != 1 || got.Amount != 50 || got.Claimed {
		t.Errorf("Unexpected wager: %+v", got)
	}

	// First claim flips the flag, second is rejected
	tx, _ = store.Begin(ctx)
	ok, err := store.MarkClaimedTx(ctx, tx, w.ID)
	if err != nil {
		t.Fatalf("MarkClaimedTx failed: %v", err)
	}
	if !ok {
		t.Error("Expected first claim to succeed")
	}
	ok, err = store.MarkClaimedTx(ctx, tx, w.ID)
	if err != nil {
		t.Fatalf("MarkClaimedTx failed: %v", err)
	}
	if ok {
		t.Error("Expected second claim to be rejected")
	}
	tx.Commit()

	got, _ = store.GetWagerByTicket(ctx, "ticket-abc")
	if !got.Claimed {
		t.Error("Expected wager to be claimed")
	}
}

func TestListMarketsByPhase(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_750_000_000, 0).UTC()

	open := &Market{
		ID: 0, Creator: 1, Question: "open",
		Outcomes: []string{"Yes", "No"}, OutcomePools: []int64{0, 0},
		ResolutionDeadline: now.Add(time.Hour), CreatedAt: now,
	}
	overdue := &Market{
		ID: 1, Creator: 1, Question: "overdue",
		Outcomes: []string{"Yes", "No"}, OutcomePools: []int64{0, 0},
		ResolutionDeadline: now.Add(-time.Hour), CreatedAt: now,
	}
	insertTestMarket(t, store, open)
	insertTestMarket(t, store, overdue)

	openList, err := store.ListOpenMarkets(ctx, now)
	if err != nil {
		t.Fatalf("ListOpenMarkets failed: %v", err)
	}
	if len(openList) != 1 || openList[0].Question != "open" {
		t.Errorf("Unexpected open markets: %+v", openList)
	}

	dueList, err := store.ListAwaitingResolution(ctx, now)
	if err != nil {
		t.Fatalf("ListAwaitingResolution failed: %v", err)
	}
	if len(dueList) != 1 || dueList[0].Question != "overdue" {
		t.Errorf("Unexpected awaiting markets: %+v", dueList)
	}

	// A market at exactly its deadline is awaiting resolution, not open
	atDeadline, err := store.ListAwaitingResolution(ctx, overdue.ResolutionDeadline)
	if err != nil {
		t.Fatalf("ListAwaitingResolution failed: %v", err)
	}
	if len(atDeadline) != 1 {
		t.Errorf("Expected market at exact deadline to await resolution, got %+v", atDeadline)
	}
}
