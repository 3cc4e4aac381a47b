// Package engine implements the parimutuel market lifecycle: create,
// wager, resolve, claim. Every operation is atomic with respect to the
// market it touches; operations on different markets run independently.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"betmarkets/internal/escrow"
	"betmarkets/internal/events"
	"betmarkets/internal/logger"
	"betmarkets/internal/storage"

	"github.com/google/uuid"
)

const (
	// MinOutcomes is the smallest allowed outcome set
	MinOutcomes = 2
	// MaxOutcomes is the largest allowed outcome set
	MaxOutcomes = 10
)

// Engine orchestrates the four state-changing operations against the
// store and the escrow custodian. Per-market serialization is a mutex
// per market id; the SQLite transaction makes each operation
// all-or-nothing, custodian transfer included.
type Engine struct {
	store     *storage.Store
	custodian escrow.Custodian
	notifier  events.Notifier
	vaultKey  []byte
	now       func() time.Time

	mu          sync.Mutex
	marketLocks map[int64]*sync.Mutex
}

// New creates an engine. The vault key is the secret that vault
// authorizations are minted from; it must match the custodian's.
func New(store *storage.Store, custodian escrow.Custodian, notifier events.Notifier, vaultKey []byte) *Engine {
	if notifier == nil {
		notifier = events.Multi{}
	}
	return &Engine{
		store:       store,
		custodian:   custodian,
		notifier:    notifier,
		vaultKey:    vaultKey,
		now:         time.Now,
		marketLocks: make(map[int64]*sync.Mutex),
	}
}

// SetClock overrides the engine's time source. Tests use this to pin
// the boundary between "strictly before" and "at or after" the deadline.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Engine) marketLock(marketID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.marketLocks[marketID]
	if !ok {
		l = &sync.Mutex{}
		e.marketLocks[marketID] = l
	}
	return l
}

// Initialize creates the registry singleton with the deployment
// authority. Calling it twice fails with ErrAlreadyInitialized.
func (e *Engine) Initialize(ctx context.Context, authority int64) error {
	created, err := e.store.InitRegistry(ctx, authority)
	if err != nil {
		return err
	}
	if !created {
		return ErrAlreadyInitialized
	}
	logger.Info("platform_initialized", fmt.Sprintf("authority=%d", authority))
	return nil
}

// CreateMarket allocates a new open market, consuming one id from the
// registry. The id consumption, the market insert and the vault creation
// commit together.
func (e *Engine) CreateMarket(ctx context.Context, creator int64, question string, outcomes []string, deadline time.Time, minWager int64) (*storage.Market, error) {
	if len(outcomes) < MinOutcomes {
		return nil, ErrInsufficientOutcomes
	}
	if len(outcomes) > MaxOutcomes {
		return nil, ErrTooManyOutcomes
	}
	now := e.now()
	if !deadline.After(now) {
		return nil, ErrInvalidResolutionTime
	}

	reg, err := e.store.GetRegistry(ctx)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrNotInitialized
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := e.store.NextMarketIDTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	m := &storage.Market{
		ID:                 id,
		Creator:            creator,
		Question:           question,
		Outcomes:           append([]string(nil), outcomes...),
		OutcomePools:       make([]int64, len(outcomes)),
		ResolutionDeadline: deadline,
		MinWager:           minWager,
		TotalPool:          0,
		CreatedAt:          now,
	}
	if err := e.store.InsertMarketTx(ctx, tx, m); err != nil {
		return nil, err
	}
	if err := e.custodian.OpenVault(ctx, tx, m.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug(creator, "market_created", fmt.Sprintf("market_id=%d outcomes=%d deadline=%s", m.ID, len(outcomes), deadline.Format(time.RFC3339)))
	e.notifier.MarketCreated(events.MarketCreated{
		MarketID:  m.ID,
		Authority: m.Creator,
		Question:  m.Question,
		Outcomes:  m.Outcomes,
		Deadline:  m.ResolutionDeadline,
	})
	return m, nil
}

// PlaceBet stakes amount on one outcome. The deposit into the market's
// vault happens before the wager and pool update are committed; all of
// it commits or none of it does.
func (e *Engine) PlaceBet(ctx context.Context, bettor, marketID int64, outcomeIndex int, amount int64) (*storage.Wager, error) {
	lock := e.marketLock(marketID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := e.store.GetMarketTx(ctx, tx, marketID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMarketNotFound
	}

	now := e.now()
	if m.Resolved {
		return nil, ErrMarketResolved
	}
	if !now.Before(m.ResolutionDeadline) {
		return nil, ErrBettingClosed
	}
	if amount <= 0 || amount < m.MinWager {
		return nil, ErrBetTooSmall
	}
	if outcomeIndex < 0 || outcomeIndex >= len(m.Outcomes) {
		return nil, ErrInvalidOutcome
	}

	if err := e.custodian.Deposit(ctx, tx, bettor, marketID, amount); err != nil {
		return nil, err
	}

	w := &storage.Wager{
		Ticket:       uuid.NewString(),
		Owner:        bettor,
		MarketID:     marketID,
		OutcomeIndex: outcomeIndex,
		Amount:       amount,
		CreatedAt:    now,
	}
	if err := e.store.InsertWagerTx(ctx, tx, w); err != nil {
		return nil, err
	}
	if err := e.store.ApplyWagerTx(ctx, tx, m, outcomeIndex, amount); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug(bettor, "bet_placed", fmt.Sprintf("market_id=%d outcome=%d amount=%d ticket=%s", marketID, outcomeIndex, amount, w.Ticket))
	e.notifier.BetPlaced(events.BetPlaced{
		Bettor:       bettor,
		MarketID:     marketID,
		OutcomeIndex: outcomeIndex,
		Amount:       amount,
		Ticket:       w.Ticket,
	})
	return w, nil
}

// ResolveMarket freezes the market with its winning outcome. Only the
// creator may resolve, and only at or after the deadline. Pool values do
// not change.
func (e *Engine) ResolveMarket(ctx context.Context, caller, marketID int64, winningOutcome int) error {
	lock := e.marketLock(marketID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := e.store.GetMarketTx(ctx, tx, marketID)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrMarketNotFound
	}

	if caller != m.Creator {
		return ErrUnauthorized
	}
	if m.Resolved {
		return ErrMarketAlreadyResolved
	}
	if e.now().Before(m.ResolutionDeadline) {
		return ErrTooEarlyToResolve
	}
	if winningOutcome < 0 || winningOutcome >= len(m.Outcomes) {
		return ErrInvalidOutcome
	}

	ok, err := e.store.MarkResolvedTx(ctx, tx, marketID, winningOutcome)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMarketAlreadyResolved
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug(caller, "market_resolved", fmt.Sprintf("market_id=%d winning_outcome=%d", marketID, winningOutcome))
	e.notifier.MarketResolved(events.MarketResolved{
		MarketID:           marketID,
		WinningOutcome:     winningOutcome,
		WinningOutcomeName: m.Outcomes[winningOutcome],
	})
	return nil
}

// ClaimPayout redeems one winning wager, addressed by its ticket. The
// claimed flag is set before the vault withdrawal inside the same
// transaction, so a racing second claim is rejected no matter how the
// two interleave.
func (e *Engine) ClaimPayout(ctx context.Context, claimant int64, ticket string) (int64, error) {
	ref, err := e.store.GetWagerByTicket(ctx, ticket)
	if err != nil {
		return 0, err
	}
	if ref == nil {
		return 0, ErrWagerNotFound
	}

	lock := e.marketLock(ref.MarketID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := e.store.GetMarketTx(ctx, tx, ref.MarketID)
	if err != nil {
		return 0, err
	}
	if m == nil {
		return 0, ErrMarketNotFound
	}
	w, err := e.store.GetWagerByTicketTx(ctx, tx, ticket)
	if err != nil {
		return 0, err
	}
	if w == nil {
		return 0, ErrWagerNotFound
	}

	if !m.Resolved {
		return 0, ErrMarketNotResolved
	}
	if w.Claimed {
		return 0, ErrAlreadyClaimed
	}
	if claimant != w.Owner {
		return 0, ErrUnauthorized
	}
	if w.OutcomeIndex != m.WinningOutcome {
		return 0, ErrLosingBet
	}

	winningPool := m.OutcomePools[m.WinningOutcome]
	payout := Payout(w.Amount, m.TotalPool, winningPool)
	if payout == 0 {
		return 0, ErrNoPayoutAvailable
	}

	// Claimed flips before the transfer so a re-entrant or retried claim
	// against this record fails the check-and-set.
	ok, err := e.store.MarkClaimedTx(ctx, tx, w.ID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrAlreadyClaimed
	}

	auth := escrow.MintAuthorization(e.vaultKey, m.ID)
	if err := e.custodian.Withdraw(ctx, tx, m.ID, claimant, payout, auth); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug(claimant, "payout_claimed", fmt.Sprintf("market_id=%d ticket=%s bet=%d payout=%d", m.ID, ticket, w.Amount, payout))
	e.notifier.PayoutClaimed(events.PayoutClaimed{
		Bettor:       claimant,
		MarketID:     m.ID,
		BetAmount:    w.Amount,
		PayoutAmount: payout,
	})
	return payout, nil
}

// GetMarket returns a market by id
func (e *Engine) GetMarket(ctx context.Context, marketID int64) (*storage.Market, error) {
	m, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMarketNotFound
	}
	return m, nil
}

// ListOpenMarkets returns markets still accepting wagers
func (e *Engine) ListOpenMarkets(ctx context.Context) ([]*storage.Market, error) {
	return e.store.ListOpenMarkets(ctx, e.now())
}
