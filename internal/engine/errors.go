package engine

import (
	"errors"
)

// Every operation fails with exactly one of these; no operation commits
// any state change once one of them is detected.
var (
	// Initialize
	ErrAlreadyInitialized = errors.New("platform already initialized")
	ErrNotInitialized     = errors.New("platform not initialized")

	// CreateMarket
	ErrInsufficientOutcomes  = errors.New("market needs at least 2 outcomes")
	ErrTooManyOutcomes       = errors.New("market can have at most 10 outcomes")
	ErrInvalidResolutionTime = errors.New("resolution time must be in the future")

	// PlaceBet
	ErrMarketResolved = errors.New("market is already resolved")
	ErrBettingClosed  = errors.New("betting period has ended")
	ErrBetTooSmall    = errors.New("bet amount is below minimum")
	ErrInvalidOutcome = errors.New("invalid outcome index")

	// ResolveMarket
	ErrUnauthorized          = errors.New("unauthorized")
	ErrMarketAlreadyResolved = errors.New("market is already resolved")
	ErrTooEarlyToResolve     = errors.New("too early to resolve market")

	// ClaimPayout
	ErrMarketNotResolved = errors.New("market is not resolved yet")
	ErrAlreadyClaimed    = errors.New("payout already claimed")
	ErrLosingBet         = errors.New("this bet is on a losing outcome")
	ErrNoPayoutAvailable = errors.New("no payout available")

	// Lookups
	ErrMarketNotFound = errors.New("market not found")
	ErrWagerNotFound  = errors.New("wager not found")
)
