package storage

import (
	"time"
)

// Registry is the process-wide singleton that issues market ids and
// records the deployment authority. There is exactly one row.
type Registry struct {
	Authority   int64 `json:"authority" db:"authority"`
	MarketCount int64 `json:"market_count" db:"market_count"`
}

// Market represents one betting question with its parimutuel pools.
// Outcomes and OutcomePools always have the same length (2..10) and the
// length is fixed at creation.
type Market struct {
	ID                 int64     `json:"id" db:"id"`
	Creator            int64     `json:"creator" db:"creator"`
	Question           string    `json:"question" db:"question"`
	Outcomes           []string  `json:"outcomes" db:"outcomes"`
	OutcomePools       []int64   `json:"outcome_pools" db:"outcome_pools"`
	ResolutionDeadline time.Time `json:"resolution_deadline" db:"resolution_deadline"`
	MinWager           int64     `json:"min_wager" db:"min_wager"`
	Resolved           bool      `json:"resolved" db:"resolved"`
	WinningOutcome     int       `json:"winning_outcome,omitempty" db:"winning_outcome"` // valid only when Resolved
	TotalPool          int64     `json:"total_pool" db:"total_pool"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// Wager represents a single stake on one outcome of one market.
// Immutable after creation except for the Claimed flag, which flips to
// true exactly once.
type Wager struct {
	ID           int64     `json:"id" db:"id"`
	Ticket       string    `json:"ticket" db:"ticket"` // external reference handed to the bettor
	Owner        int64     `json:"owner" db:"owner"`
	MarketID     int64     `json:"market_id" db:"market_id"`
	OutcomeIndex int       `json:"outcome_index" db:"outcome_index"`
	Amount       int64     `json:"amount" db:"amount"`
	Claimed      bool      `json:"claimed" db:"claimed"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Account is a participant's ledger account. Account ids are assigned
// externally (they arrive in the auth token) and created on first use.
type Account struct {
	ID        int64     `json:"id" db:"id"`
	Balance   int64     `json:"balance" db:"balance"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// LedgerEntry records one balance movement on an account or vault
type LedgerEntry struct {
	ID          int64     `json:"id" db:"id"`
	AccountID   int64     `json:"account_id" db:"account_id"`
	Amount      int64     `json:"amount" db:"amount"`           // can be negative
	SourceType  string    `json:"source_type" db:"source_type"` // 'OPENING_CREDIT', 'BET', 'WIN_PAYOUT'
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
