// Package events defines the notifications the engine emits for
// external observers. Notifiers are fire-and-forget: engine state never
// depends on delivery.
package events

import (
	"time"
)

// MarketCreated is emitted after a market is committed
type MarketCreated struct {
	MarketID  int64     `json:"market_id"`
	Authority int64     `json:"authority"`
	Question  string    `json:"question"`
	Outcomes  []string  `json:"outcomes"`
	Deadline  time.Time `json:"deadline"`
}

// BetPlaced is emitted after a wager and its deposit are committed
type BetPlaced struct {
	Bettor       int64  `json:"bettor"`
	MarketID     int64  `json:"market_id"`
	OutcomeIndex int    `json:"outcome_index"`
	Amount       int64  `json:"amount"`
	Ticket       string `json:"ticket"`
}

// MarketResolved is emitted after a market is frozen with its winner
type MarketResolved struct {
	MarketID           int64  `json:"market_id"`
	WinningOutcome     int    `json:"winning_outcome"`
	WinningOutcomeName string `json:"winning_outcome_name"`
}

// PayoutClaimed is emitted after a winning wager is redeemed
type PayoutClaimed struct {
	Bettor       int64 `json:"bettor"`
	MarketID     int64 `json:"market_id"`
	BetAmount    int64 `json:"bet_amount"`
	PayoutAmount int64 `json:"payout_amount"`
}

// ResolutionDue is emitted by the deadline worker when an unresolved
// market passes its deadline
type ResolutionDue struct {
	MarketID int64     `json:"market_id"`
	Creator  int64     `json:"creator"`
	Question string    `json:"question"`
	Deadline time.Time `json:"deadline"`
}

// Notifier receives engine notifications
type Notifier interface {
	MarketCreated(ev MarketCreated)
	BetPlaced(ev BetPlaced)
	MarketResolved(ev MarketResolved)
	PayoutClaimed(ev PayoutClaimed)
	ResolutionDue(ev ResolutionDue)
}

// Multi fans each notification out to every member. An empty Multi is a
// valid no-op notifier.
type Multi []Notifier

func (m Multi) MarketCreated(ev MarketCreated) {
	for _, n := range m {
		n.MarketCreated(ev)
	}
}

func (m Multi) BetPlaced(ev BetPlaced) {
	for _, n := range m {
		n.BetPlaced(ev)
	}
}

func (m Multi) MarketResolved(ev MarketResolved) {
	for _, n := range m {
		n.MarketResolved(ev)
	}
}

func (m Multi) PayoutClaimed(ev PayoutClaimed) {
	for _, n := range m {
		n.PayoutClaimed(ev)
	}
}

func (m Multi) ResolutionDue(ev ResolutionDue) {
	for _, n := range m {
		n.ResolutionDue(ev)
	}
}
