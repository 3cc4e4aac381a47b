package events

import (
	"testing"

	"gopkg.in/telebot.v3"
)

type countingNotifier struct {
	created, placed, resolved, claimed, due int
}

func (c *countingNotifier) MarketCreated(MarketCreated)   { c.created++ }
func (c *countingNotifier) BetPlaced(BetPlaced)           { c.placed++ }
func (c *countingNotifier) MarketResolved(MarketResolved) { c.resolved++ }
func (c *countingNotifier) PayoutClaimed(PayoutClaimed)   { c.claimed++ }
func (c *countingNotifier) ResolutionDue(ResolutionDue)   { c.due++ }

func TestMultiFansOut(t *testing.T) {
	a := &countingNotifier{}
	b := &countingNotifier{}
	multi := Multi{a, b}

	multi.MarketCreated(MarketCreated{MarketID: 0})
	multi.BetPlaced(BetPlaced{MarketID: 0})
	multi.BetPlaced(BetPlaced{MarketID: 0})
	multi.MarketResolved(MarketResolved{MarketID: 0})
	multi.PayoutClaimed(PayoutClaimed{MarketID: 0})
	multi.ResolutionDue(ResolutionDue{MarketID: 0})

	for _, n := range []*countingNotifier{a, b} {
		if n.created != 1 || n.placed != 2 || n.resolved != 1 || n.claimed != 1 || n.due != 1 {
			t.Errorf("Unexpected counts: %+v", n)
		}
	}
}

func TestEmptyMultiIsNoOp(t *testing.T) {
	var multi Multi
	// Must not panic
	multi.MarketCreated(MarketCreated{})
	multi.BetPlaced(BetPlaced{})
	multi.MarketResolved(MarketResolved{})
	multi.PayoutClaimed(PayoutClaimed{})
	multi.ResolutionDue(ResolutionDue{})
}

func TestParseChannelID(t *testing.T) {
	if got := parseChannelID("-1001234567890"); got != telebot.ChatID(-1001234567890) {
		t.Errorf("Expected numeric chat id, got %v", got)
	}
	if got := parseChannelID("@markets"); got.Recipient() != "@markets" {
		t.Errorf("Expected @markets, got %q", got.Recipient())
	}
	// A bare channel name gets the @ prefix
	if got := parseChannelID("markets"); got.Recipient() != "@markets" {
		t.Errorf("Expected @markets, got %q", got.Recipient())
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("Expected unchanged string, got %q", got)
	}
	got := truncateString("this question is far too long", 14)
	if got != "this questi..." {
		t.Errorf("Unexpected truncation: %q", got)
	}
}
