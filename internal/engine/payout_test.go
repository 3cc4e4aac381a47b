package engine

import (
	"testing"
)

func TestPayoutProportionalShare(t *testing.T) {
	// Wager of 300 against a 400 total pool with a 300 winning pool
	// redeems the whole pool share: floor(300*400/300) = 400
	if got := Payout(300, 400, 300); got != 400 {
		t.Errorf("Payout(300, 400, 300) = %d, want 400", got)
	}
}

func TestPayoutTruncatesTowardZero(t *testing.T) {
	// floor(10*100/30) = 33
	if got := Payout(10, 100, 30); got != 33 {
		t.Errorf("Payout(10, 100, 30) = %d, want 33", got)
	}
}

func TestPayoutDustBound(t *testing.T) {
	// Three equal winning wagers of 10 against a 100 pool leave exactly
	// one unit of unclaimable dust: 3*33 = 99
	var sum int64
	for i := 0; i < 3; i++ {
		sum += Payout(10, 100, 30)
	}
	if sum != 99 {
		t.Errorf("sum of payouts = %d, want 99", sum)
	}
	if dust := int64(100) - sum; dust != 1 {
		t.Errorf("dust = %d, want 1", dust)
	}
}

func TestPayoutZeroWinningPool(t *testing.T) {
	if got := Payout(100, 400, 0); got != 0 {
		t.Errorf("Payout with zero winning pool = %d, want 0", got)
	}
}

func TestPayoutZeroAmount(t *testing.T) {
	if got := Payout(0, 400, 300); got != 0 {
		t.Errorf("Payout with zero amount = %d, want 0", got)
	}
}

func TestPayoutLargeValuesNoOverflow(t *testing.T) {
	// amount * totalPool here is ~4.5e37, far past int64 (and uint64);
	// the 256-bit intermediate must carry it. The quotient equals the
	// total pool because the single wager owns the whole winning pool.
	const big = int64(5_000_000_000_000_000_000) // 5e18
	const total = int64(9_000_000_000_000_000_000)
	if got := Payout(big, total, big); got != total {
		t.Errorf("Payout(%d, %d, %d) = %d, want %d", big, total, big, got, total)
	}
}

func TestPayoutNeverExceedsTotalPool(t *testing.T) {
	cases := []struct {
		amount, total, winning int64
	}{
		{1, 1000, 1},
		{500, 1000, 500},
		{999, 1000, 999},
		{1, 3, 2},
	}
	for _, c := range cases {
		got := Payout(c.amount, c.total, c.winning)
		if got > c.total {
			t.Errorf("Payout(%d, %d, %d) = %d exceeds total pool", c.amount, c.total, c.winning, got)
		}
	}
}
