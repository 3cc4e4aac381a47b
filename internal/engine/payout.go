package engine

import (
	"github.com/holiman/uint256"
)

// Payout computes a winning wager's redemption amount:
// floor(amount * totalPool / winningPool). The product is taken at 256
// bits so amount * totalPool cannot overflow before the division. Since
// amount <= winningPool, the quotient never exceeds totalPool and fits
// back into an int64.
//
// A zero (or negative) winning pool yields 0. With today's lifecycle a
// winning wager implies winningPool >= amount > 0, but the guard stays:
// a future variant allowing wager cancellation would make it reachable.
func Payout(amount, totalPool, winningPool int64) int64 {
	if amount <= 0 || totalPool <= 0 || winningPool <= 0 {
		return 0
	}
	p := new(uint256.Int).Mul(
		uint256.NewInt(uint64(amount)),
		uint256.NewInt(uint64(totalPool)),
	)
	p.Div(p, uint256.NewInt(uint64(winningPool)))
	return int64(p.Uint64())
}
