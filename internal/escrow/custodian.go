// Package escrow holds staked value on behalf of markets. Each market
// gets its own vault; moving value out of a vault requires a
// market-scoped authorization capability that only the engine can mint.
package escrow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInsufficientFunds is returned when a payer's balance cannot cover a deposit
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrBadAuthorization is returned when a withdrawal carries a capability
// that was not minted for the vault's market. Withdrawals fail closed.
var ErrBadAuthorization = errors.New("invalid vault authorization")

// Authorization is an opaque vault capability. It is derivable only from
// the market id plus the engine's vault key, never handed to external
// callers.
type Authorization string

// MintAuthorization derives the capability for one market's vault:
// hex(HMAC-SHA256(key, "vault:<market_id>")).
func MintAuthorization(key []byte, marketID int64) Authorization {
	h := hmac.New(sha256.New, key)
	fmt.Fprintf(h, "vault:%d", marketID)
	return Authorization(hex.EncodeToString(h.Sum(nil)))
}

// Custodian is the value-custody collaborator. Implementations join the
// caller's transaction so a transfer commits or rolls back together with
// the bookkeeping that depends on it.
type Custodian interface {
	// OpenVault creates the escrow vault for a new market
	OpenVault(ctx context.Context, tx *sql.Tx, marketID int64) error

	// Deposit moves amount from the payer's account into the market's vault
	Deposit(ctx context.Context, tx *sql.Tx, payer, marketID, amount int64) error

	// Withdraw moves amount from the market's vault to the payee. The
	// authorization must match the vault's market or the call fails.
	Withdraw(ctx context.Context, tx *sql.Tx, marketID, payee, amount int64, auth Authorization) error
}
