package escrow

import (
	"context"
	"crypto/hmac"
	"database/sql"
	"fmt"
	"time"

	"betmarkets/internal/storage"
)

// Ledger is the SQLite-backed Custodian. Account and vault balances live
// in the same database as the market records, so escrow movements commit
// atomically with the engine's bookkeeping.
type Ledger struct {
	store    *storage.Store
	vaultKey []byte
}

// NewLedger creates a ledger custodian. The vault key is the HMAC secret
// that withdrawals are verified against; it must not be empty.
func NewLedger(store *storage.Store, vaultKey []byte) (*Ledger, error) {
	if len(vaultKey) == 0 {
		return nil, fmt.Errorf("vault key must not be empty")
	}
	return &Ledger{store: store, vaultKey: vaultKey}, nil
}

// EnsureAccount creates the account with an opening credit if it does
// not exist yet, and returns it either way.
func (l *Ledger) EnsureAccount(ctx context.Context, accountID, openingBalance int64) (*storage.Account, error) {
	acct, err := l.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct != nil {
		return acct, nil
	}

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (id, balance, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, accountID, openingBalance, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if openingBalance > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transactions (account_id, amount, source_type, description, created_at)
			VALUES (?, ?, 'OPENING_CREDIT', 'Opening credit', ?)
		`, accountID, openingBalance, now)
		if err != nil {
			return nil, fmt.Errorf("failed to record opening credit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return l.GetAccount(ctx, accountID)
}

// GetAccount retrieves an account, or nil if it does not exist
func (l *Ledger) GetAccount(ctx context.Context, accountID int64) (*storage.Account, error) {
	var acct storage.Account
	var createdAt int64
	err := l.store.DB().QueryRowContext(ctx, `
		SELECT id, balance, created_at FROM accounts WHERE id = ?
	`, accountID).Scan(&acct.ID, &acct.Balance, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	acct.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &acct, nil
}

// VaultBalance returns the balance held in a market's vault
func (l *Ledger) VaultBalance(ctx context.Context, marketID int64) (int64, error) {
	var balance int64
	err := l.store.DB().QueryRowContext(ctx, `
		SELECT balance FROM vaults WHERE market_id = ?
	`, marketID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("vault for market %d not found", marketID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get vault balance: %w", err)
	}
	return balance, nil
}

// OpenVault creates the escrow vault row for a new market
func (l *Ledger) OpenVault(ctx context.Context, tx *sql.Tx, marketID int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO vaults (market_id, balance) VALUES (?, 0)
	`, marketID)
	if err != nil {
		return fmt.Errorf("failed to open vault for market %d: %w", marketID, err)
	}
	return nil
}

// Deposit moves amount from the payer into the market's vault. Fails
// with ErrInsufficientFunds when the payer's balance cannot cover it;
// nothing moves on failure.
func (l *Ledger) Deposit(ctx context.Context, tx *sql.Tx, payer, marketID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive, got %d", amount)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance - ? WHERE id = ? AND balance >= ?
	`, amount, payer, amount)
	if err != nil {
		return fmt.Errorf("failed to debit account %d: %w", payer, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		acct, err := l.getAccountTx(ctx, tx, payer)
		if err != nil {
			return err
		}
		if acct == nil {
			return fmt.Errorf("account %d not found", payer)
		}
		return ErrInsufficientFunds
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE vaults SET balance = balance + ? WHERE market_id = ?
	`, amount, marketID)
	if err != nil {
		return fmt.Errorf("failed to credit vault for market %d: %w", marketID, err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("vault for market %d not found", marketID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (account_id, amount, source_type, description, created_at)
		VALUES (?, ?, 'BET', ?, ?)
	`, payer, -amount, fmt.Sprintf("Stake on market #%d", marketID), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record deposit: %w", err)
	}

	return nil
}

// Withdraw moves amount from the market's vault to the payee. The
// authorization is recomputed from the vault key and compared in
// constant time; a mismatch aborts before anything moves.
func (l *Ledger) Withdraw(ctx context.Context, tx *sql.Tx, marketID, payee, amount int64, auth Authorization) error {
	if amount <= 0 {
		return fmt.Errorf("withdrawal amount must be positive, got %d", amount)
	}

	expected := MintAuthorization(l.vaultKey, marketID)
	if !hmac.Equal([]byte(expected), []byte(auth)) {
		return ErrBadAuthorization
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE vaults SET balance = balance - ? WHERE market_id = ? AND balance >= ?
	`, amount, marketID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit vault for market %d: %w", marketID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("vault for market %d cannot cover withdrawal of %d", marketID, amount)
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance + ? WHERE id = ?
	`, amount, payee)
	if err != nil {
		return fmt.Errorf("failed to credit account %d: %w", payee, err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("account %d not found", payee)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (account_id, amount, source_type, description, created_at)
		VALUES (?, ?, 'WIN_PAYOUT', ?, ?)
	`, payee, amount, fmt.Sprintf("Payout from market #%d", marketID), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record withdrawal: %w", err)
	}

	return nil
}

func (l *Ledger) getAccountTx(ctx context.Context, tx *sql.Tx, accountID int64) (*storage.Account, error) {
	var acct storage.Account
	var createdAt int64
	err := tx.QueryRowContext(ctx, `
		SELECT id, balance, created_at FROM accounts WHERE id = ?
	`, accountID).Scan(&acct.ID, &acct.Balance, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	acct.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &acct, nil
}
