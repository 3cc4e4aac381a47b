package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database. All access goes through an explicit
// Store instance; there is no package-level connection.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at dbPath with WAL mode
// enabled and runs migrations. Use ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	path := dbPath
	if path != ":memory:" {
		abs, err := filepath.Abs(dbPath)
		if err != nil {
			return nil, err
		}
		path = abs
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer at a time; a single pooled connection also
	// keeps ":memory:" databases from silently splitting per connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// DB returns the underlying connection
func (s *Store) DB() *sql.DB {
	return s.db
}

// Begin starts a transaction with serializable isolation
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// migrate creates the necessary tables
func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS registry (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			authority INTEGER NOT NULL,
			market_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS markets (
			id INTEGER PRIMARY KEY,
			creator INTEGER NOT NULL,
			question TEXT NOT NULL,
			outcomes TEXT NOT NULL,
			outcome_pools TEXT NOT NULL,
			resolution_deadline INTEGER NOT NULL,
			min_wager INTEGER NOT NULL DEFAULT 0,
			resolved INTEGER NOT NULL DEFAULT 0,
			winning_outcome INTEGER,
			total_pool INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS wagers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket TEXT NOT NULL UNIQUE,
			owner INTEGER NOT NULL,
			market_id INTEGER NOT NULL,
			outcome_index INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			claimed INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (market_id) REFERENCES markets(id)
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vaults (
			market_id INTEGER PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (market_id) REFERENCES markets(id)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			source_type TEXT NOT NULL,
			description TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wagers_owner ON wagers(owner)`,
		`CREATE INDEX IF NOT EXISTS idx_wagers_market_id ON wagers(market_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account_id ON transactions(account_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}

// ---- registry ----

// InitRegistry creates the singleton registry row. Returns created=false
// if the registry already exists.
func (s *Store) InitRegistry(ctx context.Context, authority int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO registry (id, authority, market_count)
		VALUES (1, ?, 0)
		ON CONFLICT (id) DO NOTHING
	`, authority)
	if err != nil {
		return false, fmt.Errorf("failed to init registry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetRegistry returns the registry row, or nil if Initialize has not run
func (s *Store) GetRegistry(ctx context.Context) (*Registry, error) {
	var reg Registry
	err := s.db.QueryRowContext(ctx, `
		SELECT authority, market_count FROM registry WHERE id = 1
	`).Scan(&reg.Authority, &reg.MarketCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registry: %w", err)
	}
	return &reg, nil
}

// NextMarketIDTx returns the current market counter and increments it,
// inside the caller's transaction so the id consumption commits together
// with the market insert.
func (s *Store) NextMarketIDTx(ctx context.Context, tx *sql.Tx) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT market_count FROM registry WHERE id = 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("registry not initialized")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read market counter: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE registry SET market_count = market_count + 1 WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("failed to advance market counter: %w", err)
	}
	return id, nil
}

// ---- markets ----

// InsertMarketTx inserts a market with an explicitly assigned id
func (s *Store) InsertMarketTx(ctx context.Context, tx *sql.Tx, m *Market) error {
	outcomes, err := json.Marshal(m.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to encode outcomes: %w", err)
	}
	pools, err := json.Marshal(m.OutcomePools)
	if err != nil {
		return fmt.Errorf("failed to encode outcome pools: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO markets (id, creator, question, outcomes, outcome_pools, resolution_deadline, min_wager, resolved, winning_outcome, total_pool, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)
	`, m.ID, m.Creator, m.Question, string(outcomes), string(pools),
		m.ResolutionDeadline.Unix(), m.MinWager, m.TotalPool, m.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert market: %w", err)
	}
	return nil
}

func scanMarket(row *sql.Row) (*Market, error) {
	var m Market
	var outcomes, pools string
	var deadline, createdAt int64
	var resolved int
	var winning sql.NullInt64

	err := row.Scan(
		&m.ID,
		&m.Creator,
		&m.Question,
		&outcomes,
		&pools,
		&deadline,
		&m.MinWager,
		&resolved,
		&winning,
		&m.TotalPool,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan market: %w", err)
	}

	if err := json.Unmarshal([]byte(outcomes), &m.Outcomes); err != nil {
		return nil, fmt.Errorf("failed to decode outcomes: %w", err)
	}
	if err := json.Unmarshal([]byte(pools), &m.OutcomePools); err != nil {
		return nil, fmt.Errorf("failed to decode outcome pools: %w", err)
	}
	if len(m.Outcomes) != len(m.OutcomePools) {
		return nil, fmt.Errorf("market %d: outcome/pool length mismatch (%d vs %d)", m.ID, len(m.Outcomes), len(m.OutcomePools))
	}

	m.ResolutionDeadline = time.Unix(deadline, 0).UTC()
	m.CreatedAt = time.Unix(createdAt, 0).UTC()
	m.Resolved = resolved != 0
	if winning.Valid {
		m.WinningOutcome = int(winning.Int64)
	}
	return &m, nil
}

const marketColumns = `id, creator, question, outcomes, outcome_pools, resolution_deadline, min_wager, resolved, winning_outcome, total_pool, created_at`

// GetMarket retrieves a market by id, or nil if it does not exist
func (s *Store) GetMarket(ctx context.Context, id int64) (*Market, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+marketColumns+` FROM markets WHERE id = ?`, id)
	return scanMarket(row)
}

// GetMarketTx retrieves a market by id inside a transaction
func (s *Store) GetMarketTx(ctx context.Context, tx *sql.Tx, id int64) (*Market, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+marketColumns+` FROM markets WHERE id = ?`, id)
	return scanMarket(row)
}

// ApplyWagerTx folds a stake into the market's pools. Both the
// per-outcome pool and the total pool change in the same UPDATE so the
// sum invariant holds at every commit point.
func (s *Store) ApplyWagerTx(ctx context.Context, tx *sql.Tx, m *Market, outcomeIndex int, amount int64) error {
	pools := make([]int64, len(m.OutcomePools))
	copy(pools, m.OutcomePools)
	pools[outcomeIndex] += amount

	encoded, err := json.Marshal(pools)
	if err != nil {
		return fmt.Errorf("failed to encode outcome pools: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE markets
		SET outcome_pools = ?, total_pool = total_pool + ?
		WHERE id = ? AND resolved = 0
	`, string(encoded), amount, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update pools: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("market %d not open for pool updates", m.ID)
	}

	m.OutcomePools = pools
	m.TotalPool += amount
	return nil
}

// MarkResolvedTx freezes the market with its winning outcome. Pool
// values do not change. Returns false if the market was already resolved.
func (s *Store) MarkResolvedTx(ctx context.Context, tx *sql.Tx, marketID int64, winningOutcome int) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE markets
		SET resolved = 1, winning_outcome = ?
		WHERE id = ? AND resolved = 0
	`, winningOutcome, marketID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve market: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListOpenMarkets returns unresolved markets whose deadline is still in
// the future, newest first.
func (s *Store) ListOpenMarkets(ctx context.Context, now time.Time) ([]*Market, error) {
	return s.listMarkets(ctx, `
		SELECT `+marketColumns+` FROM markets
		WHERE resolved = 0 AND resolution_deadline > ?
		ORDER BY id DESC
	`, now.Unix())
}

// ListAwaitingResolution returns unresolved markets whose deadline has
// passed (at or after the deadline), oldest first.
func (s *Store) ListAwaitingResolution(ctx context.Context, now time.Time) ([]*Market, error) {
	return s.listMarkets(ctx, `
		SELECT `+marketColumns+` FROM markets
		WHERE resolved = 0 AND resolution_deadline <= ?
		ORDER BY id ASC
	`, now.Unix())
}

func (s *Store) listMarkets(ctx context.Context, query string, args ...interface{}) ([]*Market, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query markets: %w", err)
	}
	defer rows.Close()

	var markets []*Market
	for rows.Next() {
		var m Market
		var outcomes, pools string
		var deadline, createdAt int64
		var resolved int
		var winning sql.NullInt64

		err := rows.Scan(
			&m.ID,
			&m.Creator,
			&m.Question,
			&outcomes,
			&pools,
			&deadline,
			&m.MinWager,
			&resolved,
			&winning,
			&m.TotalPool,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan market: %w", err)
		}
		if err := json.Unmarshal([]byte(outcomes), &m.Outcomes); err != nil {
			return nil, fmt.Errorf("failed to decode outcomes: %w", err)
		}
		if err := json.Unmarshal([]byte(pools), &m.OutcomePools); err != nil {
			return nil, fmt.Errorf("failed to decode outcome pools: %w", err)
		}
		m.ResolutionDeadline = time.Unix(deadline, 0).UTC()
		m.CreatedAt = time.Unix(createdAt, 0).UTC()
		m.Resolved = resolved != 0
		if winning.Valid {
			m.WinningOutcome = int(winning.Int64)
		}
		markets = append(markets, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return markets, nil
}

// ---- wagers ----

// InsertWagerTx records a new wager and fills in its assigned id
func (s *Store) InsertWagerTx(ctx context.Context, tx *sql.Tx, w *Wager) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO wagers (ticket, owner, market_id, outcome_index, amount, claimed, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, w.Ticket, w.Owner, w.MarketID, w.OutcomeIndex, w.Amount, w.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert wager: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get wager id: %w", err)
	}
	w.ID = id
	return nil
}

func scanWager(row *sql.Row) (*Wager, error) {
	var w Wager
	var claimed int
	var createdAt int64

	err := row.Scan(
		&w.ID,
		&w.Ticket,
		&w.Owner,
		&w.MarketID,
		&w.OutcomeIndex,
		&w.Amount,
		&claimed,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wager: %w", err)
	}
	w.Claimed = claimed != 0
	w.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &w, nil
}

const wagerColumns = `id, ticket, owner, market_id, outcome_index, amount, claimed, created_at`

// GetWagerByTicket retrieves a wager by its external ticket, or nil
func (s *Store) GetWagerByTicket(ctx context.Context, ticket string) (*Wager, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+wagerColumns+` FROM wagers WHERE ticket = ?`, ticket)
	return scanWager(row)
}

// GetWagerByTicketTx retrieves a wager by ticket inside a transaction
func (s *Store) GetWagerByTicketTx(ctx context.Context, tx *sql.Tx, ticket string) (*Wager, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+wagerColumns+` FROM wagers WHERE ticket = ?`, ticket)
	return scanWager(row)
}

// MarkClaimedTx flips the claimed flag. The WHERE claimed = 0 guard makes
// this a check-and-set: it reports false when the wager was already
// claimed, so two racing claims can never both succeed.
func (s *Store) MarkClaimedTx(ctx context.Context, tx *sql.Tx, wagerID int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE wagers SET claimed = 1 WHERE id = ? AND claimed = 0
	`, wagerID)
	if err != nil {
		return false, fmt.Errorf("failed to mark wager claimed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
