/*
Package sqlite provides a SQLite-backed implementation of forecast.Store.

PURPOSE:
  Persists accounts and transaction templates (one-time and recurring) so
  the projection engine can load a snapshot. Projections themselves are
  never stored: they are recomputed on every request.

INTERFACES IMPLEMENTED:
  forecast.SnapshotStore: ListAccounts, ListTransactions
  forecast.Store:         account and transaction CRUD, Reset
                          (Create* are insert-only, Save* upsert)

KEY TABLES:
  accounts:       opening balance + balance_as_of date
  transactions:   templates; recurrence_json holds the rule (NULL = one-time)
  forecast_runs:  history of the scheduled low-balance job

FORMATS:
  - Dates are TEXT "YYYY-MM-DD" (sortable, no timezone)
  - Amounts are TEXT decimal strings (no float64 rounding)
  - Rules are JSON in the factory.RuleJSON shape

CONCURRENCY:
  Uses sync.RWMutex around the connection pool. ":memory:" databases are
  pinned to a single connection, since every new connection would open an
  empty database.

MIGRATION:
  Versioned SQL files in migrations/ are embedded and applied with
  golang-migrate on New().

USAGE:
  store, err := sqlite.New("./data/cashflow.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := &forecast.ProjectionEngine{Store: store}

SEE ALSO:
  - forecast/store.go: Interface definitions
  - forecast/store/memory.go: In-memory implementation for testing
  - migrate.go: schema migrations
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/forecast"
)

// Store implements forecast.Store using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	factory *factory.TransactionFactory
}

var _ forecast.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db, factory: factory.NewTransactionFactory()}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNT STORE
// =============================================================================

// ListAccounts returns all accounts ordered by ID.
func (s *Store) ListAccounts(ctx context.Context) ([]forecast.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, initial_balance, balance_as_of FROM accounts ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []forecast.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetAccount retrieves an account by ID.
func (s *Store) GetAccount(ctx context.Context, id forecast.AccountID) (*forecast.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, initial_balance, balance_as_of FROM accounts WHERE id = ?", id,
	)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", forecast.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAccount inserts a new account. A taken ID returns ErrAccountExists
// and leaves the stored account untouched.
func (s *Store) CreateAccount(ctx context.Context, account forecast.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO accounts (id, name, initial_balance, balance_as_of, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, query,
		account.ID, account.Name,
		account.InitialBalance.String(), account.BalanceAsOf.String(),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return requireAffected(res, fmt.Errorf("%w: %s", forecast.ErrAccountExists, account.ID))
}

// SaveAccount inserts or updates an account. Updating keeps the account's
// transactions.
func (s *Store) SaveAccount(ctx context.Context, account forecast.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO accounts (id, name, initial_balance, balance_as_of, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			initial_balance = excluded.initial_balance,
			balance_as_of = excluded.balance_as_of,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		account.ID, account.Name,
		account.InitialBalance.String(), account.BalanceAsOf.String(),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// DeleteAccount removes an account. Its transactions go with it (ON DELETE CASCADE).
func (s *Store) DeleteAccount(ctx context.Context, id forecast.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return requireAffected(res, fmt.Errorf("%w: %s", forecast.ErrAccountNotFound, id))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (forecast.Account, error) {
	var (
		a       forecast.Account
		balance string
		asOf    string
	)
	if err := row.Scan(&a.ID, &a.Name, &balance, &asOf); err != nil {
		if err == sql.ErrNoRows {
			return a, err
		}
		return a, fmt.Errorf("failed to scan account: %w", err)
	}

	var err error
	if a.InitialBalance, err = decimal.NewFromString(balance); err != nil {
		return a, fmt.Errorf("account %s: corrupt initial_balance %q: %w", a.ID, balance, err)
	}
	if a.BalanceAsOf, err = forecast.ParseDate(asOf); err != nil {
		return a, fmt.Errorf("account %s: corrupt balance_as_of: %w", a.ID, err)
	}
	return a, nil
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

const transactionColumns = `id, from_account_id, to_account_id, amount, date,
	settlement_days, description, recurrence_json`

// ListTransactions returns all transactions ordered by date, then ID.
func (s *Store) ListTransactions(ctx context.Context) ([]forecast.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTransactions(ctx,
		"SELECT "+transactionColumns+" FROM transactions ORDER BY date ASC, id ASC",
	)
}

// ListTransactionsByAccount returns every transaction touching the account.
func (s *Store) ListTransactionsByAccount(ctx context.Context, id forecast.AccountID) ([]forecast.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTransactions(ctx,
		"SELECT "+transactionColumns+` FROM transactions
		WHERE from_account_id = ? OR to_account_id = ?
		ORDER BY date ASC, id ASC`,
		id, id,
	)
}

// GetTransaction retrieves a transaction by ID.
func (s *Store) GetTransaction(ctx context.Context, id forecast.TransactionID) (*forecast.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	tx, err := s.scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", forecast.ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// CreateTransaction inserts a new transaction. Both accounts must exist and
// a taken ID returns ErrTransactionExists.
func (s *Store) CreateTransaction(ctx context.Context, tx forecast.Transaction) error {
	return s.writeTransaction(ctx, tx, false)
}

// SaveTransaction inserts or replaces a transaction. Both accounts must exist.
func (s *Store) SaveTransaction(ctx context.Context, tx forecast.Transaction) error {
	return s.writeTransaction(ctx, tx, true)
}

func (s *Store) writeTransaction(ctx context.Context, tx forecast.Transaction, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, id := range []forecast.AccountID{tx.FromAccountID, tx.ToAccountID} {
		ok, err := accountExists(ctx, sqlTx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", forecast.ErrAccountNotFound, id)
		}
	}

	res, err := s.saveTx(ctx, sqlTx, tx, replace)
	if err != nil {
		return err
	}
	if !replace {
		if err := requireAffected(res, fmt.Errorf("%w: %s", forecast.ErrTransactionExists, tx.ID)); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func (s *Store) saveTx(ctx context.Context, db execer, tx forecast.Transaction, replace bool) (sql.Result, error) {
	var recurrence sql.NullString
	if tx.Recurrence != nil {
		raw, err := json.Marshal(s.factory.RuleToJSON(*tx.Recurrence))
		if err != nil {
			return nil, fmt.Errorf("failed to encode recurrence: %w", err)
		}
		recurrence = sql.NullString{String: string(raw), Valid: true}
	}

	conflict := "ON CONFLICT(id) DO NOTHING"
	if replace {
		conflict = `ON CONFLICT(id) DO UPDATE SET
			from_account_id = excluded.from_account_id,
			to_account_id = excluded.to_account_id,
			amount = excluded.amount,
			date = excluded.date,
			settlement_days = excluded.settlement_days,
			description = excluded.description,
			recurrence_json = excluded.recurrence_json`
	}

	query := `
		INSERT INTO transactions (` + transactionColumns + `, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		` + conflict

	res, err := db.ExecContext(ctx, query,
		tx.ID, tx.FromAccountID, tx.ToAccountID,
		tx.Amount.String(), tx.Date.String(),
		tx.SettlementDays, tx.Description, recurrence,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}
	return res, nil
}

// DeleteTransaction removes a transaction.
func (s *Store) DeleteTransaction(ctx context.Context, id forecast.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireAffected(res, fmt.Errorf("%w: %s", forecast.ErrTransactionNotFound, id))
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]forecast.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []forecast.Transaction
	for rows.Next() {
		tx, err := s.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func (s *Store) scanTransaction(row scanner) (forecast.Transaction, error) {
	var (
		tj         factory.TransactionJSON
		recurrence sql.NullString
	)
	err := row.Scan(
		&tj.ID, &tj.FromAccountID, &tj.ToAccountID, &tj.Amount, &tj.Date,
		&tj.SettlementDays, &tj.Description, &recurrence,
	)
	if err == sql.ErrNoRows {
		return forecast.Transaction{}, err
	}
	if err != nil {
		return forecast.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if recurrence.Valid && recurrence.String != "" {
		var rj factory.RuleJSON
		if err := json.Unmarshal([]byte(recurrence.String), &rj); err != nil {
			return forecast.Transaction{}, fmt.Errorf("transaction %s: corrupt recurrence_json: %w", tj.ID, err)
		}
		tj.Recurrence = &rj
	}

	tx, err := s.factory.TransactionFromJSON(tj)
	if err != nil {
		return forecast.Transaction{}, fmt.Errorf("transaction %s: %w", tj.ID, err)
	}
	return tx, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"transactions", "accounts", "forecast_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func accountExists(ctx context.Context, db queryRower, id forecast.AccountID) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to look up account: %w", err)
	}
	return count > 0, nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
