/*
store.go - Persistence interfaces consumed by the forecast engine

PURPOSE:
  The engine itself never does I/O. These interfaces describe what a
  storage layer must provide so ProjectionEngine can load a snapshot and
  the API can manage accounts and transactions.

KEY INTERFACES:
  SnapshotStore: read-only listing (all the engine needs)
  Store:         full CRUD used by the HTTP layer and scenario loader

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - forecast/store/memory.go: In-memory for testing

Lookups of missing records return ErrAccountNotFound / ErrTransactionNotFound.
Creates never overwrite: a taken ID returns ErrAccountExists / ErrTransactionExists.
*/
package forecast

import "context"

// SnapshotStore lists everything a projection needs.
type SnapshotStore interface {
	// ListAccounts returns all accounts ordered by ID.
	ListAccounts(ctx context.Context) ([]Account, error)

	// ListTransactions returns all transactions, one-time and recurring, ordered by date.
	ListTransactions(ctx context.Context) ([]Transaction, error)
}

// Store adds record management on top of SnapshotStore.
type Store interface {
	SnapshotStore

	GetAccount(ctx context.Context, id AccountID) (*Account, error)
	// CreateAccount inserts a new account; ErrAccountExists if the ID is taken.
	CreateAccount(ctx context.Context, account Account) error
	// SaveAccount inserts or replaces an account.
	SaveAccount(ctx context.Context, account Account) error
	// DeleteAccount removes the account and every transaction touching it.
	DeleteAccount(ctx context.Context, id AccountID) error

	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)
	// CreateTransaction inserts a new transaction; ErrTransactionExists if the
	// ID is taken. Both accounts must exist.
	CreateTransaction(ctx context.Context, tx Transaction) error
	// SaveTransaction inserts or replaces a transaction. Both accounts must exist.
	SaveTransaction(ctx context.Context, tx Transaction) error
	DeleteTransaction(ctx context.Context, id TransactionID) error

	// Reset removes all data.
	Reset(ctx context.Context) error
}
