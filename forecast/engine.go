package forecast

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// =============================================================================
// PROJECTION ENGINE - Store-backed wrapper around Project
// =============================================================================

// ProjectionEngine loads a snapshot from a store and projects it.
// All I/O happens before Project is called.
type ProjectionEngine struct {
	Store SnapshotStore
}

// Snapshot is a consistent-enough read of accounts and transactions.
type Snapshot struct {
	Accounts     []Account
	Transactions []Transaction
}

// Load reads accounts and transactions concurrently.
func (pe *ProjectionEngine) Load(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := pe.Store.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		snap.Accounts = accounts
		return nil
	})
	g.Go(func() error {
		txs, err := pe.Store.ListTransactions(ctx)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.Transactions = txs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Project projects the stored snapshot. accountID nil means all accounts.
func (pe *ProjectionEngine) Project(ctx context.Context, accountID *AccountID, window Window) ([]ProjectionPoint, error) {
	snap, err := pe.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Project(accountID, window)
}

// Project runs the pure projection over the snapshot.
func (s *Snapshot) Project(accountID *AccountID, window Window) ([]ProjectionPoint, error) {
	oneTime, recurring := SplitTransactions(s.Transactions)
	return Project(ProjectionInput{
		Accounts:  s.Accounts,
		OneTime:   oneTime,
		Recurring: recurring,
		AccountID: accountID,
		Window:    window,
	})
}
