// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/warp/cashflow-engine/forecast"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	accounts     map[forecast.AccountID]forecast.Account
	transactions map[forecast.TransactionID]forecast.Transaction
}

var _ forecast.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[forecast.AccountID]forecast.Account),
		transactions: make(map[forecast.TransactionID]forecast.Transaction),
	}
}

func (m *Memory) ListAccounts(_ context.Context) ([]forecast.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]forecast.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		result = append(result, a)
	}
	slices.SortFunc(result, func(a, b forecast.Account) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return result, nil
}

func (m *Memory) GetAccount(_ context.Context, id forecast.AccountID) (*forecast.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", forecast.ErrAccountNotFound, id)
	}
	return &a, nil
}

func (m *Memory) CreateAccount(_ context.Context, account forecast.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[account.ID]; ok {
		return fmt.Errorf("%w: %s", forecast.ErrAccountExists, account.ID)
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *Memory) SaveAccount(_ context.Context, account forecast.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

// DeleteAccount removes the account and cascades to its transactions.
func (m *Memory) DeleteAccount(_ context.Context, id forecast.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return fmt.Errorf("%w: %s", forecast.ErrAccountNotFound, id)
	}
	delete(m.accounts, id)
	for txID, tx := range m.transactions {
		if tx.FromAccountID == id || tx.ToAccountID == id {
			delete(m.transactions, txID)
		}
	}
	return nil
}

func (m *Memory) ListTransactions(_ context.Context) ([]forecast.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]forecast.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		result = append(result, tx)
	}
	slices.SortFunc(result, func(a, b forecast.Transaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return result, nil
}

func (m *Memory) GetTransaction(_ context.Context, id forecast.TransactionID) (*forecast.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", forecast.ErrTransactionNotFound, id)
	}
	return &tx, nil
}

func (m *Memory) CreateTransaction(_ context.Context, tx forecast.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[tx.ID]; ok {
		return fmt.Errorf("%w: %s", forecast.ErrTransactionExists, tx.ID)
	}
	return m.putTransaction(tx)
}

func (m *Memory) SaveTransaction(_ context.Context, tx forecast.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putTransaction(tx)
}

// putTransaction stores tx once both accounts exist. Caller holds m.mu.
func (m *Memory) putTransaction(tx forecast.Transaction) error {
	for _, id := range []forecast.AccountID{tx.FromAccountID, tx.ToAccountID} {
		if _, ok := m.accounts[id]; !ok {
			return fmt.Errorf("%w: %s", forecast.ErrAccountNotFound, id)
		}
	}
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id forecast.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[id]; !ok {
		return fmt.Errorf("%w: %s", forecast.ErrTransactionNotFound, id)
	}
	delete(m.transactions, id)
	return nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = make(map[forecast.AccountID]forecast.Account)
	m.transactions = make(map[forecast.TransactionID]forecast.Transaction)
	return nil
}
