/*
Package forecast projects future account balances from scheduled transactions.

PURPOSE:
  Given accounts with an opening balance, one-time transactions and
  recurring transactions, produce the running balance of each account over
  a calendar window. The package is pure: no I/O, no clock, no globals.
  Storage, HTTP and formatting live in other packages and hand the engine
  an in-memory snapshot.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: opening balance anchored to a date (BalanceAsOf)
  - Transaction: a transfer from one account to another on a nominal date,
    optionally settling later and optionally repeating
  - ProjectionPoint: one balance value for one account on one date

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal, never float64
  2. Calendar dates only: LogicalDate, no timestamps
  3. Type safety: distinct ID types for accounts and transactions

USAGE:
  rule := forecast.EveryMonth(1)
  tx, err := forecast.NewTransaction(forecast.Transaction{
      ID:            "rent",
      FromAccountID: "checking",
      ToAccountID:   "landlord",
      Amount:        decimal.NewFromInt(1200),
      Date:          forecast.MustDate(2025, time.January, 1),
      Recurrence:    &rule,
  })

SEE ALSO:
  - recurrence.go: Rule
  - projection.go: Project
  - errors.go: error kinds
*/
package forecast

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type TransactionID string

// =============================================================================
// ACCOUNT
// =============================================================================

// Account is a tracked balance. InitialBalance is the balance at the start
// of BalanceAsOf; projecting before that date is undefined.
type Account struct {
	ID             AccountID
	Name           string
	InitialBalance decimal.Decimal
	BalanceAsOf    LogicalDate
}

// =============================================================================
// TRANSACTION
// =============================================================================

// Transaction moves Amount from FromAccountID to ToAccountID.
//
// Date is the nominal posting date and, for recurring transactions, the
// anchor of the schedule. The balance impact happens on the effective date,
// Date + SettlementDays.
type Transaction struct {
	ID             TransactionID
	FromAccountID  AccountID
	ToAccountID    AccountID
	Amount         decimal.Decimal
	Date           LogicalDate
	SettlementDays int
	Description    string
	Recurrence     *Rule
}

// NewTransaction validates tx and returns it. Negative settlement lag and
// invalid recurrence rules are rejected here, before any projection.
func NewTransaction(tx Transaction) (Transaction, error) {
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// Validate checks the transaction on its own, without account lookups.
func (tx Transaction) Validate() error {
	if tx.SettlementDays < 0 {
		return &TransactionError{ID: tx.ID, Reason: "settlement days must be >= 0"}
	}
	if tx.Date.IsZero() {
		return &TransactionError{ID: tx.ID, Reason: "date is required"}
	}
	if tx.FromAccountID == "" || tx.ToAccountID == "" {
		return &TransactionError{ID: tx.ID, Reason: "both accounts are required"}
	}
	if tx.Recurrence != nil {
		if err := tx.Recurrence.Validate(); err != nil {
			return &TransactionError{ID: tx.ID, Reason: "bad recurrence", Err: err}
		}
	}
	return nil
}

// IsRecurring returns true if the transaction carries a recurrence rule.
func (tx Transaction) IsRecurring() bool { return tx.Recurrence != nil }

// EffectiveDate is the day the balance changes.
func (tx Transaction) EffectiveDate() LogicalDate {
	return tx.Date.AddDays(tx.SettlementDays)
}

// SplitTransactions partitions txs into one-time and recurring transactions.
func SplitTransactions(txs []Transaction) (oneTime, recurring []Transaction) {
	for _, tx := range txs {
		if tx.IsRecurring() {
			recurring = append(recurring, tx)
		} else {
			oneTime = append(oneTime, tx)
		}
	}
	return oneTime, recurring
}

// =============================================================================
// PROJECTION POINT - Derived, never persisted
// =============================================================================

// ProjectionPoint is the balance of one account at the end of one day.
type ProjectionPoint struct {
	AccountID       AccountID
	Date            LogicalDate
	Balance         decimal.Decimal
	PreviousBalance decimal.Decimal
}

// Delta returns the net change on the point's date.
func (p ProjectionPoint) Delta() decimal.Decimal {
	return p.Balance.Sub(p.PreviousBalance)
}
