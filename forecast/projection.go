/*
projection.go - Running balance projection

PURPOSE:
  Turns a snapshot of accounts and transactions into a sparse balance
  series: one ProjectionPoint per account per date on which that account
  has at least one event, plus one point at the window start.

ALGORITHM:
  1. Validate the window, the account filter and every transaction.
     Any failure aborts the call; no partial output is ever returned.
  2. Collect events. Each transaction produces a debit on FromAccountID and
     a credit on ToAccountID at its effective date (date + settlement days).
     Recurring transactions are expanded first, over a window shifted back
     by their settlement lag so that an occurrence just before the window
     whose effect lands inside it is not lost.
  3. Sum same-day events per account (one value per date).
  4. Fold from InitialBalance. Events between BalanceAsOf and the window
     start are folded but not emitted, so the first point's
     PreviousBalance is exact.

SIGN CONVENTION:
  Amount is subtracted from FromAccountID and added to ToAccountID.
  FromAccountID == ToAccountID is legal and nets to zero.

EXAMPLE:
  points, err := forecast.Project(forecast.ProjectionInput{
      Accounts:  accounts,
      OneTime:   oneTime,
      Recurring: recurring,
      Window:    forecast.Window{Start: jan1, End: apr30},
  })

SEE ALSO:
  - occurrence.go: recurring expansion
  - engine.go: store-backed wrapper
  - series.go: dense series and low points
*/
package forecast

import (
	"fmt"
	"slices"
	"sort"

	"github.com/shopspring/decimal"
)

// ProjectionInput is the read-only snapshot for one projection call.
type ProjectionInput struct {
	Accounts  []Account
	OneTime   []Transaction
	Recurring []Transaction

	// AccountID restricts the output to one account. Nil means all accounts.
	AccountID *AccountID

	Window Window
}

// Project computes the sparse balance series for input.
// It is pure: the same input always yields the same output.
func Project(input ProjectionInput) ([]ProjectionPoint, error) {
	window := input.Window
	if err := window.Validate(); err != nil {
		return nil, err
	}

	accounts := make(map[AccountID]Account, len(input.Accounts))
	for _, a := range input.Accounts {
		accounts[a.ID] = a
	}

	// 1. Scope
	inScope := make(map[AccountID]bool)
	if input.AccountID != nil {
		if _, ok := accounts[*input.AccountID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, *input.AccountID)
		}
		inScope[*input.AccountID] = true
	} else {
		for id := range accounts {
			inScope[id] = true
		}
	}

	// Validate everything before folding anything.
	for _, tx := range input.OneTime {
		if err := checkTransaction(tx, accounts, false); err != nil {
			return nil, err
		}
	}
	for _, tx := range input.Recurring {
		if err := checkTransaction(tx, accounts, true); err != nil {
			return nil, err
		}
	}

	// 2. Collect events, summed per account per effective date
	events := make(map[AccountID]map[LogicalDate]decimal.Decimal, len(inScope))
	post := func(id AccountID, at LogicalDate, delta decimal.Decimal) {
		if !inScope[id] {
			return
		}
		if at.Before(accounts[id].BalanceAsOf) || at.After(window.End) {
			return
		}
		byDate := events[id]
		if byDate == nil {
			byDate = make(map[LogicalDate]decimal.Decimal)
			events[id] = byDate
		}
		byDate[at] = byDate[at].Add(delta)
	}
	apply := func(tx Transaction, effective LogicalDate) {
		post(tx.FromAccountID, effective, tx.Amount.Neg())
		post(tx.ToAccountID, effective, tx.Amount)
	}

	for _, tx := range input.OneTime {
		apply(tx, tx.EffectiveDate())
	}
	for _, tx := range input.Recurring {
		if !inScope[tx.FromAccountID] && !inScope[tx.ToAccountID] {
			continue
		}
		for _, d := range expand(*tx.Recurrence, tx.Date, expansionWindow(tx, accounts, inScope, window)) {
			apply(tx, d.AddDays(tx.SettlementDays))
		}
	}

	// 3-4. Fold
	ids := make([]AccountID, 0, len(inScope))
	for id := range inScope {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var points []ProjectionPoint
	for _, id := range ids {
		points = append(points, fold(accounts[id], events[id], window)...)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points, nil
}

// checkTransaction validates tx against its list and the known accounts.
func checkTransaction(tx Transaction, accounts map[AccountID]Account, recurring bool) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if recurring != tx.IsRecurring() {
		if recurring {
			return &TransactionError{ID: tx.ID, Reason: "recurring transaction has no recurrence rule"}
		}
		return &TransactionError{ID: tx.ID, Reason: "one-time transaction has a recurrence rule"}
	}
	for _, id := range []AccountID{tx.FromAccountID, tx.ToAccountID} {
		if _, ok := accounts[id]; !ok {
			return &TransactionError{ID: tx.ID, Reason: fmt.Sprintf("unknown account %q", id)}
		}
	}
	return nil
}

// expansionWindow covers every nominal date whose effective date can affect
// an in-scope account: from the earliest of the window start and the
// accounts' BalanceAsOf, through the window end, shifted back by the lag.
func expansionWindow(tx Transaction, accounts map[AccountID]Account, inScope map[AccountID]bool, window Window) Window {
	start := window.Start
	for _, id := range []AccountID{tx.FromAccountID, tx.ToAccountID} {
		if inScope[id] && accounts[id].BalanceAsOf.Before(start) {
			start = accounts[id].BalanceAsOf
		}
	}
	return Window{Start: start, End: window.End}.Shift(-tx.SettlementDays)
}

// fold turns one account's summed events into points.
func fold(account Account, byDate map[LogicalDate]decimal.Decimal, window Window) []ProjectionPoint {
	dates := make([]LogicalDate, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, LogicalDate.Compare)

	running := account.InitialBalance
	i := 0

	// Carry forward silently up to the window start.
	for ; i < len(dates) && dates[i].Before(window.Start); i++ {
		running = running.Add(byDate[dates[i]])
	}

	opening := ProjectionPoint{
		AccountID:       account.ID,
		Date:            window.Start,
		Balance:         running,
		PreviousBalance: running,
	}
	if i < len(dates) && dates[i] == window.Start {
		opening.Balance = running.Add(byDate[dates[i]])
		i++
	}
	running = opening.Balance

	points := []ProjectionPoint{opening}
	for ; i < len(dates); i++ {
		next := running.Add(byDate[dates[i]])
		points = append(points, ProjectionPoint{
			AccountID:       account.ID,
			Date:            dates[i],
			Balance:         next,
			PreviousBalance: running,
		})
		running = next
	}
	return points
}
