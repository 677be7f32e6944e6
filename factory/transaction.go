/*
Package factory provides JSON to Go conversion for accounts, transactions
and recurrence rules.

PURPOSE:
  Converts the JSON shapes used by the HTTP API and the SQLite store into
  forecast.Account, forecast.Transaction and forecast.Rule values, and
  back. All boundary parsing (dates, decimal amounts, selector lists)
  happens here so the engine only ever sees valid typed values.

JSON SCHEMA:
  {
    "id": "rent",
    "from_account_id": "checking",
    "to_account_id": "landlord",
    "amount": "1200.00",
    "date": "2025-01-01",
    "settlement_days": 0,
    "description": "Monthly rent",
    "recurrence": {
      "frequency": "monthly",
      "interval": 1,
      "day_of_month": [1],
      "end_date": "2026-06-30",
      "occurrences": 18
    }
  }

  Selectors: day_of_week (1=Mon..7=Sun) only with "weekly", day_of_month
  (1..31) only with "monthly", month (1..12) only with "yearly". A selector
  on the wrong frequency is rejected with ErrInvalidRecurrenceRule.

AMOUNTS:
  Amounts travel as strings ("1200.00") so no precision is lost to float64.

USAGE:
  f := factory.NewTransactionFactory()
  tx, err := f.ParseTransaction(jsonStr)

  // Store / API round trip
  tj := f.TransactionToJSON(tx)

SEE ALSO:
  - forecast/types.go: Account and Transaction
  - forecast/recurrence.go: Rule and its schedule variants
  - export.go: TSV export of projections
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/forecast"
)

// ErrMalformed is returned for JSON that cannot be decoded or amounts that
// are not decimals.
var ErrMalformed = errors.New("malformed input")

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// AccountJSON is the JSON representation of an account.
type AccountJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	InitialBalance string `json:"initial_balance"`
	BalanceAsOf    string `json:"balance_as_of"`
}

// TransactionJSON is the JSON representation of a transaction.
type TransactionJSON struct {
	ID             string    `json:"id"`
	FromAccountID  string    `json:"from_account_id"`
	ToAccountID    string    `json:"to_account_id"`
	Amount         string    `json:"amount"`
	Date           string    `json:"date"`
	SettlementDays int       `json:"settlement_days"`
	Description    string    `json:"description,omitempty"`
	Recurrence     *RuleJSON `json:"recurrence,omitempty"`
}

// RuleJSON is the JSON representation of a recurrence rule.
type RuleJSON struct {
	Frequency   string `json:"frequency"` // daily, weekly, monthly, yearly
	Interval    int    `json:"interval,omitempty"`
	DayOfWeek   []int  `json:"day_of_week,omitempty"`
	DayOfMonth  []int  `json:"day_of_month,omitempty"`
	Month       []int  `json:"month,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Occurrences *int   `json:"occurrences,omitempty"`
}

// =============================================================================
// TRANSACTION FACTORY
// =============================================================================

// TransactionFactory converts between JSON and forecast types.
type TransactionFactory struct{}

// NewTransactionFactory creates a new factory.
func NewTransactionFactory() *TransactionFactory {
	return &TransactionFactory{}
}

// ParseTransaction parses a JSON string into a validated Transaction.
func (f *TransactionFactory) ParseTransaction(jsonStr string) (forecast.Transaction, error) {
	var tj TransactionJSON
	if err := json.Unmarshal([]byte(jsonStr), &tj); err != nil {
		return forecast.Transaction{}, fmt.Errorf("%w: transaction JSON: %v", ErrMalformed, err)
	}
	return f.TransactionFromJSON(tj)
}

// ParseAccount parses a JSON string into an Account.
func (f *TransactionFactory) ParseAccount(jsonStr string) (forecast.Account, error) {
	var aj AccountJSON
	if err := json.Unmarshal([]byte(jsonStr), &aj); err != nil {
		return forecast.Account{}, fmt.Errorf("%w: account JSON: %v", ErrMalformed, err)
	}
	return f.AccountFromJSON(aj)
}

// AccountFromJSON converts AccountJSON to forecast.Account.
// An empty initial_balance means zero.
func (f *TransactionFactory) AccountFromJSON(aj AccountJSON) (forecast.Account, error) {
	if aj.ID == "" {
		return forecast.Account{}, fmt.Errorf("%w: account id is required", ErrMalformed)
	}
	balance := decimal.Zero
	if aj.InitialBalance != "" {
		var err error
		balance, err = decimal.NewFromString(aj.InitialBalance)
		if err != nil {
			return forecast.Account{}, fmt.Errorf("%w: initial_balance %q", ErrMalformed, aj.InitialBalance)
		}
	}
	asOf, err := forecast.ParseDate(aj.BalanceAsOf)
	if err != nil {
		return forecast.Account{}, fmt.Errorf("balance_as_of: %w", err)
	}
	return forecast.Account{
		ID:             forecast.AccountID(aj.ID),
		Name:           aj.Name,
		InitialBalance: balance,
		BalanceAsOf:    asOf,
	}, nil
}

// AccountToJSON converts an Account to AccountJSON.
func (f *TransactionFactory) AccountToJSON(a forecast.Account) AccountJSON {
	return AccountJSON{
		ID:             string(a.ID),
		Name:           a.Name,
		InitialBalance: a.InitialBalance.String(),
		BalanceAsOf:    a.BalanceAsOf.String(),
	}
}

// TransactionFromJSON converts TransactionJSON to a validated Transaction.
func (f *TransactionFactory) TransactionFromJSON(tj TransactionJSON) (forecast.Transaction, error) {
	id := forecast.TransactionID(tj.ID)

	amount, err := decimal.NewFromString(tj.Amount)
	if err != nil {
		return forecast.Transaction{}, fmt.Errorf("%w: amount %q", ErrMalformed, tj.Amount)
	}
	on, err := forecast.ParseDate(tj.Date)
	if err != nil {
		return forecast.Transaction{}, fmt.Errorf("date: %w", err)
	}

	tx := forecast.Transaction{
		ID:             id,
		FromAccountID:  forecast.AccountID(tj.FromAccountID),
		ToAccountID:    forecast.AccountID(tj.ToAccountID),
		Amount:         amount,
		Date:           on,
		SettlementDays: tj.SettlementDays,
		Description:    tj.Description,
	}

	if tj.Recurrence != nil {
		rule, err := f.RuleFromJSON(*tj.Recurrence)
		if err != nil {
			return forecast.Transaction{}, &forecast.TransactionError{ID: id, Reason: "bad recurrence", Err: err}
		}
		tx.Recurrence = &rule
	}

	return forecast.NewTransaction(tx)
}

// TransactionToJSON converts a Transaction to TransactionJSON.
func (f *TransactionFactory) TransactionToJSON(tx forecast.Transaction) TransactionJSON {
	tj := TransactionJSON{
		ID:             string(tx.ID),
		FromAccountID:  string(tx.FromAccountID),
		ToAccountID:    string(tx.ToAccountID),
		Amount:         tx.Amount.String(),
		Date:           tx.Date.String(),
		SettlementDays: tx.SettlementDays,
		Description:    tx.Description,
	}
	if tx.Recurrence != nil {
		rj := f.RuleToJSON(*tx.Recurrence)
		tj.Recurrence = &rj
	}
	return tj
}

// =============================================================================
// RECURRENCE RULES
// =============================================================================

// RuleFromJSON converts RuleJSON to a validated Rule.
func (f *TransactionFactory) RuleFromJSON(rj RuleJSON) (forecast.Rule, error) {
	freq := forecast.Frequency(rj.Frequency)

	var rule forecast.Rule
	switch freq {
	case forecast.FreqDaily:
		rule.Schedule = forecast.Daily{}
	case forecast.FreqWeekly:
		days := make([]forecast.Weekday, len(rj.DayOfWeek))
		for i, d := range rj.DayOfWeek {
			days[i] = forecast.Weekday(d)
		}
		rule.Schedule = forecast.Weekly{Days: days}
	case forecast.FreqMonthly:
		rule.Schedule = forecast.Monthly{Days: rj.DayOfMonth}
	case forecast.FreqYearly:
		months := make([]time.Month, len(rj.Month))
		for i, m := range rj.Month {
			months[i] = time.Month(m)
		}
		rule.Schedule = forecast.Yearly{Months: months}
	case "":
		return forecast.Rule{}, &forecast.RuleError{Field: "frequency", Reason: "is required"}
	default:
		return forecast.Rule{}, &forecast.RuleError{Field: "frequency", Value: rj.Frequency, Reason: "must be daily, weekly, monthly or yearly"}
	}

	if err := checkSelectors(freq, rj); err != nil {
		return forecast.Rule{}, err
	}

	rule.Interval = rj.Interval
	if rj.EndDate != "" {
		end, err := forecast.ParseDate(rj.EndDate)
		if err != nil {
			return forecast.Rule{}, fmt.Errorf("end_date: %w", err)
		}
		rule.EndDate = &end
	}
	if rj.Occurrences != nil {
		n := *rj.Occurrences
		rule.Occurrences = &n
	}

	if err := rule.Validate(); err != nil {
		return forecast.Rule{}, err
	}
	return rule, nil
}

// checkSelectors rejects selectors that do not belong to freq.
func checkSelectors(freq forecast.Frequency, rj RuleJSON) error {
	if len(rj.DayOfWeek) > 0 && freq != forecast.FreqWeekly {
		return &forecast.RuleError{Field: "day_of_week", Reason: "only allowed with weekly frequency"}
	}
	if len(rj.DayOfMonth) > 0 && freq != forecast.FreqMonthly {
		return &forecast.RuleError{Field: "day_of_month", Reason: "only allowed with monthly frequency"}
	}
	if len(rj.Month) > 0 && freq != forecast.FreqYearly {
		return &forecast.RuleError{Field: "month", Reason: "only allowed with yearly frequency"}
	}
	return nil
}

// RuleToJSON converts a Rule to RuleJSON.
func (f *TransactionFactory) RuleToJSON(r forecast.Rule) RuleJSON {
	rj := RuleJSON{
		Frequency: string(r.Frequency()),
		Interval:  r.Interval,
	}
	switch s := r.Schedule.(type) {
	case forecast.Weekly:
		for _, d := range s.Days {
			rj.DayOfWeek = append(rj.DayOfWeek, int(d))
		}
	case forecast.Monthly:
		rj.DayOfMonth = append(rj.DayOfMonth, s.Days...)
	case forecast.Yearly:
		for _, m := range s.Months {
			rj.Month = append(rj.Month, int(m))
		}
	}
	if r.EndDate != nil {
		rj.EndDate = r.EndDate.String()
	}
	if r.Occurrences != nil {
		n := *r.Occurrences
		rj.Occurrences = &n
	}
	return rj
}
