/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built household budgets that populate the database with
  realistic accounts and schedules. Each scenario exercises a different
  part of the projection: settlement lag, month-end clamping, occurrence
  caps, end dates and low-balance detection.

AVAILABLE SCENARIOS:
  household:      paycheck biweekly, rent on the 1st, card payment with
                  3-day ACH settlement, groceries weekly, yearly insurance
  tight-month:    rent due before the paycheck settles; balance dips negative
  loan-payoff:    car loan capped at 12 payments, gym membership with an end
                  date, month-end (31st) utility bill

HOW SCENARIOS WORK:
  1. Reset database (clear all data)
  2. Build account and transaction JSON anchored on the as-of date
  3. Convert through the factory (same validation as the API)
  4. Save accounts, then transactions

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "household", "as_of": "2025-01-01"}

NOTE:
  Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase
  - factory/transaction.go: JSON definitions
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/logger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "household",
		Name:        "Household Budget",
		Description: "Biweekly paycheck, rent on the 1st, card payment with 3-day settlement, yearly insurance",
	},
	{
		ID:          "tight-month",
		Name:        "Tight Month",
		Description: "Rent is due before the paycheck settles; checking dips below zero",
	},
	{
		ID:          "loan-payoff",
		Name:        "Loan Payoff",
		Description: "Car loan capped at 12 payments, gym membership ending mid-year, utility bill on the 31st",
	},
}

// scenarioData is the JSON payload of one scenario.
type scenarioData struct {
	Accounts     []factory.AccountJSON
	Transactions []factory.TransactionJSON
}

var scenarioLoaders = map[string]func(asOf forecast.LogicalDate) scenarioData{
	"household":   householdScenario,
	"tight-month": tightMonthScenario,
	"loan-payoff": loanPayoffScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	build, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	asOf := h.today()
	if req.AsOf != "" {
		d, err := forecast.ParseDate(req.AsOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of", err)
			return
		}
		asOf = d
	}

	ctx := r.Context()
	h.mu.Lock()
	defer h.mu.Unlock()

	h.currentScenario = ""
	if err := h.loadScenario(ctx, build(asOf)); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	log := logger.FromContext(ctx)
	log.Info().
		Str("scenario", req.ScenarioID).
		Str("as_of", asOf.String()).
		Msg("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
		"as_of":    asOf.String(),
	})
}

func (h *Handler) loadScenario(ctx context.Context, data scenarioData) error {
	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	for _, aj := range data.Accounts {
		account, err := h.Factory.AccountFromJSON(aj)
		if err != nil {
			return fmt.Errorf("account %s: %w", aj.ID, err)
		}
		if err := h.Store.SaveAccount(ctx, account); err != nil {
			return err
		}
	}
	for _, tj := range data.Transactions {
		tx, err := h.Factory.TransactionFromJSON(tj)
		if err != nil {
			return err
		}
		if err := h.Store.SaveTransaction(ctx, tx); err != nil {
			return fmt.Errorf("transaction %s: %w", tj.ID, err)
		}
	}
	return nil
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func scenarioAccount(id, name, balance string, asOf forecast.LogicalDate) factory.AccountJSON {
	return factory.AccountJSON{ID: id, Name: name, InitialBalance: balance, BalanceAsOf: asOf.String()}
}

func ints(v ...int) []int { return v }

func householdScenario(asOf forecast.LogicalDate) scenarioData {
	// First of next month for rent, the coming Friday for payday.
	nextFirst := forecast.StartOfMonth(asOf.Year(), asOf.Month()).AddMonths(1)
	payday := asOf.AddDays((int(forecast.Friday) - int(asOf.Weekday()) + 7) % 7)
	cardDue := forecast.StartOfMonth(asOf.Year(), asOf.Month()).AddDays(19)
	if cardDue.Before(asOf) {
		cardDue = cardDue.AddMonths(1)
	}
	insurance := asOf.AddMonths(2)

	return scenarioData{
		Accounts: []factory.AccountJSON{
			scenarioAccount("checking", "Checking", "3200.00", asOf),
			scenarioAccount("savings", "Savings", "10000.00", asOf),
			scenarioAccount("credit-card", "Credit Card", "-450.00", asOf),
			scenarioAccount("employer", "Employer", "0", asOf),
			scenarioAccount("landlord", "Landlord", "0", asOf),
			scenarioAccount("grocer", "Groceries", "0", asOf),
			scenarioAccount("insurer", "Insurance Co.", "0", asOf),
		},
		Transactions: []factory.TransactionJSON{
			{
				ID: "household-paycheck", FromAccountID: "employer", ToAccountID: "checking",
				Amount: "2400.00", Date: payday.String(), Description: "Paycheck",
				Recurrence: &factory.RuleJSON{Frequency: "weekly", Interval: 2},
			},
			{
				ID: "household-rent", FromAccountID: "checking", ToAccountID: "landlord",
				Amount: "1650.00", Date: nextFirst.String(), Description: "Rent",
				Recurrence: &factory.RuleJSON{Frequency: "monthly", DayOfMonth: ints(1)},
			},
			{
				ID: "household-card-payment", FromAccountID: "checking", ToAccountID: "credit-card",
				Amount: "600.00", Date: cardDue.String(), SettlementDays: 3, Description: "Card payment (ACH)",
				Recurrence: &factory.RuleJSON{Frequency: "monthly", DayOfMonth: ints(20)},
			},
			{
				ID: "household-groceries", FromAccountID: "credit-card", ToAccountID: "grocer",
				Amount: "145.00", Date: asOf.String(), Description: "Groceries",
				Recurrence: &factory.RuleJSON{Frequency: "weekly", DayOfWeek: ints(int(forecast.Saturday))},
			},
			{
				ID: "household-savings", FromAccountID: "checking", ToAccountID: "savings",
				Amount: "300.00", Date: asOf.String(), Description: "Monthly savings",
				Recurrence: &factory.RuleJSON{Frequency: "monthly", DayOfMonth: ints(15)},
			},
			{
				ID: "household-insurance", FromAccountID: "checking", ToAccountID: "insurer",
				Amount: "900.00", Date: insurance.String(), Description: "Home insurance",
				Recurrence: &factory.RuleJSON{Frequency: "yearly"},
			},
		},
	}
}

func tightMonthScenario(asOf forecast.LogicalDate) scenarioData {
	first := forecast.StartOfMonth(asOf.Year(), asOf.Month()).AddMonths(1)

	return scenarioData{
		Accounts: []factory.AccountJSON{
			scenarioAccount("checking", "Checking", "400.00", asOf),
			scenarioAccount("employer", "Employer", "0", asOf),
			scenarioAccount("landlord", "Landlord", "0", asOf),
			scenarioAccount("utility", "Power Co.", "0", asOf),
		},
		Transactions: []factory.TransactionJSON{
			{
				ID: "tight-pay", FromAccountID: "employer", ToAccountID: "checking",
				Amount: "1100.00", Date: first.String(), SettlementDays: 2, Description: "Semi-monthly pay",
				Recurrence: &factory.RuleJSON{Frequency: "monthly", DayOfMonth: ints(1, 15)},
			},
			{
				ID: "tight-rent", FromAccountID: "checking", ToAccountID: "landlord",
				Amount: "1200.00", Date: first.String(), Description: "Rent",
				Recurrence: &factory.RuleJSON{Frequency: "monthly"},
			},
			{
				ID: "tight-power", FromAccountID: "checking", ToAccountID: "utility",
				Amount: "180.00", Date: first.AddDays(1).String(), Description: "Power bill",
			},
		},
	}
}

func loanPayoffScenario(asOf forecast.LogicalDate) scenarioData {
	first := forecast.StartOfMonth(asOf.Year(), asOf.Month()).AddMonths(1)
	endOfMonth := forecast.EndOfMonth(asOf.Year(), asOf.Month())
	gymEnd := first.AddMonths(6).AddDays(-1)
	loanPayments := 12

	return scenarioData{
		Accounts: []factory.AccountJSON{
			scenarioAccount("checking", "Checking", "5000.00", asOf),
			scenarioAccount("car-loan", "Car Loan", "-4200.00", asOf),
			scenarioAccount("employer", "Employer", "0", asOf),
			scenarioAccount("gym", "Gym", "0", asOf),
			scenarioAccount("utility", "Water Co.", "0", asOf),
		},
		Transactions: []factory.TransactionJSON{
			{
				ID: "loan-salary", FromAccountID: "employer", ToAccountID: "checking",
				Amount: "3100.00", Date: first.String(), Description: "Salary",
				Recurrence: &factory.RuleJSON{Frequency: "monthly"},
			},
			{
				ID: "loan-payment", FromAccountID: "checking", ToAccountID: "car-loan",
				Amount: "350.00", Date: first.AddDays(4).String(), SettlementDays: 1, Description: "Car loan",
				Recurrence: &factory.RuleJSON{Frequency: "monthly", Occurrences: &loanPayments},
			},
			{
				ID: "loan-gym", FromAccountID: "checking", ToAccountID: "gym",
				Amount: "49.99", Date: first.String(), Description: "Gym membership",
				Recurrence: &factory.RuleJSON{Frequency: "monthly", EndDate: gymEnd.String()},
			},
			{
				ID: "loan-water", FromAccountID: "checking", ToAccountID: "utility",
				Amount: "62.10", Date: endOfMonth.String(), Description: "Water bill",
				Recurrence: &factory.RuleJSON{Frequency: "monthly", DayOfMonth: ints(31)},
			},
		},
	}
}
