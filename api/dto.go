/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Accounts and
  transactions reuse the factory JSON shapes so the API, the store and the
  scenario loader all speak the same schema.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Amounts and balances are decimal strings ("4899.99"), never floats.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/transaction.go: AccountJSON, TransactionJSON, RuleJSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/store/sqlite"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// AccountDTO represents an account in requests and responses.
type AccountDTO = factory.AccountJSON

// TransactionDTO represents a transaction in API responses.
type TransactionDTO struct {
	factory.TransactionJSON
	IsRecurring   bool   `json:"is_recurring"`
	EffectiveDate string `json:"effective_date"`
}

// CreateTransactionRequest is the request to create a transaction.
// ID is optional; a UUID is assigned when empty.
type CreateTransactionRequest = factory.TransactionJSON

// ProjectionPointDTO is one balance value.
type ProjectionPointDTO struct {
	AccountID       string `json:"account_id"`
	Date            string `json:"date"`
	PreviousBalance string `json:"previous_balance"`
	Balance         string `json:"balance"`
	Delta           string `json:"delta"`
}

// ProjectionResponse wraps a projection with the window it covers.
type ProjectionResponse struct {
	Start     string               `json:"start"`
	End       string               `json:"end"`
	AccountID string               `json:"account_id,omitempty"`
	Dense     bool                 `json:"dense"`
	Points    []ProjectionPointDTO `json:"points"`
}

// LowPointDTO is the lowest projected balance of one account.
type LowPointDTO struct {
	AccountID      string `json:"account_id"`
	Date           string `json:"date"`
	Balance        string `json:"balance"`
	BelowThreshold bool   `json:"below_threshold"`
}

// LowsResponse wraps low points with the threshold they were compared to.
type LowsResponse struct {
	Start     string        `json:"start"`
	End       string        `json:"end"`
	Threshold string        `json:"threshold"`
	Lows      []LowPointDTO `json:"lows"`
}

// OccurrencesResponse lists the dates of a transaction within a window.
type OccurrencesResponse struct {
	TransactionID  string   `json:"transaction_id"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	Dates          []string `json:"dates"`
	EffectiveDates []string `json:"effective_dates"`
}

// ForecastRunDTO represents one run of the low-balance job.
type ForecastRunDTO struct {
	ID              string        `json:"id"`
	Start           string        `json:"start"`
	End             string        `json:"end"`
	Status          string        `json:"status"`
	AccountsChecked int           `json:"accounts_checked"`
	Threshold       string        `json:"threshold"`
	Lows            []LowPointDTO `json:"lows"`
	Error           string        `json:"error,omitempty"`
	StartedAt       string        `json:"started_at"`
	CompletedAt     string        `json:"completed_at,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario. AsOf anchors the scenario's
// balances and schedules; it defaults to today.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
	AsOf       string `json:"as_of,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTransactionDTO(f *factory.TransactionFactory, tx forecast.Transaction) TransactionDTO {
	return TransactionDTO{
		TransactionJSON: f.TransactionToJSON(tx),
		IsRecurring:     tx.IsRecurring(),
		EffectiveDate:   tx.EffectiveDate().String(),
	}
}

func toPointDTOs(points []forecast.ProjectionPoint) []ProjectionPointDTO {
	dtos := make([]ProjectionPointDTO, len(points))
	for i, p := range points {
		dtos[i] = ProjectionPointDTO{
			AccountID:       string(p.AccountID),
			Date:            p.Date.String(),
			PreviousBalance: p.PreviousBalance.String(),
			Balance:         p.Balance.String(),
			Delta:           p.Delta().String(),
		}
	}
	return dtos
}

func toLowDTOs(lows []forecast.LowPoint, threshold decimal.Decimal) []LowPointDTO {
	dtos := make([]LowPointDTO, len(lows))
	for i, lp := range lows {
		dtos[i] = LowPointDTO{
			AccountID:      string(lp.AccountID),
			Date:           lp.Date.String(),
			Balance:        lp.Balance.String(),
			BelowThreshold: lp.Balance.LessThan(threshold),
		}
	}
	return dtos
}

func toForecastRunDTO(run sqlite.ForecastRun) ForecastRunDTO {
	dto := ForecastRunDTO{
		ID:              run.ID,
		Start:           run.Window.Start.String(),
		End:             run.Window.End.String(),
		Status:          run.Status,
		AccountsChecked: run.AccountsChecked,
		Threshold:       run.Threshold.String(),
		Lows:            toLowDTOs(run.Lows, run.Threshold),
		Error:           run.Error,
		StartedAt:       run.StartedAt.Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return dto
}
