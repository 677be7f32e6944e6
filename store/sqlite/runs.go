package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/forecast"
)

// =============================================================================
// FORECAST RUNS STORE
// =============================================================================

// runTimeLayout is fixed width so started_at sorts correctly as TEXT.
// Times are always stored in UTC.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z"

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ForecastRun records one execution of the scheduled low-balance check.
type ForecastRun struct {
	ID              string
	Window          forecast.Window
	Status          string
	AccountsChecked int
	Threshold       decimal.Decimal
	Lows            []forecast.LowPoint // accounts that dipped below Threshold
	Error           string
	StartedAt       time.Time
	CompletedAt     *time.Time
}

type lowPointJSON struct {
	AccountID string               `json:"account_id"`
	Date      forecast.LogicalDate `json:"date"`
	Balance   decimal.Decimal      `json:"balance"`
}

// SaveForecastRun inserts or updates a run.
func (s *Store) SaveForecastRun(ctx context.Context, r ForecastRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lows := make([]lowPointJSON, len(r.Lows))
	for i, lp := range r.Lows {
		lows[i] = lowPointJSON{AccountID: string(lp.AccountID), Date: lp.Date, Balance: lp.Balance}
	}
	lowsJSON, err := json.Marshal(lows)
	if err != nil {
		return fmt.Errorf("failed to encode lows: %w", err)
	}

	var completedAt *string
	if r.CompletedAt != nil {
		ts := r.CompletedAt.UTC().Format(runTimeLayout)
		completedAt = &ts
	}

	query := `
		INSERT INTO forecast_runs (id, window_start, window_end, status, accounts_checked,
			threshold, lows_json, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			accounts_checked = excluded.accounts_checked,
			lows_json = excluded.lows_json,
			error = excluded.error,
			completed_at = excluded.completed_at
	`
	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Window.Start.String(), r.Window.End.String(),
		r.Status, r.AccountsChecked, r.Threshold.String(), string(lowsJSON), r.Error,
		r.StartedAt.UTC().Format(runTimeLayout), completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save forecast run: %w", err)
	}
	return nil
}

// ListForecastRuns returns the most recent runs first, ties broken by
// insertion order. limit <= 0 means all.
func (s *Store) ListForecastRuns(ctx context.Context, limit int) ([]ForecastRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, window_start, window_end, status, accounts_checked,
			threshold, lows_json, error, started_at, completed_at
		FROM forecast_runs
		ORDER BY started_at DESC, rowid DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast runs: %w", err)
	}
	defer rows.Close()

	var runs []ForecastRun
	for rows.Next() {
		var (
			r                     ForecastRun
			start, end, threshold string
			lowsJSON, completedAt sql.NullString
			startedAt             string
		)
		if err := rows.Scan(
			&r.ID, &start, &end, &r.Status, &r.AccountsChecked,
			&threshold, &lowsJSON, &r.Error, &startedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan forecast run: %w", err)
		}

		if r.Window.Start, err = forecast.ParseDate(start); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		if r.Window.End, err = forecast.ParseDate(end); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		if r.Threshold, err = decimal.NewFromString(threshold); err != nil {
			return nil, fmt.Errorf("run %s: corrupt threshold %q: %w", r.ID, threshold, err)
		}
		if r.StartedAt, err = parseRunTime(startedAt); err != nil {
			return nil, fmt.Errorf("run %s: corrupt started_at: %w", r.ID, err)
		}
		if completedAt.Valid {
			t, err := parseRunTime(completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("run %s: corrupt completed_at: %w", r.ID, err)
			}
			r.CompletedAt = &t
		}

		if lowsJSON.Valid && lowsJSON.String != "" {
			var lows []lowPointJSON
			if err := json.Unmarshal([]byte(lowsJSON.String), &lows); err != nil {
				return nil, fmt.Errorf("run %s: corrupt lows_json: %w", r.ID, err)
			}
			for _, lp := range lows {
				r.Lows = append(r.Lows, forecast.LowPoint{
					AccountID: forecast.AccountID(lp.AccountID),
					Date:      lp.Date,
					Balance:   lp.Balance,
				})
			}
		}

		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// parseRunTime accepts runTimeLayout and plain RFC 3339 timestamps.
func parseRunTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
