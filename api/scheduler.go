/*
scheduler.go - Scheduled low-balance forecast

PURPOSE:
  Periodically projects every account over [today, today + horizon] and
  reports accounts whose lowest projected balance falls below the
  configured threshold. Each run is recorded in forecast_runs for the API.

DESIGN:
  - robfig/cron drives the schedule (standard 5-field expression)
  - cron.Recover keeps a panicking run from killing the scheduler
  - "Today" comes from the injectable Now func, so tests pin the clock
  - Warnings go to the zerolog logger, one line per low account

CONFIGURATION:
  - Schedule:    FORECAST_JOB_SCHEDULE ("off" disables the job)
  - HorizonDays: FORECAST_HORIZON_DAYS
  - Threshold:   LOW_BALANCE_THRESHOLD

USAGE:
  scheduler := NewForecastScheduler(store, log)
  scheduler.Schedule = cfg.ForecastJobSchedule
  if err := scheduler.Start(); err != nil { ... }
  defer scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerForecast, ListForecastRuns
  - forecast/series.go: LowestBalances
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/store/sqlite"
)

// ForecastScheduler runs the low-balance check on a cron schedule.
type ForecastScheduler struct {
	Store       *sqlite.Store
	Engine      *forecast.ProjectionEngine
	Schedule    string
	HorizonDays int
	Threshold   decimal.Decimal
	Now         func() time.Time

	log  zerolog.Logger
	cron *cron.Cron
	mu   sync.Mutex
}

// NewForecastScheduler creates a scheduler with a 90 day horizon and a
// zero threshold.
func NewForecastScheduler(store *sqlite.Store, log zerolog.Logger) *ForecastScheduler {
	return &ForecastScheduler{
		Store:       store,
		Engine:      &forecast.ProjectionEngine{Store: store},
		HorizonDays: DefaultHorizonDays,
		Threshold:   decimal.Zero,
		Now:         time.Now,
		log:         log.With().Str("component", "forecast-scheduler").Logger(),
	}
}

// Start registers the job and starts the cron scheduler.
// An empty Schedule leaves the scheduler disabled.
func (fs *ForecastScheduler) Start() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.Schedule == "" {
		fs.log.Info().Msg("disabled, not starting")
		return nil
	}
	if fs.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(&fs.log))))
	if _, err := c.AddFunc(fs.Schedule, fs.runScheduled); err != nil {
		return fmt.Errorf("invalid forecast schedule %q: %w", fs.Schedule, err)
	}
	c.Start()
	fs.cron = c

	fs.log.Info().Str("schedule", fs.Schedule).Int("horizon_days", fs.HorizonDays).Msg("scheduled forecast job")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (fs *ForecastScheduler) Stop() {
	fs.mu.Lock()
	c := fs.cron
	fs.cron = nil
	fs.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
		fs.log.Info().Msg("stopped")
	}
}

func (fs *ForecastScheduler) runScheduled() {
	if _, err := fs.RunNow(context.Background()); err != nil {
		fs.log.Error().Err(err).Msg("forecast run failed")
	}
}

// RunNow projects all accounts and records the run. The returned run is
// also persisted when the projection itself fails.
func (fs *ForecastScheduler) RunNow(ctx context.Context) (sqlite.ForecastRun, error) {
	horizon := fs.HorizonDays
	if horizon < 1 {
		horizon = DefaultHorizonDays
	}
	today := forecast.DateOf(fs.Now())
	window := forecast.Window{Start: today, End: today.AddDays(horizon)}

	run := sqlite.ForecastRun{
		ID:        uuid.NewString(),
		Window:    window,
		Status:    sqlite.RunRunning,
		Threshold: fs.Threshold,
		StartedAt: fs.Now().UTC(),
	}
	if err := fs.Store.SaveForecastRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to save run record: %w", err)
	}

	points, err := fs.Engine.Project(ctx, nil, window)
	if err != nil {
		run.Status = sqlite.RunFailed
		run.Error = err.Error()
		fs.complete(ctx, &run)
		return run, err
	}

	lows := forecast.LowestBalances(points)
	run.AccountsChecked = len(lows)
	for _, lp := range lows {
		if !lp.Balance.LessThan(fs.Threshold) {
			continue
		}
		run.Lows = append(run.Lows, lp)
		fs.log.Warn().
			Str("account_id", string(lp.AccountID)).
			Str("date", lp.Date.String()).
			Str("balance", lp.Balance.String()).
			Str("threshold", fs.Threshold.String()).
			Msg("projected balance below threshold")
	}

	run.Status = sqlite.RunCompleted
	if err := fs.complete(ctx, &run); err != nil {
		return run, err
	}

	fs.log.Info().
		Str("window", window.String()).
		Int("accounts", run.AccountsChecked).
		Int("low", len(run.Lows)).
		Msg("forecast run completed")
	return run, nil
}

func (fs *ForecastScheduler) complete(ctx context.Context, run *sqlite.ForecastRun) error {
	done := fs.Now().UTC()
	run.CompletedAt = &done
	if err := fs.Store.SaveForecastRun(ctx, *run); err != nil {
		fs.log.Error().Err(err).Str("run_id", run.ID).Msg("failed to update run record")
		return fmt.Errorf("failed to update run record: %w", err)
	}
	return nil
}
