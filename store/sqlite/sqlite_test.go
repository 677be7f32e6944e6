package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/forecast"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedAccounts(t *testing.T, s *Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, s.SaveAccount(context.Background(), forecast.Account{
			ID:             forecast.AccountID(id),
			Name:           id,
			InitialBalance: decimal.RequireFromString("100.25"),
			BalanceAsOf:    forecast.MustDate(2025, time.January, 1),
		}))
	}
}

func TestStore_AccountRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAccounts(t, s, "savings", "checking")

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, forecast.AccountID("checking"), accounts[0].ID)
	assert.True(t, accounts[0].InitialBalance.Equal(decimal.RequireFromString("100.25")))
	assert.Equal(t, forecast.MustDate(2025, time.January, 1), accounts[0].BalanceAsOf)

	got, err := s.GetAccount(ctx, "savings")
	require.NoError(t, err)
	assert.Equal(t, "savings", got.Name)

	_, err = s.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, forecast.ErrAccountNotFound)
}

func TestStore_UpdateAccountKeepsTransactions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAccounts(t, s, "a", "b")
	require.NoError(t, s.SaveTransaction(ctx, forecast.Transaction{
		ID: "t", FromAccountID: "a", ToAccountID: "b",
		Amount: decimal.NewFromInt(1), Date: forecast.MustDate(2025, time.January, 2),
	}))

	require.NoError(t, s.SaveAccount(ctx, forecast.Account{
		ID: "a", Name: "renamed", InitialBalance: decimal.NewFromInt(9), BalanceAsOf: forecast.MustDate(2025, time.February, 1),
	}))

	got, err := s.GetAccount(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	txs, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestStore_TransactionWithRecurrence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAccounts(t, s, "checking", "landlord")

	rule := forecast.EveryMonth(1, 15).Until(forecast.MustDate(2025, time.December, 31)).Times(12)
	tx := forecast.Transaction{
		ID:             "rent",
		FromAccountID:  "checking",
		ToAccountID:    "landlord",
		Amount:         decimal.RequireFromString("1200.00"),
		Date:           forecast.MustDate(2025, time.January, 1),
		SettlementDays: 2,
		Description:    "Rent",
		Recurrence:     &rule,
	}
	require.NoError(t, s.SaveTransaction(ctx, tx))

	got, err := s.GetTransaction(ctx, "rent")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(tx.Amount))
	assert.Equal(t, tx.Date, got.Date)
	assert.Equal(t, 2, got.SettlementDays)
	assert.Equal(t, "Rent", got.Description)
	require.NotNil(t, got.Recurrence)
	assert.Equal(t, forecast.Monthly{Days: []int{1, 15}}, got.Recurrence.Schedule)
	assert.Equal(t, forecast.MustDate(2025, time.December, 31), *got.Recurrence.EndDate)
	assert.Equal(t, 12, *got.Recurrence.Occurrences)

	_, err = s.GetTransaction(ctx, "nope")
	assert.ErrorIs(t, err, forecast.ErrTransactionNotFound)
}

func TestStore_OneTimeTransactionHasNoRule(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAccounts(t, s, "a", "b")

	require.NoError(t, s.SaveTransaction(ctx, forecast.Transaction{
		ID: "once", FromAccountID: "a", ToAccountID: "b",
		Amount: decimal.NewFromInt(10), Date: forecast.MustDate(2025, time.March, 3),
	}))

	got, err := s.GetTransaction(ctx, "once")
	require.NoError(t, err)
	assert.False(t, got.IsRecurring())
}

func TestStore_SaveTransactionUnknownAccount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAccounts(t, s, "a")

	err := s.SaveTransaction(ctx, forecast.Transaction{
		ID: "t", FromAccountID: "a", ToAccountID: "ghost",
		Amount: decimal.NewFromInt(1), Date: forecast.MustDate(2025, time.January, 1),
	})
	assert.ErrorIs(t, err, forecast.ErrAccountNotFound)
}

func TestStore_DeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAccounts(t, s, "a", "b", "c")
	on := forecast.MustDate(2025, time.January, 1)
	require.NoError(t, s.SaveTransaction(ctx, forecast.Transaction{ID: "ab", FromAccountID: "a", ToAccountID: "b", Amount: decimal.NewFromInt(1), Date: on}))
	require.NoError(t, s.SaveTransaction(ctx, forecast.Transaction{ID: "bc", FromAccountID: "b", ToAccountID: "c", Amount: decimal.NewFromInt(1), Date: on}))

	require.NoError(t, s.DeleteAccount(ctx, "a"))

	txs, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, forecast.TransactionID("bc"), txs[0].ID)

	byB, err := s.ListTransactionsByAccount(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, byB, 1)

	assert.ErrorIs(t, s.DeleteAccount(ctx, "a"), forecast.ErrAccountNotFound)
	assert.ErrorIs(t, s.DeleteTransaction(ctx, "ab"), forecast.ErrTransactionNotFound)
	assert.NoError(t, s.DeleteTransaction(ctx, "bc"))
}

func TestStore_ProjectionEngineOverSQLite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	jan1 := forecast.MustDate(2025, time.January, 1)
	require.NoError(t, s.SaveAccount(ctx, forecast.Account{ID: "checking", InitialBalance: decimal.NewFromInt(5000), BalanceAsOf: jan1}))
	require.NoError(t, s.SaveAccount(ctx, forecast.Account{ID: "external", InitialBalance: decimal.Zero, BalanceAsOf: jan1}))
	rule := forecast.EveryMonth(15)
	require.NoError(t, s.SaveTransaction(ctx, forecast.Transaction{
		ID: "bill", FromAccountID: "checking", ToAccountID: "external",
		Amount: decimal.NewFromInt(100), Date: forecast.MustDate(2025, time.January, 15), Recurrence: &rule,
	}))

	engine := &forecast.ProjectionEngine{Store: s}
	id := forecast.AccountID("checking")
	points, err := engine.Project(ctx, &id, forecast.Window{Start: jan1, End: forecast.MustDate(2025, time.April, 30)})
	require.NoError(t, err)

	require.Len(t, points, 5)
	assert.True(t, points[4].Balance.Equal(decimal.NewFromInt(4600)))
}

func TestStore_ForecastRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	jan1 := forecast.MustDate(2025, time.January, 1)
	started := time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)
	run := ForecastRun{
		ID:        "run-1",
		Window:    forecast.Window{Start: jan1, End: jan1.AddDays(90)},
		Status:    RunRunning,
		Threshold: decimal.NewFromInt(100),
		StartedAt: started,
	}
	require.NoError(t, s.SaveForecastRun(ctx, run))

	done := started.Add(time.Second)
	run.Status = RunCompleted
	run.AccountsChecked = 3
	run.CompletedAt = &done
	run.Lows = []forecast.LowPoint{{AccountID: "checking", Date: jan1.AddDays(14), Balance: decimal.RequireFromString("-12.50")}}
	require.NoError(t, s.SaveForecastRun(ctx, run))

	runs, err := s.ListForecastRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, RunCompleted, got.Status)
	assert.Equal(t, 3, got.AccountsChecked)
	assert.Equal(t, run.Window, got.Window)
	assert.True(t, got.Threshold.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(done))
	require.Len(t, got.Lows, 1)
	assert.Equal(t, forecast.AccountID("checking"), got.Lows[0].AccountID)
	assert.True(t, got.Lows[0].Balance.Equal(decimal.RequireFromString("-12.50")))
}

func TestStore_ForecastRunsNewestFirst(t *testing.T) {
	// GIVEN: Runs started within the same second, saved out of order
	ctx := context.Background()
	s := newTestStore(t)

	jan1 := forecast.MustDate(2025, time.January, 1)
	base := time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)
	for _, i := range []int{2, 0, 4, 1, 3} {
		require.NoError(t, s.SaveForecastRun(ctx, ForecastRun{
			ID:        fmt.Sprintf("run-%d", i),
			Window:    forecast.Window{Start: jan1, End: jan1},
			Status:    RunCompleted,
			StartedAt: base.Add(time.Duration(i) * 100 * time.Millisecond),
		}))
	}

	// WHEN: Listing the history
	runs, err := s.ListForecastRuns(ctx, 0)
	require.NoError(t, err)

	// THEN: Sub-second start times decide the order
	require.Len(t, runs, 5)
	for i, r := range runs {
		assert.Equal(t, fmt.Sprintf("run-%d", 4-i), r.ID)
		assert.True(t, r.StartedAt.Equal(base.Add(time.Duration(4-i)*100*time.Millisecond)), r.StartedAt)
	}

	limited, err := s.ListForecastRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "run-4", limited[0].ID)
}

func TestStore_ForecastRunsSameInstantKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	jan1 := forecast.MustDate(2025, time.January, 1)
	started := time.Date(2025, time.January, 1, 6, 0, 0, 0, time.UTC)
	for _, id := range []string{"b-first", "a-second", "c-third"} {
		require.NoError(t, s.SaveForecastRun(ctx, ForecastRun{
			ID: id, Window: forecast.Window{Start: jan1, End: jan1}, Status: RunRunning, StartedAt: started,
		}))
	}

	runs, err := s.ListForecastRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c-third", runs[0].ID)
	assert.Equal(t, "a-second", runs[1].ID)
	assert.Equal(t, "b-first", runs[2].ID)
}

func TestStore_ForecastRunsCorruptColumns(t *testing.T) {
	tests := []struct {
		name        string
		threshold   string
		startedAt   string
		completedAt any
		mention     string
	}{
		{"threshold", "lots", "2025-01-01T06:00:00Z", nil, "threshold"},
		{"started_at", "0", "yesterday", nil, "started_at"},
		{"completed_at", "0", "2025-01-01T06:00:00Z", "later", "completed_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestStore(t)
			_, err := s.db.ExecContext(ctx, `
				INSERT INTO forecast_runs (id, window_start, window_end, status, threshold, started_at, completed_at)
				VALUES ('bad', '2025-01-01', '2025-01-31', 'completed', ?, ?, ?)`,
				tt.threshold, tt.startedAt, tt.completedAt,
			)
			require.NoError(t, err)

			_, err = s.ListForecastRuns(ctx, 0)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.mention)
		})
	}
}

func TestStore_CreateRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAccounts(t, s, "a", "b")

	// Accounts
	err := s.CreateAccount(ctx, forecast.Account{
		ID: "a", Name: "overwritten", InitialBalance: decimal.Zero, BalanceAsOf: forecast.MustDate(2025, time.January, 1),
	})
	assert.ErrorIs(t, err, forecast.ErrAccountExists)
	assert.True(t, forecast.IsConflict(err))

	got, err := s.GetAccount(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)

	require.NoError(t, s.CreateAccount(ctx, forecast.Account{
		ID: "c", Name: "C", InitialBalance: decimal.NewFromInt(7), BalanceAsOf: forecast.MustDate(2025, time.January, 1),
	}))

	// Transactions
	tx := forecast.Transaction{
		ID: "t", FromAccountID: "a", ToAccountID: "b",
		Amount: decimal.NewFromInt(10), Date: forecast.MustDate(2025, time.January, 2),
	}
	require.NoError(t, s.CreateTransaction(ctx, tx))

	dup := tx
	dup.Amount = decimal.NewFromInt(999)
	err = s.CreateTransaction(ctx, dup)
	assert.ErrorIs(t, err, forecast.ErrTransactionExists)

	stored, err := s.GetTransaction(ctx, "t")
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(10)))

	orphan := tx
	orphan.ID = "orphan"
	orphan.ToAccountID = "nowhere"
	assert.ErrorIs(t, s.CreateTransaction(ctx, orphan), forecast.ErrAccountNotFound)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedAccounts(t, s, "a", "b")
	require.NoError(t, s.Reset(ctx))

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
