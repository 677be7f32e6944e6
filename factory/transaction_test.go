package factory

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/forecast"
)

func TestParseTransaction_Recurring(t *testing.T) {
	f := NewTransactionFactory()

	tx, err := f.ParseTransaction(`{
		"id": "rent",
		"from_account_id": "checking",
		"to_account_id": "landlord",
		"amount": "1200.50",
		"date": "2025-01-01",
		"settlement_days": 2,
		"description": "Monthly rent",
		"recurrence": {"frequency": "monthly", "day_of_month": [1, 15], "end_date": "2025-12-31", "occurrences": 6}
	}`)
	require.NoError(t, err)

	assert.Equal(t, forecast.TransactionID("rent"), tx.ID)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("1200.50")))
	assert.Equal(t, forecast.MustDate(2025, time.January, 1), tx.Date)
	assert.Equal(t, 2, tx.SettlementDays)
	require.NotNil(t, tx.Recurrence)
	assert.Equal(t, forecast.FreqMonthly, tx.Recurrence.Frequency())
	assert.Equal(t, forecast.Monthly{Days: []int{1, 15}}, tx.Recurrence.Schedule)
	require.NotNil(t, tx.Recurrence.EndDate)
	assert.Equal(t, forecast.MustDate(2025, time.December, 31), *tx.Recurrence.EndDate)
	require.NotNil(t, tx.Recurrence.Occurrences)
	assert.Equal(t, 6, *tx.Recurrence.Occurrences)
}

func TestParseTransaction_Errors(t *testing.T) {
	f := NewTransactionFactory()
	base := `"id":"t","from_account_id":"a","to_account_id":"b"`

	tests := []struct {
		name string
		json string
		want error
	}{
		{"bad json", `{`, ErrMalformed},
		{"bad amount", `{` + base + `,"amount":"12,5","date":"2025-01-01"}`, ErrMalformed},
		{"bad date format", `{` + base + `,"amount":"1","date":"2025-1-01"}`, forecast.ErrInvalidDateFormat},
		{"impossible date", `{` + base + `,"amount":"1","date":"2025-02-30"}`, forecast.ErrInvalidCalendarDate},
		{"negative settlement", `{` + base + `,"amount":"1","date":"2025-01-01","settlement_days":-1}`, forecast.ErrInvalidTransaction},
		{"weekday on monthly", `{` + base + `,"amount":"1","date":"2025-01-01","recurrence":{"frequency":"monthly","day_of_week":[1]}}`, forecast.ErrInvalidRecurrenceRule},
		{"day out of range", `{` + base + `,"amount":"1","date":"2025-01-01","recurrence":{"frequency":"monthly","day_of_month":[32]}}`, forecast.ErrInvalidRecurrenceRule},
		{"weekday out of range", `{` + base + `,"amount":"1","date":"2025-01-01","recurrence":{"frequency":"weekly","day_of_week":[0]}}`, forecast.ErrInvalidRecurrenceRule},
		{"month out of range", `{` + base + `,"amount":"1","date":"2025-01-01","recurrence":{"frequency":"yearly","month":[13]}}`, forecast.ErrInvalidRecurrenceRule},
		{"unknown frequency", `{` + base + `,"amount":"1","date":"2025-01-01","recurrence":{"frequency":"hourly"}}`, forecast.ErrInvalidRecurrenceRule},
		{"missing frequency", `{` + base + `,"amount":"1","date":"2025-01-01","recurrence":{}}`, forecast.ErrInvalidRecurrenceRule},
		{"bad end date", `{` + base + `,"amount":"1","date":"2025-01-01","recurrence":{"frequency":"daily","end_date":"soon"}}`, forecast.ErrInvalidDateFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseTransaction(tt.json)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTransactionJSON_RoundTrip(t *testing.T) {
	f := NewTransactionFactory()
	rule := forecast.EveryWeek(forecast.Monday, forecast.Friday).Every(2).Times(10)
	tx := forecast.Transaction{
		ID:             "pay",
		FromAccountID:  "employer",
		ToAccountID:    "checking",
		Amount:         decimal.RequireFromString("2500.00"),
		Date:           forecast.MustDate(2025, time.January, 3),
		SettlementDays: 1,
		Recurrence:     &rule,
	}

	tj := f.TransactionToJSON(tx)
	assert.Equal(t, "weekly", tj.Recurrence.Frequency)
	assert.Equal(t, []int{1, 5}, tj.Recurrence.DayOfWeek)
	assert.Equal(t, "2025-01-03", tj.Date)

	back, err := f.TransactionFromJSON(tj)
	require.NoError(t, err)
	assert.True(t, back.Amount.Equal(tx.Amount))
	assert.Equal(t, tx.Date, back.Date)
	assert.Equal(t, forecast.Weekly{Days: []forecast.Weekday{forecast.Monday, forecast.Friday}}, back.Recurrence.Schedule)
	assert.Equal(t, 2, back.Recurrence.Interval)
	assert.Equal(t, 10, *back.Recurrence.Occurrences)
}

func TestAccountFromJSON(t *testing.T) {
	f := NewTransactionFactory()

	a, err := f.ParseAccount(`{"id":"checking","name":"Checking","initial_balance":"5000","balance_as_of":"2025-01-01"}`)
	require.NoError(t, err)
	assert.Equal(t, forecast.AccountID("checking"), a.ID)
	assert.True(t, a.InitialBalance.Equal(decimal.NewFromInt(5000)))

	a, err = f.AccountFromJSON(AccountJSON{ID: "empty", BalanceAsOf: "2025-01-01"})
	require.NoError(t, err)
	assert.True(t, a.InitialBalance.IsZero())

	_, err = f.AccountFromJSON(AccountJSON{ID: "x", InitialBalance: "lots", BalanceAsOf: "2025-01-01"})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = f.AccountFromJSON(AccountJSON{ID: "x", BalanceAsOf: "2025-13-01"})
	assert.ErrorIs(t, err, forecast.ErrInvalidCalendarDate)

	_, err = f.AccountFromJSON(AccountJSON{BalanceAsOf: "2025-01-01"})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestWriteProjectionTSV(t *testing.T) {
	jan1 := forecast.MustDate(2025, time.January, 1)
	points := []forecast.ProjectionPoint{
		{AccountID: "checking", Date: jan1, PreviousBalance: decimal.NewFromInt(5000), Balance: decimal.NewFromInt(5000)},
		{AccountID: "checking", Date: jan1.AddDays(14), PreviousBalance: decimal.NewFromInt(5000), Balance: decimal.RequireFromString("4899.99")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteProjectionTSV(&buf, points))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "account_id\tdate\tprevious_balance\tbalance", lines[0])
	assert.Equal(t, "checking\t2025-01-01\t5000\t5000", lines[1])
	assert.Equal(t, "checking\t2025-01-15\t5000\t4899.99", lines[2])
}
