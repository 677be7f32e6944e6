package forecast_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/forecast"
)

func date(y int, m time.Month, d int) forecast.LogicalDate {
	return forecast.MustDate(y, m, d)
}

// =============================================================================
// PARSING
// =============================================================================

func TestParseDate_RoundTrip(t *testing.T) {
	inputs := []string{
		"2025-01-01", "2025-12-31", "2024-02-29", "1999-07-04",
		"0001-01-01", "9999-12-31", "2000-02-29", "2025-04-30",
	}
	for _, s := range inputs {
		d, err := forecast.ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, d.String())
	}
}

func TestParseDate_InvalidFormat(t *testing.T) {
	tests := []string{
		"", "2025-1-01", "2025/01/01", "25-01-01", "2025-01-01T00:00:00Z",
		"2025-01-1 ", "abcd-ef-gh", "2025-+1-01", " 2025-01-01", "20250101",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			_, err := forecast.ParseDate(s)
			assert.ErrorIs(t, err, forecast.ErrInvalidDateFormat)
			assert.NotErrorIs(t, err, forecast.ErrInvalidCalendarDate)
		})
	}
}

func TestParseDate_InvalidCalendarDate(t *testing.T) {
	tests := []string{"2025-04-31", "2025-02-29", "2025-13-01", "2025-00-10", "2025-01-00", "1900-02-29"}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			_, err := forecast.ParseDate(s)
			assert.ErrorIs(t, err, forecast.ErrInvalidCalendarDate)

			var dateErr *forecast.DateError
			require.ErrorAs(t, err, &dateErr)
			assert.Equal(t, s, dateErr.Input)
		})
	}
}

func TestNewDate_RejectsImpossibleDate(t *testing.T) {
	_, err := forecast.NewDate(2025, time.April, 31)
	assert.ErrorIs(t, err, forecast.ErrInvalidCalendarDate)
	assert.True(t, forecast.IsClientError(err))
}

func TestLogicalDate_UnmarshalText(t *testing.T) {
	var d forecast.LogicalDate
	require.NoError(t, d.UnmarshalText([]byte("2025-03-15")))
	assert.Equal(t, date(2025, time.March, 15), d)

	assert.Error(t, d.UnmarshalText([]byte("15/03/2025")))
}

// =============================================================================
// ARITHMETIC
// =============================================================================

func TestAddMonths_ClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		name string
		from forecast.LogicalDate
		n    int
		want forecast.LogicalDate
	}{
		{"jan 31 + 1 -> feb 28", date(2025, time.January, 31), 1, date(2025, time.February, 28)},
		{"jan 31 + 1 leap -> feb 29", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"jan 31 + 2 -> mar 31", date(2025, time.January, 31), 2, date(2025, time.March, 31)},
		{"mar 31 + 1 -> apr 30", date(2025, time.March, 31), 1, date(2025, time.April, 30)},
		{"dec 15 + 1 -> next year", date(2025, time.December, 15), 1, date(2026, time.January, 15)},
		{"mar 31 - 1 -> feb 28", date(2025, time.March, 31), -1, date(2025, time.February, 28)},
		{"jan 10 - 1 -> previous dec", date(2025, time.January, 10), -1, date(2024, time.December, 10)},
		{"jan 10 - 13", date(2025, time.January, 10), -13, date(2023, time.December, 10)},
		{"zero", date(2025, time.May, 5), 0, date(2025, time.May, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.AddMonths(tt.n))
		})
	}
}

func TestAddYears_LeapDay(t *testing.T) {
	assert.Equal(t, date(2025, time.February, 28), date(2024, time.February, 29).AddYears(1))
	assert.Equal(t, date(2028, time.February, 29), date(2024, time.February, 29).AddYears(4))
}

func TestAddDays_CrossesBoundaries(t *testing.T) {
	assert.Equal(t, date(2025, time.January, 1), date(2024, time.December, 31).AddDays(1))
	assert.Equal(t, date(2024, time.February, 29), date(2024, time.March, 1).AddDays(-1))
	assert.Equal(t, date(2025, time.December, 23), date(2025, time.December, 20).AddDays(3))
	assert.Equal(t, 365, date(2026, time.January, 1).DaysSince(date(2025, time.January, 1)))
}

func TestWeekday_ISO(t *testing.T) {
	assert.Equal(t, forecast.Wednesday, date(2025, time.January, 1).Weekday())
	assert.Equal(t, forecast.Sunday, date(2025, time.January, 5).Weekday())
	assert.Equal(t, forecast.Monday, date(2025, time.January, 6).Weekday())
	assert.Equal(t, 7, int(forecast.Sunday))
	assert.Equal(t, "Sunday", forecast.Sunday.String())
}

func TestCompare_TotalOrder(t *testing.T) {
	a := date(2025, time.January, 31)
	b := date(2025, time.February, 1)

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(date(2025, time.January, 31)))
	assert.True(t, a.Before(b))
	assert.True(t, b.AfterOrEqual(a))
	assert.True(t, a == date(2025, time.January, 31), "structural equality")
}

func TestWindow(t *testing.T) {
	_, err := forecast.NewWindow(date(2025, time.February, 1), date(2025, time.January, 1))
	assert.ErrorIs(t, err, forecast.ErrInvalidRange)

	w, err := forecast.NewWindow(date(2025, time.January, 30), date(2025, time.February, 2))
	require.NoError(t, err)
	assert.Equal(t, 4, w.Len())
	assert.Len(t, w.Days(), 4)
	assert.True(t, w.Contains(date(2025, time.February, 2)))
	assert.False(t, w.Contains(date(2025, time.February, 3)))
	assert.Equal(t, "[2025-01-30, 2025-02-02]", w.String())
}
