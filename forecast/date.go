package forecast

import (
	"strconv"
	"time"

	"cloud.google.com/go/civil"
)

// =============================================================================
// LOGICAL DATE - Calendar date with no time-of-day and no timezone
// =============================================================================

// LogicalDate is an immutable proleptic Gregorian calendar date.
//
// It is the only date type the engine touches. Two LogicalDates with the same
// year, month and day are equal no matter where they were built, so values
// can be compared with == and used as map keys.
type LogicalDate struct {
	d civil.Date
}

// Weekday is an ISO weekday: 1 (Monday) through 7 (Sunday).
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

func (w Weekday) String() string {
	if w < Monday || w > Sunday {
		return "Weekday(" + strconv.Itoa(int(w)) + ")"
	}
	// time.Weekday counts from Sunday = 0
	return time.Weekday(int(w) % 7).String()
}

// Constructors

// NewDate builds a date, rejecting impossible ones such as April 31.
func NewDate(year int, month time.Month, day int) (LogicalDate, error) {
	cd := civil.Date{Year: year, Month: month, Day: day}
	if !cd.IsValid() {
		return LogicalDate{}, &DateError{Input: cd.String(), Err: ErrInvalidCalendarDate}
	}
	return LogicalDate{d: cd}, nil
}

// MustDate is NewDate for literals. It panics on an impossible date.
func MustDate(year int, month time.Month, day int) LogicalDate {
	d, err := NewDate(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar date of t in t's own location.
// Boundary helper only: the engine itself never looks at clocks.
func DateOf(t time.Time) LogicalDate {
	return LogicalDate{d: civil.DateOf(t)}
}

// ParseDate parses exactly YYYY-MM-DD.
func ParseDate(s string) (LogicalDate, error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return LogicalDate{}, &DateError{Input: s, Err: ErrInvalidDateFormat}
	}
	year, ok1 := digits(s[0:4])
	month, ok2 := digits(s[5:7])
	day, ok3 := digits(s[8:10])
	if !ok1 || !ok2 || !ok3 {
		return LogicalDate{}, &DateError{Input: s, Err: ErrInvalidDateFormat}
	}
	cd := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !cd.IsValid() {
		return LogicalDate{}, &DateError{Input: s, Err: ErrInvalidCalendarDate}
	}
	return LogicalDate{d: cd}, nil
}

// digits parses an unsigned decimal made only of ASCII digits.
func digits(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// Properties
func (ld LogicalDate) Year() int         { return ld.d.Year }
func (ld LogicalDate) Month() time.Month { return ld.d.Month }
func (ld LogicalDate) Day() int          { return ld.d.Day }
func (ld LogicalDate) IsZero() bool      { return ld.d == civil.Date{} }
func (ld LogicalDate) Civil() civil.Date { return ld.d }
func (ld LogicalDate) String() string    { return ld.d.String() }

// Weekday returns the ISO weekday (Monday = 1, Sunday = 7).
func (ld LogicalDate) Weekday() Weekday {
	wd := ld.d.In(time.UTC).Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// Comparison

// Compare returns -1, 0 or +1 ordering by (year, month, day).
func (ld LogicalDate) Compare(other LogicalDate) int {
	switch {
	case ld.d.Year != other.d.Year:
		return sign(ld.d.Year - other.d.Year)
	case ld.d.Month != other.d.Month:
		return sign(int(ld.d.Month) - int(other.d.Month))
	default:
		return sign(ld.d.Day - other.d.Day)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func (ld LogicalDate) Before(other LogicalDate) bool        { return ld.Compare(other) < 0 }
func (ld LogicalDate) After(other LogicalDate) bool         { return ld.Compare(other) > 0 }
func (ld LogicalDate) Equal(other LogicalDate) bool         { return ld == other }
func (ld LogicalDate) BeforeOrEqual(other LogicalDate) bool { return ld.Compare(other) <= 0 }
func (ld LogicalDate) AfterOrEqual(other LogicalDate) bool  { return ld.Compare(other) >= 0 }

// DaysSince returns the signed number of days from other to ld.
func (ld LogicalDate) DaysSince(other LogicalDate) int { return ld.d.DaysSince(other.d) }

// Arithmetic

// AddDays moves forward (or backward for negative n) across month and year boundaries.
func (ld LogicalDate) AddDays(n int) LogicalDate {
	return LogicalDate{d: ld.d.AddDays(n)}
}

// AddMonths adds calendar months. When the target month is shorter than the
// current day-of-month, the result is the last day of the target month:
// 2025-01-31 + 1 month = 2025-02-28.
func (ld LogicalDate) AddMonths(n int) LogicalDate {
	total := ld.d.Year*12 + int(ld.d.Month) - 1 + n
	year := total / 12
	if total%12 < 0 {
		year--
	}
	month := time.Month(total - year*12 + 1)
	return clamped(year, month, ld.d.Day)
}

// AddYears adds calendar years, clamping Feb 29 to Feb 28 in common years.
func (ld LogicalDate) AddYears(n int) LogicalDate {
	return ld.AddMonths(12 * n)
}

// clamped builds year-month-day, pulling day back to the month's last day.
func clamped(year int, month time.Month, day int) LogicalDate {
	return LogicalDate{d: civil.Date{Year: year, Month: month, Day: min(day, DaysIn(year, month))}}
}

// Encoding

func (ld LogicalDate) MarshalText() ([]byte, error) {
	return []byte(ld.String()), nil
}

func (ld *LogicalDate) UnmarshalText(data []byte) error {
	d, err := ParseDate(string(data))
	if err != nil {
		return err
	}
	*ld = d
	return nil
}

// =============================================================================
// CALENDAR UTILITIES
// =============================================================================

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func StartOfMonth(year int, month time.Month) LogicalDate { return clamped(year, month, 1) }
func EndOfMonth(year int, month time.Month) LogicalDate   { return clamped(year, month, 31) }
