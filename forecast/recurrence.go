/*
recurrence.go - Recurrence rules for scheduled transactions

PURPOSE:
  A Rule describes how a template transaction repeats: the frequency and
  its day selectors, the interval, and the optional stopping conditions.

SHAPE:
  The frequency-specific selectors live on the Schedule variants, so a
  weekday selector on a monthly rule cannot be written down:

    Daily{}                       every N days
    Weekly{Days: [Mon, Fri]}      every N weeks, on the selected weekdays
    Monthly{Days: [1, 15]}        every N months, on the selected days
    Yearly{Months: [Jan, Jul]}    every N years, in the selected months

  Shared fields (Interval, EndDate, Occurrences) sit on Rule itself.
  An empty selector list means "no selector": the schedule follows the
  anchor date's own weekday / day-of-month / month.

STOPPING:
  EndDate is inclusive. Occurrences counts from the anchor, which is
  occurrence #1. When both are set, whichever is reached first wins.

EXAMPLE:
  // Biweekly paycheck, 26 times
  rule := forecast.EveryWeek().Every(2).Times(26)

  // Rent on the 1st and 15th until the lease ends
  rule := forecast.EveryMonth(1, 15).Until(forecast.MustDate(2026, time.June, 30))

SEE ALSO:
  - occurrence.go: expands a Rule into dates
*/
package forecast

import (
	"time"
)

// Frequency is the cadence unit of a Schedule.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// Schedule is a sealed sum type: only the variants in this package implement it.
type Schedule interface {
	Frequency() Frequency

	validate() error

	// period returns the dates of the cadence period n units after the
	// anchor's own period, ascending and unique. Never empty.
	period(anchor LogicalDate, n int) []LogicalDate
}

// Daily repeats every Interval days.
type Daily struct{}

// Weekly repeats every Interval weeks. With Days set, every selected weekday
// of each active week (Monday to Sunday) is an occurrence.
type Weekly struct {
	Days []Weekday
}

// Monthly repeats every Interval months. With Days set, each selected
// day-of-month is an occurrence, clamped to the month's last day.
type Monthly struct {
	Days []int
}

// Yearly repeats every Interval years. With Months set, each selected month
// gets an occurrence on the anchor's day-of-month (clamped).
type Yearly struct {
	Months []time.Month
}

func (Daily) Frequency() Frequency   { return FreqDaily }
func (Weekly) Frequency() Frequency  { return FreqWeekly }
func (Monthly) Frequency() Frequency { return FreqMonthly }
func (Yearly) Frequency() Frequency  { return FreqYearly }

func (Daily) validate() error { return nil }

func (w Weekly) validate() error {
	for _, d := range w.Days {
		if d < Monday || d > Sunday {
			return &RuleError{Field: "day_of_week", Value: int(d), Reason: "must be within 1..7"}
		}
	}
	return nil
}

func (m Monthly) validate() error {
	for _, d := range m.Days {
		if d < 1 || d > 31 {
			return &RuleError{Field: "day_of_month", Value: d, Reason: "must be within 1..31"}
		}
	}
	return nil
}

func (y Yearly) validate() error {
	for _, m := range y.Months {
		if m < time.January || m > time.December {
			return &RuleError{Field: "month", Value: int(m), Reason: "must be within 1..12"}
		}
	}
	return nil
}

// =============================================================================
// RULE
// =============================================================================

// Rule is the recurrence of one template transaction.
type Rule struct {
	Schedule Schedule

	// Interval multiplies the cadence unit. 0 means 1.
	Interval int

	// EndDate excludes every occurrence after it (inclusive bound).
	EndDate *LogicalDate

	// Occurrences caps the total number of occurrences, anchor included.
	Occurrences *int
}

// Constructors

func EveryDay() Rule                      { return Rule{Schedule: Daily{}, Interval: 1} }
func EveryWeek(days ...Weekday) Rule      { return Rule{Schedule: Weekly{Days: days}, Interval: 1} }
func EveryMonth(days ...int) Rule         { return Rule{Schedule: Monthly{Days: days}, Interval: 1} }
func EveryYear(months ...time.Month) Rule { return Rule{Schedule: Yearly{Months: months}, Interval: 1} }

// Every returns a copy of r with the given interval.
func (r Rule) Every(interval int) Rule {
	r.Interval = interval
	return r
}

// Until returns a copy of r that stops after end.
func (r Rule) Until(end LogicalDate) Rule {
	r.EndDate = &end
	return r
}

// Times returns a copy of r capped at n occurrences.
func (r Rule) Times(n int) Rule {
	r.Occurrences = &n
	return r
}

// Frequency returns the schedule's cadence unit, or "" for an empty rule.
func (r Rule) Frequency() Frequency {
	if r.Schedule == nil {
		return ""
	}
	return r.Schedule.Frequency()
}

// step returns the effective interval.
func (r Rule) step() int {
	if r.Interval <= 0 {
		return 1
	}
	return r.Interval
}

// Validate checks every selector against its domain.
func (r Rule) Validate() error {
	if r.Schedule == nil {
		return &RuleError{Field: "frequency", Reason: "is required"}
	}
	if r.Interval < 0 {
		return &RuleError{Field: "interval", Value: r.Interval, Reason: "must be >= 1"}
	}
	if r.Occurrences != nil && *r.Occurrences < 1 {
		return &RuleError{Field: "occurrences", Value: *r.Occurrences, Reason: "must be >= 1"}
	}
	return r.Schedule.validate()
}
