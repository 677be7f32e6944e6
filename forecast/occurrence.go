/*
occurrence.go - Expands a recurrence Rule into concrete dates

PURPOSE:
  The occurrence generator answers "on which days does this template fire
  inside [windowStart, windowEnd]?".

ALGORITHM:
  The rule's cadence is cut into periods: period k covers the day, week,
  month or year that is k*Interval units after the anchor's own period.
  Each period yields its selector dates in ascending order; periods never
  overlap, so the merged stream is strictly ascending without a sort.

    anchor               always occurrence #1
    period 0 dates       only those strictly after the anchor
    period 1, 2, ...     all selector dates

  Counting (Occurrences) starts at the anchor and ignores the query window,
  so a window that begins after several elapsed occurrences still sees the
  right remaining count.

TERMINATION:
  Generation is lazy (Sequence.Next) and stops at the first date past
  min(EndDate, windowEnd) or once the count cap is reached. Rules without
  an occurrence cap skip ahead to the window start instead of walking
  from the anchor.

SEE ALSO:
  - recurrence.go: Rule and Schedule variants
  - projection.go: consumes the generator
*/
package forecast

import "slices"

// GenerateOccurrences returns the ascending, de-duplicated occurrences of rule
// anchored at anchor that fall within [windowStart, windowEnd].
func GenerateOccurrences(rule Rule, anchor, windowStart, windowEnd LogicalDate) ([]LogicalDate, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if anchor.IsZero() {
		return nil, &DateError{Input: anchor.String(), Err: ErrInvalidCalendarDate}
	}
	window, err := NewWindow(windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	return expand(rule, anchor, window), nil
}

// expand assumes rule, anchor and window are already valid.
func expand(rule Rule, anchor LogicalDate, window Window) []LogicalDate {
	var dates []LogicalDate
	seq := rule.Sequence(anchor)
	seq.skipTo(window.Start)
	for {
		d, ok := seq.Next()
		if !ok || d.After(window.End) {
			break
		}
		if d.AfterOrEqual(window.Start) {
			dates = append(dates, d)
		}
	}
	return dates
}

// =============================================================================
// SEQUENCE - Lazy occurrence cursor
// =============================================================================

// Sequence walks the occurrences of a rule in ascending order.
// A rule with neither EndDate nor Occurrences never runs out: callers must
// stop on their own upper bound.
type Sequence struct {
	schedule Schedule
	anchor   LogicalDate
	step     int
	end      *LogicalDate
	limit    int // 0 = unbounded

	emitted int
	started bool
	done    bool
	k       int
	pending []LogicalDate
}

// Sequence returns a cursor over the rule's occurrences from anchor.
// The rule is expected to be valid.
func (r Rule) Sequence(anchor LogicalDate) *Sequence {
	s := &Sequence{
		schedule: normalize(r.Schedule),
		anchor:   anchor,
		step:     r.step(),
		end:      r.EndDate,
	}
	if r.Occurrences != nil {
		s.limit = *r.Occurrences
	}
	return s
}

// Next returns the next occurrence, or false once the rule is exhausted.
func (s *Sequence) Next() (LogicalDate, bool) {
	if s.done {
		return LogicalDate{}, false
	}
	if s.limit > 0 && s.emitted >= s.limit {
		s.done = true
		return LogicalDate{}, false
	}

	var next LogicalDate
	if !s.started {
		s.started = true
		next = s.anchor
	} else {
		for len(s.pending) == 0 {
			dates := s.schedule.period(s.anchor, s.k*s.step)
			s.k++
			for _, d := range dates {
				if d.After(s.anchor) {
					s.pending = append(s.pending, d)
				}
			}
		}
		next = s.pending[0]
		s.pending = s.pending[1:]
	}

	if s.end != nil && next.After(*s.end) {
		s.done = true
		return LogicalDate{}, false
	}
	s.emitted++
	return next, true
}

// skipTo fast-forwards an uncapped sequence to the period just before from.
// Capped sequences must count every occurrence, so they are left alone.
func (s *Sequence) skipTo(from LogicalDate) {
	if s.started || s.limit > 0 || !s.anchor.Before(from) {
		return
	}
	var units int
	switch s.schedule.(type) {
	case Daily:
		units = from.DaysSince(s.anchor)
	case Weekly:
		units = from.DaysSince(s.anchor) / 7
	case Monthly:
		units = (from.Year()-s.anchor.Year())*12 + int(from.Month()) - int(s.anchor.Month())
	case Yearly:
		units = from.Year() - s.anchor.Year()
	}
	k := units/s.step - 1
	if k <= 0 {
		return
	}
	// The anchor and every period before k lie before from.
	s.started = true
	s.k = k
}

// =============================================================================
// PERIODS - One cadence unit per schedule variant
// =============================================================================

func (Daily) period(anchor LogicalDate, n int) []LogicalDate {
	d := anchor.AddDays(n)
	return []LogicalDate{d}
}

func (w Weekly) period(anchor LogicalDate, n int) []LogicalDate {
	if len(w.Days) == 0 {
		d := anchor.AddDays(7 * n)
		return []LogicalDate{d}
	}
	weekStart := anchor.AddDays(-int(anchor.Weekday()-Monday) + 7*n)
	dates := make([]LogicalDate, 0, len(w.Days))
	for _, wd := range w.Days {
		dates = append(dates, weekStart.AddDays(int(wd-Monday)))
	}
	return dates
}

func (m Monthly) period(anchor LogicalDate, n int) []LogicalDate {
	if len(m.Days) == 0 {
		d := anchor.AddMonths(n)
		return []LogicalDate{d}
	}
	first := StartOfMonth(anchor.Year(), anchor.Month()).AddMonths(n)
	dates := make([]LogicalDate, 0, len(m.Days))
	for _, day := range m.Days {
		d := clamped(first.Year(), first.Month(), day)
		// 29, 30 and 31 all clamp to Feb 28 in a common year
		if len(dates) > 0 && dates[len(dates)-1] == d {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

func (y Yearly) period(anchor LogicalDate, n int) []LogicalDate {
	if len(y.Months) == 0 {
		d := anchor.AddYears(n)
		return []LogicalDate{d}
	}
	year := anchor.Year() + n
	dates := make([]LogicalDate, 0, len(y.Months))
	for _, m := range y.Months {
		dates = append(dates, clamped(year, m, anchor.Day()))
	}
	return dates
}

// normalize returns a copy of s with sorted, unique selectors.
func normalize(s Schedule) Schedule {
	switch v := s.(type) {
	case Weekly:
		return Weekly{Days: sortedUnique(v.Days)}
	case Monthly:
		return Monthly{Days: sortedUnique(v.Days)}
	case Yearly:
		return Yearly{Months: sortedUnique(v.Months)}
	default:
		return s
	}
}

func sortedUnique[T ~int](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
