package forecast

// =============================================================================
// WINDOW - Inclusive query range for occurrences and projections
// =============================================================================

// Window is an inclusive [Start, End] range of calendar days.
// Every projection and occurrence query is bounded by one; the engine has
// no "open ended" queries, which is what bounds its work.
type Window struct {
	Start LogicalDate
	End   LogicalDate
}

// NewWindow validates that end is not before start.
func NewWindow(start, end LogicalDate) (Window, error) {
	w := Window{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Validate returns ErrInvalidRange when End is before Start.
func (w Window) Validate() error {
	if w.End.Before(w.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Contains returns true if d is within [Start, End].
func (w Window) Contains(d LogicalDate) bool {
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

// Len returns the number of days in the window (inclusive).
func (w Window) Len() int {
	return w.End.DaysSince(w.Start) + 1
}

// Days returns all days in the window.
func (w Window) Days() []LogicalDate {
	if w.End.Before(w.Start) {
		return nil
	}
	days := make([]LogicalDate, 0, w.Len())
	for current := w.Start; current.BeforeOrEqual(w.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Shift moves both ends by n days.
func (w Window) Shift(n int) Window {
	return Window{Start: w.Start.AddDays(n), End: w.End.AddDays(n)}
}

func (w Window) String() string {
	return "[" + w.Start.String() + ", " + w.End.String() + "]"
}
