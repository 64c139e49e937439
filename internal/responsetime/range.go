package responsetime

import (
	"fmt"
	"time"
)

// Window is an interval between two instants.
type Window struct {
	Start time.Time
	End   time.Time
}

// Empty reports a zero-length window.
func (w Window) Empty() bool {
	return w.Start.Equal(w.End)
}

// Range splits [start, end] into a partial start day, an optional partial end
// day, and the count of whole calendar days between them.
type Range struct {
	StartDay    Window
	EndDay      *Window
	DaysBetween int
}

// NewRange builds the Range for start and end as observed in start's location.
func NewRange(start, end time.Time) (Range, error) {
	if end.Before(start) {
		return Range{}, fmt.Errorf("response time range: %w", ErrResponseBeforeStart)
	}
	end = end.In(start.Location())

	boundary := startOfDay(start).AddDate(0, 0, 1)
	if !end.After(boundary) {
		return Range{StartDay: Window{Start: start, End: end}}, nil
	}

	endDayStart := startOfDay(end)
	return Range{
		StartDay:    Window{Start: start, End: boundary},
		EndDay:      &Window{Start: endDayStart, End: end},
		DaysBetween: calendarDays(boundary, endDayStart),
	}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// calendarDays counts dates from a up to b, independent of DST shifts.
func calendarDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from) / (24 * time.Hour))
}
