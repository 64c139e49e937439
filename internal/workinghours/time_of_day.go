package workinghours

import (
	"fmt"
	"strings"
	"time"
)

const day = 24 * time.Hour

// TimeOfDay is an offset from local midnight in the range [00:00, 24:00).
type TimeOfDay time.Duration

// Midnight is the start of the day. Collapse also uses it as the end of a
// window that runs past midnight.
const Midnight TimeOfDay = 0

// NewTimeOfDay builds a TimeOfDay from clock components, wrapping at 24h.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	d := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second
	return normalize(d)
}

// Of returns the time-of-day component of t in its own location.
func Of(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Clock())
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Of(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// Clock returns the hour, minute and second.
func (t TimeOfDay) Clock() (hour, minute, second int) {
	d := time.Duration(t)
	hour = int(d / time.Hour)
	minute = int(d % time.Hour / time.Minute)
	second = int(d % time.Minute / time.Second)
	return hour, minute, second
}

// On anchors the time of day to the calendar date of date in loc.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.In(loc).Date()
	h, mi, s := t.Clock()
	return time.Date(y, m, d, h, mi, s, 0, loc)
}

func (t TimeOfDay) String() string {
	h, m, s := t.Clock()
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// MarshalText encodes the value as "HH:MM".
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses "HH:MM" or "HH:MM:SS".
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func normalize(d time.Duration) TimeOfDay {
	d %= day
	if d < 0 {
		d += day
	}
	return TimeOfDay(d)
}
