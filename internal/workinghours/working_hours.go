package workinghours

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrNotUTC is returned when an instant that must be UTC carries another location.
var ErrNotUTC = errors.New("instant must be in UTC")

// WorkingHours is a daily half-open window [Start, End) without a date.
// Start > End is an overnight shift; Start == End covers the whole day.
type WorkingHours struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// New builds a WorkingHours value.
func New(start, end TimeOfDay) WorkingHours {
	return WorkingHours{Start: start, End: end}
}

// Parse reads "HH:MM-HH:MM".
func Parse(s string) (WorkingHours, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return WorkingHours{}, fmt.Errorf("invalid working hours %q", s)
	}
	start, err := ParseTimeOfDay(parts[0])
	if err != nil {
		return WorkingHours{}, err
	}
	end, err := ParseTimeOfDay(parts[1])
	if err != nil {
		return WorkingHours{}, err
	}
	return New(start, end), nil
}

// Contains reports whether t falls inside the window, honoring wraparound.
func (wh WorkingHours) Contains(t TimeOfDay) bool {
	switch {
	case wh.Start == wh.End:
		return true
	case wh.Start < wh.End:
		return wh.Start <= t && t < wh.End
	default:
		return t >= wh.Start || t < wh.End
	}
}

// Duration is the length of the window; wrapping windows span midnight.
func (wh WorkingHours) Duration() time.Duration {
	if wh.End > wh.Start {
		return time.Duration(wh.End - wh.Start)
	}
	return day - time.Duration(wh.Start) + time.Duration(wh.End)
}

// IsOvernight reports a window that wraps midnight and has not been split by
// Collapse. Collapse output only ever wraps to exactly Midnight.
func (wh WorkingHours) IsOvernight() bool {
	return wh.End <= wh.Start && wh.End != Midnight
}

func (wh WorkingHours) String() string {
	return wh.Start.String() + "-" + wh.End.String()
}

// ChangeTimeZone projects wh from source into target as observed on the
// calendar date of nowUTC in source. Skipped or repeated local times are
// resolved leniently by time.Date.
func ChangeTimeZone(wh WorkingHours, nowUTC time.Time, source, target *time.Location) (WorkingHours, error) {
	if nowUTC.Location() != time.UTC {
		return WorkingHours{}, fmt.Errorf("change time zone: %w", ErrNotUTC)
	}
	start := wh.Start.On(nowUTC, source).In(target)
	end := wh.End.On(nowUTC, source).In(target)
	return New(Of(start), Of(end)), nil
}

// LoadZone resolves an IANA zone id. Empty or unknown ids yield nil, which
// callers treat as "timezone unknown".
func LoadZone(id string) *time.Location {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	if cached, ok := zones.Load(id); ok {
		return cached.(*time.Location)
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil
	}
	zones.Store(id, loc)
	return loc
}

var zones sync.Map
