// Package responsetime measures elapsed business time between two instants,
// counting only the time that falls inside a set of daily working windows.
//
// All functions are pure and safe for concurrent use.
package responsetime

import (
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/support-sla/internal/workinghours"
)

var (
	// ErrResponseBeforeStart is returned when the response precedes the start.
	ErrResponseBeforeStart = errors.New("response precedes start")
	// ErrOvernightWindow is returned when a wrapping window reaches a
	// single-day primitive without being collapsed first.
	ErrOvernightWindow = errors.New("overnight working hours must be collapsed before use")
)

// ElapsedSingleDay returns the overlap between wh, anchored on the date of
// w.Start, and w. A window ending at or before its start runs into the next day.
func ElapsedSingleDay(wh workinghours.WorkingHours, w Window) (time.Duration, error) {
	if wh.IsOvernight() {
		return 0, fmt.Errorf("elapsed %s: %w", wh, ErrOvernightWindow)
	}
	if w.Empty() {
		return 0, nil
	}

	loc := w.Start.Location()
	from := wh.Start.On(w.Start, loc)
	to := wh.End.On(w.Start, loc)
	if wh.End <= wh.Start {
		to = wh.End.On(from.AddDate(0, 0, 1), loc)
	}

	if w.Start.After(from) {
		from = w.Start
	}
	if w.End.Before(to) {
		to = w.End
	}
	if !to.After(from) {
		return 0, nil
	}
	return to.Sub(from), nil
}

// InRange sums the business time wh contributes across r.
func InRange(wh workinghours.WorkingHours, r Range) (time.Duration, error) {
	total, err := ElapsedSingleDay(wh, r.StartDay)
	if err != nil {
		return 0, err
	}
	if r.EndDay != nil {
		endDay, err := ElapsedSingleDay(wh, *r.EndDay)
		if err != nil {
			return 0, err
		}
		total += endDay
	}
	return total + wh.Duration()*time.Duration(r.DaysBetween), nil
}

// Calculate measures the business time between start and response inside
// coverage, with both instants observed in target.
func Calculate(coverage []workinghours.WorkingHours, target *time.Location, start, response time.Time) (time.Duration, error) {
	if response.Before(start) {
		return 0, fmt.Errorf("calculate response time: %w", ErrResponseBeforeStart)
	}
	r, err := NewRange(start.In(target), response.In(target))
	if err != nil {
		return 0, err
	}

	var total time.Duration
	for _, wh := range coverage {
		elapsed, err := InRange(wh, r)
		if err != nil {
			return 0, err
		}
		total += elapsed
	}
	return total, nil
}

// CalculateForWorkers builds the workers' coverage in UTC, anchored on the
// start instant, and measures the business time up to response.
func CalculateForWorkers(workers []workinghours.Worker, defaultHours workinghours.WorkingHours, startUTC, responseUTC time.Time) (time.Duration, error) {
	if startUTC.Location() != time.UTC || responseUTC.Location() != time.UTC {
		return 0, fmt.Errorf("calculate response time: %w", workinghours.ErrNotUTC)
	}
	if responseUTC.Before(startUTC) {
		return 0, fmt.Errorf("calculate response time: %w", ErrResponseBeforeStart)
	}
	coverage, err := workinghours.CalculateCoverage(workers, time.UTC, defaultHours, startUTC)
	if err != nil {
		return 0, err
	}
	return Calculate(coverage, time.UTC, startUTC, responseUTC)
}

// CalculateForWorkingHours measures business time inside a single window as
// observed in zone. Overnight shifts are split before measuring, so this is
// safe to call with any WorkingHours value.
func CalculateForWorkingHours(wh workinghours.WorkingHours, zone *time.Location, start, response time.Time) (time.Duration, error) {
	coverage := []workinghours.WorkingHours{wh}
	if wh.IsOvernight() {
		coverage = workinghours.Collapse(coverage)
	}
	return Calculate(coverage, zone, start, response)
}
