package workinghours

import (
	"fmt"
	"time"
)

// Worker is anything with a schedule that contributes to coverage.
type Worker interface {
	// TimeZone returns nil when the zone is unknown.
	TimeZone() *time.Location
	// WorkingHours returns nil when the worker uses the default hours.
	WorkingHours() *WorkingHours
}

// CalculateCoverage projects every worker's hours into target and collapses
// them into one normalized set. Workers without a known time zone contribute
// nothing; no workers means no coverage, not round-the-clock coverage.
func CalculateCoverage(workers []Worker, target *time.Location, defaultHours WorkingHours, nowUTC time.Time) ([]WorkingHours, error) {
	projected := make([]WorkingHours, 0, len(workers))
	for _, w := range workers {
		zone := w.TimeZone()
		if zone == nil {
			continue
		}
		hours := defaultHours
		if own := w.WorkingHours(); own != nil {
			hours = *own
		}
		wh, err := ChangeTimeZone(hours, nowUTC, zone, target)
		if err != nil {
			return nil, fmt.Errorf("calculate coverage: %w", err)
		}
		projected = append(projected, wh)
	}
	return Collapse(projected), nil
}
