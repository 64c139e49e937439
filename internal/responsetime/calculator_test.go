package responsetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-sla/internal/workinghours"
)

// Monday, 15 January 2024.
func monday(hour, minute int) time.Time {
	return time.Date(2024, 1, 15, hour, minute, 0, 0, time.UTC)
}

func hours(start, end int) workinghours.WorkingHours {
	return workinghours.New(workinghours.NewTimeOfDay(start, 0, 0), workinghours.NewTimeOfDay(end, 0, 0))
}

var officeHours = []workinghours.WorkingHours{hours(9, 17)}

type worker struct {
	zone  *time.Location
	hours *workinghours.WorkingHours
}

func (w worker) TimeZone() *time.Location                 { return w.zone }
func (w worker) WorkingHours() *workinghours.WorkingHours { return w.hours }

func TestNewRange(t *testing.T) {
	t.Run("same day", func(t *testing.T) {
		r, err := NewRange(monday(10, 0), monday(12, 0))
		require.NoError(t, err)
		assert.Equal(t, Window{Start: monday(10, 0), End: monday(12, 0)}, r.StartDay)
		assert.Nil(t, r.EndDay)
		assert.Zero(t, r.DaysBetween)
	})

	t.Run("crosses midnight", func(t *testing.T) {
		r, err := NewRange(monday(16, 0), monday(34, 0))
		require.NoError(t, err)
		assert.Equal(t, Window{Start: monday(16, 0), End: monday(24, 0)}, r.StartDay)
		require.NotNil(t, r.EndDay)
		assert.Equal(t, Window{Start: monday(24, 0), End: monday(34, 0)}, *r.EndDay)
		assert.Zero(t, r.DaysBetween)
	})

	t.Run("ends exactly at midnight", func(t *testing.T) {
		r, err := NewRange(monday(16, 0), monday(24, 0))
		require.NoError(t, err)
		assert.Nil(t, r.EndDay)
		assert.Equal(t, monday(24, 0), r.StartDay.End)
	})

	t.Run("several days", func(t *testing.T) {
		r, err := NewRange(monday(10, 0), monday(3*24+10, 0))
		require.NoError(t, err)
		assert.Equal(t, 2, r.DaysBetween)
	})

	t.Run("rejects reversed", func(t *testing.T) {
		_, err := NewRange(monday(12, 0), monday(10, 0))
		assert.ErrorIs(t, err, ErrResponseBeforeStart)
	})
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		response time.Time
		want     time.Duration
	}{
		{"same day", monday(10, 0), monday(12, 0), 2 * time.Hour},
		{"outside hours", monday(18, 0), monday(23, 0), 0},
		{"same instant", monday(10, 0), monday(10, 0), 0},
		{"cross midnight", monday(16, 0), monday(24+10, 0), 2 * time.Hour},
		{"multi day", monday(10, 0), monday(3*24+10, 0), 24 * time.Hour},
		{"starts before opening", monday(7, 0), monday(9, 30), 30 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(officeHours, time.UTC, tt.start, tt.response)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculate_ResponseBeforeStart(t *testing.T) {
	got, err := Calculate(officeHours, time.UTC, monday(12, 0), monday(10, 0))
	assert.ErrorIs(t, err, ErrResponseBeforeStart)
	assert.Zero(t, got)
}

func TestCalculate_InTargetZone(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 08:00 to 11:00 in New York.
	got, err := Calculate(officeHours, newYork, monday(13, 0), monday(16, 0))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, got)
}

func TestCalculate_SplitCoverage(t *testing.T) {
	coverage := workinghours.Collapse([]workinghours.WorkingHours{hours(22, 6)})

	got, err := Calculate(coverage, time.UTC, monday(23, 0), monday(24+5, 0))
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, got)
}

func TestElapsedSingleDay(t *testing.T) {
	got, err := ElapsedSingleDay(hours(9, 17), Window{Start: monday(8, 0), End: monday(24, 0)})
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, got)

	toMidnight := workinghours.New(workinghours.NewTimeOfDay(22, 0, 0), workinghours.Midnight)
	got, err = ElapsedSingleDay(toMidnight, Window{Start: monday(23, 0), End: monday(24, 0)})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, got)

	got, err = ElapsedSingleDay(hours(9, 17), Window{Start: monday(10, 0), End: monday(10, 0)})
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = ElapsedSingleDay(hours(22, 6), Window{Start: monday(0, 0), End: monday(24, 0)})
	assert.ErrorIs(t, err, ErrOvernightWindow)
}

func TestCalculateForWorkingHours_Graveyard(t *testing.T) {
	got, err := CalculateForWorkingHours(hours(22, 6), time.UTC, monday(20, 0), monday(2*24+7, 0))
	require.NoError(t, err)
	// Mon 22-24, all of Tue's 8h, Wed 00-06.
	assert.Equal(t, 16*time.Hour, got)

	got, err = CalculateForWorkingHours(hours(9, 17), time.UTC, monday(10, 0), monday(12, 0))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, got)
}

func TestCalculateForWorkers(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	office := hours(9, 17)

	// New York office hours are 14:00-22:00 UTC in January.
	got, err := CalculateForWorkers([]workinghours.Worker{worker{zone: newYork}}, office, monday(13, 0), monday(15, 0))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, got)

	got, err = CalculateForWorkers([]workinghours.Worker{worker{}}, office, monday(13, 0), monday(15, 0))
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = CalculateForWorkers(nil, office, monday(13, 0).In(newYork), monday(15, 0))
	assert.ErrorIs(t, err, workinghours.ErrNotUTC)

	_, err = CalculateForWorkers(nil, office, monday(15, 0), monday(13, 0))
	assert.ErrorIs(t, err, ErrResponseBeforeStart)
}
