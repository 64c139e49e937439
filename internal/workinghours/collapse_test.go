package workinghours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollapse(t *testing.T) {
	tests := []struct {
		name  string
		input []WorkingHours
		want  []WorkingHours
	}{
		{
			name:  "empty",
			input: nil,
			want:  nil,
		},
		{
			name: "overlapping chain merges",
			input: []WorkingHours{
				New(hm(9, 0), hm(11, 0)),
				New(hm(10, 0), hm(12, 0)),
				New(hm(11, 0), hm(13, 0)),
			},
			want: []WorkingHours{New(hm(9, 0), hm(13, 0))},
		},
		{
			name: "disjoint groups stay apart",
			input: []WorkingHours{
				New(hm(1, 0), hm(3, 0)),
				New(hm(2, 0), hm(4, 0)),
				New(hm(6, 0), hm(8, 0)),
				New(hm(7, 0), hm(9, 0)),
			},
			want: []WorkingHours{
				New(hm(1, 0), hm(4, 0)),
				New(hm(6, 0), hm(9, 0)),
			},
		},
		{
			name: "touching windows merge",
			input: []WorkingHours{
				New(hm(13, 0), hm(17, 0)),
				New(hm(9, 0), hm(13, 0)),
			},
			want: []WorkingHours{New(hm(9, 0), hm(17, 0))},
		},
		{
			name:  "overnight shift splits at midnight",
			input: []WorkingHours{New(hm(22, 0), hm(6, 0))},
			want: []WorkingHours{
				New(Midnight, hm(6, 0)),
				New(hm(22, 0), Midnight),
			},
		},
		{
			name: "full coverage",
			input: []WorkingHours{
				New(hm(8, 0), hm(20, 0)),
				New(hm(20, 0), hm(8, 0)),
			},
			want: []WorkingHours{New(Midnight, Midnight)},
		},
		{
			name:  "sub-slot boundaries are quantized",
			input: []WorkingHours{New(hm(9, 15), hm(10, 0))},
			want:  []WorkingHours{New(hm(9, 30), hm(10, 0))},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Collapse(tt.input))
		})
	}
}

func TestCollapse_Idempotent(t *testing.T) {
	inputs := [][]WorkingHours{
		{New(hm(9, 0), hm(17, 0))},
		{New(hm(22, 0), hm(6, 0)), New(hm(5, 0), hm(9, 0))},
		{New(hm(1, 0), hm(3, 0)), New(hm(2, 0), hm(4, 0)), New(hm(6, 0), hm(8, 0))},
		{New(hm(8, 0), hm(20, 0)), New(hm(20, 0), hm(8, 0))},
		{New(hm(9, 10), hm(9, 50)), New(hm(23, 45), hm(0, 15))},
	}
	for _, input := range inputs {
		once := Collapse(input)
		assert.Equal(t, once, Collapse(once), "input %v", input)
	}
}

func TestCollapse_OutputIsNormalized(t *testing.T) {
	out := Collapse([]WorkingHours{
		New(hm(18, 0), hm(2, 0)),
		New(hm(9, 0), hm(12, 0)),
		New(hm(11, 30), hm(14, 0)),
	})
	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		assert.Less(t, out[i-1].End, out[i].Start, "windows must be ordered and non-adjacent")
	}
	for _, wh := range out {
		assert.False(t, wh.IsOvernight())
	}
}

type stubWorker struct {
	zone  *time.Location
	hours *WorkingHours
}

func (w stubWorker) TimeZone() *time.Location   { return w.zone }
func (w stubWorker) WorkingHours() *WorkingHours { return w.hours }

func TestCalculateCoverage(t *testing.T) {
	newYork := mustZone(t, "America/New_York")
	london := mustZone(t, "Europe/London")
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	office := New(hm(9, 0), hm(17, 0))
	early := New(hm(6, 0), hm(8, 0))

	workers := []Worker{
		stubWorker{zone: newYork},
		stubWorker{zone: london},
		stubWorker{zone: london, hours: &early},
		stubWorker{hours: &early},
	}

	coverage, err := CalculateCoverage(workers, time.UTC, office, now)
	require.NoError(t, err)
	assert.Equal(t, []WorkingHours{
		New(hm(6, 0), hm(8, 0)),
		New(hm(9, 0), hm(22, 0)),
	}, coverage)
}

func TestCalculateCoverage_NoKnownZones(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	coverage, err := CalculateCoverage([]Worker{stubWorker{}}, time.UTC, New(hm(9, 0), hm(17, 0)), now)
	require.NoError(t, err)
	assert.Empty(t, coverage)
}
