package workinghours

import "time"

const (
	slotLength = 30 * time.Minute
	slotCount  = int(day / slotLength)
)

// Collapse merges overlapping or touching windows into the minimal covering
// set, ordered by start.
//
// The day is quantized into half-hour slots: a slot is covered when any input
// contains its start. Boundaries finer than 30 minutes are rounded to the
// slot grid. A run that reaches the end of the day ends at Midnight, which is
// indistinguishable from a window that legitimately ends at midnight.
func Collapse(hours []WorkingHours) []WorkingHours {
	if len(hours) == 0 {
		return nil
	}

	var covered [slotCount]bool
	for i := range covered {
		slot := TimeOfDay(time.Duration(i) * slotLength)
		for _, wh := range hours {
			if wh.Contains(slot) {
				covered[i] = true
				break
			}
		}
	}

	var result []WorkingHours
	runStart := -1
	for i := 0; i < slotCount; i++ {
		switch {
		case covered[i] && runStart < 0:
			runStart = i
		case !covered[i] && runStart >= 0:
			result = append(result, New(slotStart(runStart), slotStart(i)))
			runStart = -1
		}
	}
	if runStart >= 0 {
		result = append(result, New(slotStart(runStart), Midnight))
	}
	return result
}

func slotStart(i int) TimeOfDay {
	return TimeOfDay(time.Duration(i) * slotLength)
}
