package engine

import (
	"gorla/domain/core"
)

// ScheduleEntry pairs a round size with its stopping size. Kmin is nil
// when no winner count at that size satisfies the stop rule.
type ScheduleEntry struct {
	Size int  `json:"size"`
	Kmin *int `json:"kmin"`
}

// KminSchedule computes stopping sizes for a fixed cumulative round
// schedule, the bulk-mode workflow.
func KminSchedule(e Engine, rounds []int, maxSample int) ([]ScheduleEntry, error) {
	if len(rounds) < 1 {
		return nil, core.NewInvalidRoundError("round schedule must contain at least 1 round")
	}
	prev := 0
	for _, n := range rounds {
		if n < 1 {
			return nil, core.NewInvalidRoundError("sample size must be at least 1")
		}
		if n > maxSample {
			return nil, core.NewInvalidRoundError("sample size exceeds the maximum fraction to draw")
		}
		if n <= prev {
			return nil, core.NewInvalidRoundError("sample sizes must be in increasing order")
		}
		prev = n
	}

	entries := make([]ScheduleEntry, 0, len(rounds))
	for _, n := range rounds {
		entry := ScheduleEntry{Size: n}
		if kmin, ok := e.Kmin(n); ok {
			k := kmin
			entry.Kmin = &k
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
