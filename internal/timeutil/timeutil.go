// Package timeutil has small wall-clock helpers used by the planner and the
// bulletin, which both anchor their horizons to local midnight.
package timeutil

import "time"

// MidnightTonight returns the next local midnight, i.e. 00:00 tomorrow in loc.
// Across a clock change this is still wall-clock midnight.
func MidnightTonight(loc *time.Location) time.Time {
	return MidnightAfter(time.Now(), loc)
}

// MidnightAfter returns the first local midnight in loc after the day of t.
func MidnightAfter(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, loc)
}

// Sequence returns n instants starting at start and stepping by step.
func Sequence(start time.Time, step time.Duration, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * step)
	}
	return out
}
