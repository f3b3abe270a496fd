// Package optimization finds the cheapest heating schedule that maintains
// acceptable temperatures, using differential evolution over an encoded
// schedule vector.
package optimization

import (
	"math"

	"github.com/kentwell/heatplan/internal/modules/thermal"
)

// Schedule is a concrete heating plan: storage-heater charge intervals and
// timed direct-heating intervals, in simulation hours.
type Schedule struct {
	Storage []thermal.Interval
	Direct  []thermal.PowerInterval
}

// decodeSchedule maps an optimization vector to a Schedule.
//
// The vector's length is 5n for n heating periods. The first 2n elements are
// cumulative (offset, duration) pairs for the storage heater: it turns on
// vec[0] hours after startT, off vec[1] hours later, on again vec[2] hours
// after that, and so on. The remaining 3n elements are cumulative
// (offset, duration, power) triples for direct heating. All times are capped
// at maxT. When rounded is set, times snap to the nearest 10 minutes and
// powers to the nearest 0.5 kW before capping.
func decodeSchedule(vec []float64, startT, maxT float64, rounded bool) Schedule {
	n := len(vec) / 5
	sched := Schedule{
		Storage: make([]thermal.Interval, 0, n),
		Direct:  make([]thermal.PowerInterval, 0, n),
	}

	lastT := startT
	for i := 0; i < n; i++ {
		start := lastT + vec[2*i]
		end := start + vec[2*i+1]
		if rounded {
			start = math.Round(6*start) / 6
			end = math.Round(6*end) / 6
		}
		start = math.Min(maxT, start)
		end = math.Min(maxT, end)
		sched.Storage = append(sched.Storage, thermal.Interval{Start: start, End: end})
		lastT = end
	}

	lastT = startT
	for i := 0; i < n; i++ {
		start := lastT + vec[2*n+3*i]
		end := start + vec[2*n+3*i+1]
		power := vec[2*n+3*i+2]
		if rounded {
			start = math.Round(6*start) / 6
			end = math.Round(6*end) / 6
			power = math.Round(2*power) / 2
		}
		start = math.Min(maxT, start)
		end = math.Min(maxT, end)
		sched.Direct = append(sched.Direct, thermal.PowerInterval{Start: start, End: end, Power: power})
		lastT = end
	}
	return sched
}
