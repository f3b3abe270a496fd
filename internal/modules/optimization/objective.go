package optimization

import (
	"math"

	"github.com/kentwell/heatplan/internal/modules/pricing"
	"github.com/kentwell/heatplan/internal/modules/thermal"
)

// simulateFunc matches thermal.Building.Simulate.
type simulateFunc func(init thermal.State, storage []thermal.Interval, direct thermal.DirectHeat, other []thermal.PowerInterval, outdoor []float64, constraints []thermal.Constraint) (*thermal.Trajectory, []float64, error)

// Penalty magnitudes. The ordering penalty dominates the time penalty, which
// in turn dominates any plausible energy cost, so constraint violations are
// never traded against price.
const (
	orderingPenalty  = 1e20
	timePenaltyPerHr = 1e10
)

// objective scores candidate schedule vectors. ranges must be sorted by start
// time ascending. Safe for concurrent calls.
type objective struct {
	sim            simulateFunc
	ranges         []thermal.Constraint
	init           thermal.State
	other          []thermal.PowerInterval
	outdoor        []float64
	prices         []float64
	endT           float64
	penaltyPerHeat float64
}

func (o *objective) cost(vec []float64) float64 {
	startT := o.init.Time
	pricesEndT := startT + 0.5*float64(len(o.prices))
	sched := decodeSchedule(vec, startT, pricesEndT, true)

	// Zero-length (or zero-energy) periods must come after non-zero ones, so
	// the optimizer need not explore redundant encodings of the same
	// schedule. When violated the simulation is skipped entirely.
	penalty := 0.0
	for i := 1; i < len(sched.Storage); i++ {
		if sched.Storage[i-1].Length() == 0 && sched.Storage[i].Length() != 0 {
			penalty += orderingPenalty
		}
	}
	for i := 1; i < len(sched.Direct); i++ {
		if sched.Direct[i-1].Energy() == 0 && sched.Direct[i].Energy() != 0 {
			penalty += orderingPenalty
		}
	}
	if penalty != 0 {
		return penalty
	}

	traj, usage, err := o.sim(
		o.init, sched.Storage, thermal.DirectIntervals(sched.Direct...),
		o.other, o.outdoor, o.ranges,
	)
	if err != nil {
		return math.Inf(1)
	}

	cost, err := pricing.Cost(o.prices, usage)
	if err != nil {
		return math.Inf(1)
	}

	// Heavy penalty if acceptable temperatures are not maintained long enough.
	if firstDev := firstDeviation(traj.Times, traj.Air, o.ranges); firstDev < o.endT {
		cost += timePenaltyPerHr * (o.endT - firstDev)
	}

	// Inconvenience penalty for each heating period actually used.
	numHeats := 0
	for _, iv := range sched.Storage {
		if iv.Length() > 0 {
			numHeats++
		}
	}
	for _, iv := range sched.Direct {
		if iv.Energy() > 0 {
			numHeats++
		}
	}
	return cost + float64(numHeats)*o.penaltyPerHeat
}

// firstDeviation returns the time at which the simulated air temperature
// first leaves the acceptable range, or the final time if it never does.
// Samples exactly at a changeover between ranges are judged against the more
// permissive of the two adjoining ranges. ranges must be sorted by start time
// ascending.
func firstDeviation(times, airs []float64, ranges []thermal.Constraint) float64 {
	minTemp, maxTemp := ranges[0].Min, ranges[0].Max
	next := 1
	for i, t := range times {
		for next < len(ranges) && ranges[next].Start < t {
			minTemp, maxTemp = ranges[next].Min, ranges[next].Max
			next++
		}
		lo, hi := minTemp, maxTemp
		if next < len(ranges) && ranges[next].Start == t {
			lo = math.Min(ranges[next-1].Min, ranges[next].Min)
			hi = math.Max(ranges[next-1].Max, ranges[next].Max)
		}
		if airs[i] < lo || airs[i] > hi {
			return t
		}
	}
	return times[len(times)-1]
}
