package optimization

import (
	"fmt"
	"math"
	"sort"

	"github.com/kentwell/heatplan/internal/modules/pricing"
	"github.com/kentwell/heatplan/internal/modules/thermal"
)

// Options carries the tunable parameters of the schedule search.
type Options struct {
	// PopSize is the differential-evolution population multiplier.
	PopSize int
	// Workers is the number of concurrent simulation goroutines.
	Workers int
	// MaxGenerations caps the search.
	MaxGenerations int
	// Seed makes searches reproducible.
	Seed int64

	// costOverride replaces the real objective in tests.
	costOverride func(vec []float64) float64
}

// HeatResult is the cheapest heating found by CheapestHeat.
type HeatResult struct {
	// Schedule is the winning heating plan, rounded to 10-minute times and
	// 0.5 kW powers.
	Schedule Schedule
	// TotalEnergy is the electricity the schedule actually uses, in kWh.
	TotalEnergy float64
	// Cost is the price of that electricity in pence, excluding any
	// inconvenience penalties.
	Cost float64
	// ActualEnd is the time until which acceptable temperatures are actually
	// maintained.
	ActualEnd float64
	// Trajectory holds the simulated temperatures under the schedule.
	Trajectory *thermal.Trajectory
}

// CheapestHeat searches for the cheapest heating schedule that maintains
// acceptable temperatures from init.Time until endT.
//
// ranges give the acceptable temperature windows over time (the first should
// start at init.Time); dhMaxPow bounds the direct heating power; other is
// unmetered incidental heat; outdoor is the hourly temperature forecast
// starting at init.Time; prices are the half-hourly unit prices starting at
// init.Time, and heating is only scheduled while prices are available.
// numHeats bounds how many storage and direct heating periods the schedule
// may use; each period used costs penaltyPerHeat pence during the search
// (the penalty is not included in the returned cost). When numHeats is zero
// the search is skipped and the no-heating outcome is reported.
func CheapestHeat(
	b *thermal.Building,
	ranges []thermal.Constraint,
	init thermal.State,
	dhMaxPow float64,
	other []thermal.PowerInterval,
	outdoor []float64,
	prices []float64,
	endT float64,
	numHeats int,
	penaltyPerHeat float64,
	opts Options,
) (*HeatResult, error) {
	startT := init.Time
	sorted := make([]thermal.Constraint, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var vec []float64
	if numHeats > 0 {
		totalPricesTime := 0.5 * float64(len(prices))
		bounds := make([][2]float64, 0, 5*numHeats)
		for i := 0; i < 2*numHeats; i++ {
			bounds = append(bounds, [2]float64{0, totalPricesTime})
		}
		for i := 0; i < numHeats; i++ {
			bounds = append(bounds,
				[2]float64{0, totalPricesTime},
				[2]float64{0, totalPricesTime},
				[2]float64{0, dhMaxPow},
			)
		}

		// Temperatures only matter until endT, so the search simulates a
		// truncated forecast for speed.
		odTemps := outdoor
		if maxLen := 2 + int(endT-startT); len(odTemps) > maxLen {
			odTemps = odTemps[:maxLen]
		}
		obj := &objective{
			sim:            b.Simulate,
			ranges:         sorted,
			init:           init,
			other:          other,
			outdoor:        odTemps,
			prices:         prices,
			endT:           endT,
			penaltyPerHeat: penaltyPerHeat,
		}
		costFn := obj.cost
		if opts.costOverride != nil {
			costFn = opts.costOverride
		}

		res, err := Minimize(Problem{
			Objective:      costFn,
			Bounds:         bounds,
			PopSize:        opts.PopSize,
			MaxGenerations: opts.MaxGenerations,
			Tol:            0.01,
			Atol:           0.5, // half a penny
			Workers:        opts.Workers,
			Seed:           opts.Seed,
		})
		if err != nil {
			return nil, fmt.Errorf("schedule search failed: %w", err)
		}
		vec = res.X
	}

	return finishSchedule(b, vec, sorted, init, other, outdoor, prices, endT)
}

// finishSchedule decodes the winning vector and re-simulates it over the full
// forecast to derive the reported energy, cost, end time and trajectory.
func finishSchedule(
	b *thermal.Building,
	vec []float64,
	sorted []thermal.Constraint,
	init thermal.State,
	other []thermal.PowerInterval,
	outdoor []float64,
	prices []float64,
	endT float64,
) (*HeatResult, error) {
	startT := init.Time
	pricesEndT := startT + 0.5*float64(len(prices))
	sched := decodeSchedule(vec, startT, pricesEndT, true)

	traj, usage, err := b.Simulate(
		init, sched.Storage, thermal.DirectIntervals(sched.Direct...),
		other, outdoor, sorted,
	)
	if err != nil {
		return nil, fmt.Errorf("simulating winning schedule: %w", err)
	}
	cost, err := pricing.Cost(prices, usage)
	if err != nil {
		return nil, fmt.Errorf("costing winning schedule: %w", err)
	}

	total := 0.0
	for _, u := range usage {
		total += u
	}
	return &HeatResult{
		Schedule:    sched,
		TotalEnergy: total,
		Cost:        cost,
		ActualEnd:   firstDeviation(traj.Times, traj.Air, sorted),
		Trajectory:  traj,
	}, nil
}

// UsefulHeatEnergy returns the minimum heating in kWh required to maintain
// acceptable temperatures until endT, assuming a perfect heating system with
// no power limit or timing constraints.
func UsefulHeatEnergy(
	b *thermal.Building,
	ranges []thermal.Constraint,
	init thermal.State,
	other []thermal.PowerInterval,
	outdoor []float64,
	endT float64,
) (float64, error) {
	startT := init.Time
	if float64(len(outdoor)) < endT-startT+1 {
		return 0, fmt.Errorf("insufficient temperature data")
	}

	// No heat should count after endT, so the constraints are truncated there
	// and replaced with an unbounded range.
	sorted := make([]thermal.Constraint, 0, len(ranges)+1)
	for _, c := range ranges {
		if c.Start < endT {
			sorted = append(sorted, c)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	sorted = append(sorted, thermal.Constraint{Start: endT, Min: math.Inf(-1), Max: math.Inf(1)})

	odTemps := outdoor[:1+int(endT-startT)]
	_, usage, err := b.Simulate(init, nil, thermal.Thermostat(), other, odTemps, sorted)
	if err != nil {
		return 0, fmt.Errorf("simulating thermostat heating: %w", err)
	}

	total := 0.0
	for _, u := range usage {
		total += u
	}
	return total, nil
}
