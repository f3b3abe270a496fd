package optimization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kentwell/heatplan/internal/modules/thermal"
)

func TestDecodeSchedule(t *testing.T) {
	// Cumulative offsets, capped at maxT.
	sched := decodeSchedule([]float64{0, 1, 2, 3, 4}, 100, 104.5, true)
	assert.Equal(t, []thermal.Interval{{Start: 100, End: 101}}, sched.Storage)
	assert.Equal(t, []thermal.PowerInterval{{Start: 102, End: 104.5, Power: 4}}, sched.Direct)

	// Rounding to 10-minute times and 0.5 kW powers.
	sched = decodeSchedule([]float64{0.04, 1.1, 0.2, 2.04, 1.3}, 0, 100, true)
	require.Len(t, sched.Storage, 1)
	assert.InDelta(t, 0.0, sched.Storage[0].Start, 1e-12)
	assert.InDelta(t, 7.0/6, sched.Storage[0].End, 1e-12)
	require.Len(t, sched.Direct, 1)
	assert.InDelta(t, 8.0/6, sched.Direct[0].Start, 1e-12)
	assert.InDelta(t, 8.0/6+2.0, sched.Direct[0].End, 1e-12)
	assert.Equal(t, 1.5, sched.Direct[0].Power)

	// Empty vector decodes to an empty schedule.
	sched = decodeSchedule(nil, 0, 10, true)
	assert.Empty(t, sched.Storage)
	assert.Empty(t, sched.Direct)
}

// fixedSim returns a canned trajectory and usage regardless of the schedule.
func fixedSim(t *testing.T, airs []float64, usage []float64, called *int) simulateFunc {
	t.Helper()
	times := []float64{100, 105, 110, 115, 120, 125}
	return func(init thermal.State, storage []thermal.Interval, direct thermal.DirectHeat, other []thermal.PowerInterval, outdoor []float64, constraints []thermal.Constraint) (*thermal.Trajectory, []float64, error) {
		if called != nil {
			*called++
		}
		return &thermal.Trajectory{
			Times: times,
			Air:   airs,
			Slow:  []float64{20, 20, 20, 20, 20, 20},
			Store: []float64{20, 20, 20, 20, 20, 20},
		}, usage, nil
	}
}

func testObjective(t *testing.T, airs []float64, penaltyPerHeat float64, called *int) *objective {
	t.Helper()
	return &objective{
		sim:            fixedSim(t, airs, []float64{5, 0, 7, 0, 0, 0, 11}, called),
		ranges:         []thermal.Constraint{{Start: 0, Min: 10, Max: 30}},
		init:           thermal.State{Time: 100, Air: 20, Slow: 20, Store: 20},
		outdoor:        []float64{5, 5, 5},
		prices:         []float64{0, 1, 2, 3, 4, 5, 6, 7, 8},
		endT:           120,
		penaltyPerHeat: penaltyPerHeat,
	}
}

func TestObjectiveCost(t *testing.T) {
	obj := testObjective(t, []float64{20, 19, 18, 22, 21, 20}, 0, nil)
	assert.Equal(t, 80.0, obj.cost([]float64{0, 1, 2, 3, 4}))
}

func TestObjectivePenaltyPerHeat(t *testing.T) {
	obj := testObjective(t, []float64{20, 19, 18, 22, 21, 20}, 10, nil)
	assert.Equal(t, 100.0, obj.cost([]float64{0, 1, 2, 3, 4}))
}

func TestObjectiveTimePenalty(t *testing.T) {
	// Air drops below the acceptable minimum at t=115, five hours early.
	obj := testObjective(t, []float64{20, 15, 10, 7, 8, 5}, 0, nil)
	assert.Equal(t, 5e10+80, obj.cost([]float64{0, 1, 2, 3, 4}))
}

func TestObjectiveDegenerateOrdering(t *testing.T) {
	called := 0
	obj := testObjective(t, []float64{20, 19, 18, 22, 21, 20}, 0, &called)

	// Zero-energy direct period before a non-zero one.
	assert.Equal(t, 1e20, obj.cost([]float64{0, 1, 0, 0, 0, 0, 0, 2, 3, 4}))
	// Zero-length storage period before a non-zero one.
	assert.Equal(t, 1e20, obj.cost([]float64{0, 0, 0, 1, 2, 3, 4, 0, 0, 0}))
	// Both at once.
	assert.Equal(t, 2e20, obj.cost([]float64{0, 0, 0, 1, 0, 0, 0, 2, 3, 4}))

	// The simulation is skipped for all of these.
	assert.Equal(t, 0, called)
}

func TestMinimizeQuadratic(t *testing.T) {
	target := []float64{1, 2, 3, 0.5}
	objective := func(x []float64) float64 {
		total := 0.0
		for i, v := range x {
			d := v - target[i]
			total += d * d
		}
		return total
	}

	res, err := Minimize(Problem{
		Objective:      objective,
		Bounds:         [][2]float64{{0, 10}, {0, 10}, {0, 10}, {0, 10}},
		PopSize:        16,
		MaxGenerations: 2000,
		Tol:            0.01,
		Atol:           1e-6,
		Workers:        4,
		Seed:           1,
	})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Less(t, res.Cost, 1e-3)
	for i, v := range res.X {
		assert.InDelta(t, target[i], v, 0.05)
	}
}

func TestMinimizeValidation(t *testing.T) {
	_, err := Minimize(Problem{Objective: func([]float64) float64 { return 0 }})
	assert.Error(t, err)

	_, err = Minimize(Problem{Bounds: [][2]float64{{0, 1}}})
	assert.Error(t, err)

	_, err = Minimize(Problem{
		Objective: func([]float64) float64 { return 0 },
		Bounds:    [][2]float64{{1, 0}},
	})
	assert.Error(t, err)
}

func scenarioBuilding(t *testing.T) *thermal.Building {
	t.Helper()
	b, err := thermal.NewBuilding(0.05, 0.1, 0.001, 0.0075, 1, 0.025, 4, 3, 100)
	require.NoError(t, err)
	return b
}

func TestFinishSchedule(t *testing.T) {
	// The winning vector encodes two storage charges and two direct heats
	// whose rounded times land exactly on the 10-minute grid, so energy and
	// cost have closed forms.
	b := scenarioBuilding(t)
	vec := make([]float64, 10)
	for i := range vec {
		vec[i] = float64(i) / 6
	}

	ranges := []thermal.Constraint{{Start: 100, Min: 5, Max: 30}}
	init := thermal.State{Time: 100, Air: 16, Slow: 16, Store: 16}
	other := []thermal.PowerInterval{{Start: 0, End: 200, Power: 0.1}}
	outdoor := make([]float64, 30)
	for i := range outdoor {
		outdoor[i] = 5
	}
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	res, err := finishSchedule(b, vec, ranges, init, other, outdoor, prices, 126)
	require.NoError(t, err)

	assert.Equal(t, decodeSchedule(vec, 100, 104, true), res.Schedule)
	assert.InDelta(t, 29.0/6, res.TotalEnergy, 1e-6)
	assert.InDelta(t, 239.0/12, res.Cost, 1e-6)
	// Temperatures stay acceptable for the whole simulated horizon.
	assert.InDelta(t, 129, res.ActualEnd, 1e-9)
}

func TestCheapestHeatZeroHeats(t *testing.T) {
	// With no heating allowed the search is skipped and the no-heating
	// outcome is reported: the air starts at the minimum and immediately
	// cools below it.
	b := scenarioBuilding(t)
	ranges := []thermal.Constraint{{Start: 100, Min: 16, Max: 24}}
	init := thermal.State{Time: 100, Air: 16, Slow: 16, Store: 16}
	other := []thermal.PowerInterval{{Start: 0, End: 200, Power: 0.1}}
	outdoor := make([]float64, 30)
	for i := range outdoor {
		outdoor[i] = 5
	}
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	res, err := CheapestHeat(b, ranges, init, 10, other, outdoor, prices, 126, 0, 5, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Schedule.Storage)
	assert.Empty(t, res.Schedule.Direct)
	assert.Equal(t, 0.0, res.TotalEnergy)
	assert.Equal(t, 0.0, res.Cost)
	assert.InDelta(t, 100, res.ActualEnd, 0.05)
}

func TestCheapestHeatMockedObjective(t *testing.T) {
	// An easy separable objective whose optimum is ascending multiples of 1/6
	// starting from zero, chosen so the 10-minute rounding admits the exact
	// solution.
	b := scenarioBuilding(t)
	mock := func(s []float64) float64 {
		cost := s[0] * s[0]
		for i := 1; i < len(s); i++ {
			d := s[i] - (s[i-1] + 1.0/6)
			cost += d * d
		}
		return cost
	}

	ranges := []thermal.Constraint{{Start: 100, Min: 5, Max: 30}}
	init := thermal.State{Time: 100, Air: 16, Slow: 16, Store: 16}
	other := []thermal.PowerInterval{{Start: 0, End: 200, Power: 0.1}}
	outdoor := make([]float64, 30)
	for i := range outdoor {
		outdoor[i] = 5
	}
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	res, err := CheapestHeat(b, ranges, init, 10, other, outdoor, prices, 126, 2, 5, Options{
		PopSize:        16,
		Workers:        2,
		MaxGenerations: 3000,
		Seed:           1,
		costOverride:   mock,
	})
	require.NoError(t, err)

	// The rounded schedule should be close to the decoded optimum; every
	// interval is within the price horizon and the two searches' times agree
	// to the rounding grid.
	want := make([]float64, 10)
	for i := range want {
		want[i] = float64(i) / 6
	}
	optimum := decodeSchedule(want, 100, 104, true)
	require.Len(t, res.Schedule.Storage, 2)
	require.Len(t, res.Schedule.Direct, 2)
	for i, iv := range res.Schedule.Storage {
		assert.InDelta(t, optimum.Storage[i].Start, iv.Start, 0.5)
		assert.InDelta(t, optimum.Storage[i].End, iv.End, 0.5)
	}
	assert.False(t, math.IsInf(res.Cost, 0))
}
