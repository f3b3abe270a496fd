package thermal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/integrate"
)

func testBuilding(t *testing.T) *Building {
	t.Helper()
	b, err := NewBuilding(0.1, 0.5, 0.005, 0.03, 1, 0.2, 5, 3, 50)
	require.NoError(t, err)
	return b
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func sum(vals []float64) float64 {
	total := 0.0
	for _, v := range vals {
		total += v
	}
	return total
}

func TestSteadyState(t *testing.T) {
	// Everything at the same temperature with no heating: nothing moves.
	b := testBuilding(t)
	traj, usage, err := b.Simulate(
		State{Time: 0, Air: 20, Slow: 20, Store: 20},
		nil, DirectHeat{}, nil,
		repeat(20, 11),
		[]Constraint{{Start: 0, Min: 0}},
	)
	require.NoError(t, err)

	last := traj.Last()
	assert.Equal(t, 10.0, last.Time)
	assert.InDelta(t, 20, last.Air, 1e-7)
	assert.InDelta(t, 20, last.Slow, 1e-7)
	assert.InDelta(t, 20, last.Store, 1e-7)
	assert.Equal(t, 0.0, sum(usage))
}

func TestDirectHeatCounteractsLosses(t *testing.T) {
	// Indoors at 20°C, outdoors at 10°C and k=0.1: a constant 1 kW exactly
	// counteracts conduction, so temperatures hold and usage is power×time.
	b := testBuilding(t)
	traj, usage, err := b.Simulate(
		State{Time: 0, Air: 20, Slow: 20, Store: 20},
		nil,
		DirectIntervals(PowerInterval{Start: 0, End: 10, Power: 1}),
		nil,
		repeat(10, 11),
		[]Constraint{{Start: 0, Min: 0}},
	)
	require.NoError(t, err)

	last := traj.Last()
	assert.Equal(t, 10.0, last.Time)
	assert.InDelta(t, 20, last.Air, 1e-7)
	assert.InDelta(t, 20, last.Slow, 1e-7)
	assert.InDelta(t, 20, last.Store, 1e-7)
	assert.InDelta(t, 10, sum(usage), 1e-7)
}

func TestOtherHeatNotMetered(t *testing.T) {
	// Incidental heat holds the temperature but never appears in usage.
	b := testBuilding(t)
	traj, usage, err := b.Simulate(
		State{Time: 0, Air: 20, Slow: 20, Store: 20},
		nil, DirectHeat{},
		[]PowerInterval{{Start: 0, End: 10, Power: 1}},
		repeat(10, 11),
		[]Constraint{{Start: 0, Min: 0}},
	)
	require.NoError(t, err)

	last := traj.Last()
	assert.InDelta(t, 20, last.Air, 1e-7)
	assert.InDelta(t, 20, last.Slow, 1e-7)
	assert.InDelta(t, 20, last.Store, 1e-7)
	assert.Equal(t, 0.0, sum(usage))
}

func TestThermostatHoldsMinimum(t *testing.T) {
	// Thermostat heating holds 20°C against a 0°C outdoors; the draw is the
	// time-integrated deficit k·ΔT·t = 0.1·20·10 = 20 kWh.
	b := testBuilding(t)
	traj, usage, err := b.Simulate(
		State{Time: 0, Air: 20, Slow: 20, Store: 20},
		nil, Thermostat(), nil,
		repeat(0, 11),
		[]Constraint{{Start: 0, Min: 20}},
	)
	require.NoError(t, err)

	last := traj.Last()
	assert.Equal(t, 10.0, last.Time)
	assert.InDelta(t, 20, last.Air, 1e-6)
	assert.InDelta(t, 20, last.Slow, 1e-6)
	assert.InDelta(t, 20, last.Store, 1e-6)
	assert.InDelta(t, 20, sum(usage), 1e-4)
}

func TestStorageHeatScenario(t *testing.T) {
	// Storage charging 0–1h and 5–6h, outdoors 15°C, minimum 20°C over 10
	// hours: the heater ends around 25°C having spent 6 kWh.
	b := testBuilding(t)
	traj, usage, err := b.Simulate(
		State{Time: 0, Air: 20, Slow: 20, Store: 20},
		[]Interval{{0, 1}, {5, 6}},
		DirectHeat{}, nil,
		repeat(15, 11),
		[]Constraint{{Start: 0, Min: 20}},
	)
	require.NoError(t, err)

	last := traj.Last()
	assert.Equal(t, 10.0, last.Time)
	assert.InDelta(t, 20, last.Air, 1e-3)
	assert.InDelta(t, 20, last.Slow, 1e-3)
	assert.InDelta(t, 25, last.Store, 5e-3)
	assert.InDelta(t, 6, sum(usage), 1e-7)
}

func TestConductionDecay(t *testing.T) {
	// T pinned at 20°C by the thermostat while Q and S cool from above; Q
	// follows the closed-form exponential and the thermostat's total draw is
	// the outdoor loss minus what the cooling reservoirs contributed.
	b := testBuilding(t)
	traj, usage, err := b.Simulate(
		State{Time: 0, Air: 20, Slow: 22, Store: 50},
		nil, Thermostat(), nil,
		repeat(0, 21),
		[]Constraint{{Start: 0, Min: 20}},
	)
	require.NoError(t, err)

	qFinal := 20 + 2*math.Exp(-20*b.H/b.Cq)
	last := traj.Last()
	assert.Equal(t, 20.0, last.Time)
	assert.InDelta(t, 20, last.Air, 1e-6)
	assert.InDelta(t, qFinal, last.Slow, 1e-5)
	// Discharge termination is only sample-resolution exact.
	assert.InDelta(t, 20, last.Store, 0.05)

	deltaQ := b.Cq * (22 - qFinal)
	deltaS := b.Csh * (50 - 20)
	assert.InDelta(t, 40-deltaQ-deltaS, sum(usage), 5e-3)
}

func TestChargingLeaksMoreThanPassive(t *testing.T) {
	b := testBuilding(t)

	// Passive: a 50°C heater leaks slowly into a 20°C property.
	trajPassive, usage, err := b.Simulate(
		State{Time: 0, Air: 20, Slow: 20, Store: 50},
		nil, DirectHeat{}, nil,
		repeat(20, 2),
		[]Constraint{{Start: 0, Min: 0}},
	)
	require.NoError(t, err)
	lastPassive := trajPassive.Last()
	assert.Equal(t, 1.0, lastPassive.Time)
	assert.Less(t, lastPassive.Air, 20.2)
	assert.Less(t, lastPassive.Slow, 20.01)
	assert.InDelta(t, 49.26, lastPassive.Store, 5e-3)
	assert.Equal(t, 0.0, sum(usage))

	// Charging: the heater's thermostat caps input near its leakage, and the
	// property receives strictly more heat than in the passive case.
	trajCharging, usage, err := b.Simulate(
		State{Time: 0, Air: 20, Slow: 20, Store: 50},
		[]Interval{{0, 1}},
		DirectHeat{}, nil,
		repeat(20, 2),
		[]Constraint{{Start: 0, Min: 0}},
	)
	require.NoError(t, err)
	lastCharging := trajCharging.Last()
	assert.Equal(t, 1.0, lastCharging.Time)
	assert.Less(t, lastCharging.Air, 20.7)
	assert.Less(t, lastCharging.Slow, 20.05)
	assert.InDelta(t, 50, lastCharging.Store, 0.1)
	assert.InDelta(t, 0.89, sum(usage), 0.01)

	assert.Greater(t, lastCharging.Air, lastPassive.Air)
}

func TestMinTempDecrease(t *testing.T) {
	// After the minimum drops from 20°C to 10°C the heater stops discharging
	// and the property cools freely.
	b := testBuilding(t)
	traj, usage, err := b.Simulate(
		State{Time: 0, Air: 20, Slow: 20, Store: 50},
		nil, DirectHeat{}, nil,
		repeat(10, 3),
		[]Constraint{{Start: 0, Min: 20}, {Start: 1, Min: 10}},
	)
	require.NoError(t, err)

	last := traj.Last()
	assert.Equal(t, 2.0, last.Time)
	assert.Less(t, last.Air, 19.5)
	assert.Less(t, last.Slow, 20.0)
	assert.InDelta(t, 44.375, last.Store, 5e-3)
	assert.Equal(t, 0.0, sum(usage))
}

func TestMinTempIncrease(t *testing.T) {
	// When the minimum rises to 21°C the heater instantaneously lifts the air
	// and then keeps supplying conduction losses and the slow reservoir.
	b := testBuilding(t)
	traj, usage, err := b.Simulate(
		State{Time: 0, Air: 20, Slow: 20, Store: 50},
		nil, DirectHeat{}, nil,
		repeat(10, 3),
		[]Constraint{{Start: 0, Min: 20}, {Start: 1, Min: 21}},
	)
	require.NoError(t, err)

	qFinal := 21 - math.Exp(-b.H/b.Cq)
	storedHeatUsed := 2.1 + (21-20)*b.C + (qFinal-20)*b.Cq
	last := traj.Last()
	assert.Equal(t, 2.0, last.Time)
	assert.Equal(t, 21.0, last.Air)
	assert.InDelta(t, qFinal, last.Slow, 1e-6)
	assert.InDelta(t, 50-storedHeatUsed/b.Csh, last.Store, 1e-5)
	assert.Equal(t, 0.0, sum(usage))
}

func TestEnergyConservation(t *testing.T) {
	// Four days of 12-hour cold nights (0°C outdoors, min 10°C) and milder
	// days (10°C outdoors, min 20°C) with storage charges and a thermostat.
	// Total usage must equal the loss to outdoors plus the change in stored
	// energy across all three reservoirs.
	b := testBuilding(t)

	outdoor := make([]float64, 0, 97)
	for day := 0; day < 4; day++ {
		outdoor = append(outdoor, repeat(0, 12)...)
		outdoor = append(outdoor, repeat(10, 12)...)
	}
	outdoor = append(outdoor, 0)

	constraints := make([]Constraint, 0, 8)
	for day := 0; day < 4; day++ {
		constraints = append(constraints,
			Constraint{Start: float64(24 * day), Min: 10},
			Constraint{Start: float64(24*day + 12), Min: 20},
		)
	}

	traj, usage, err := b.Simulate(
		State{Time: 0, Air: 20, Slow: 20, Store: 20},
		[]Interval{{0, 2}, {24, 26}, {48, 50}, {72, 74}},
		Thermostat(), nil,
		outdoor,
		constraints,
	)
	require.NoError(t, err)

	last := traj.Last()
	assert.Equal(t, 96.0, last.Time)

	minAir := traj.Air[0]
	for _, v := range traj.Air {
		minAir = math.Min(minAir, v)
	}
	assert.Less(t, minAir, 15.0)    // cooled overnight
	assert.Greater(t, minAir, 10.0) // but never breached the minimum

	// The outdoor temperature averages exactly 5°C, so the conduction
	// integral reduces to k·∫(T−5)dt.
	diff := make([]float64, len(traj.Air))
	for i, v := range traj.Air {
		diff[i] = v - 5
	}
	lossToOutdoors := integrate.Trapezoidal(traj.Times, diff) * b.K

	deltaE := (last.Air-20)*b.C + (last.Slow-20)*b.Cq + (last.Store-20)*b.Csh
	assert.InDelta(t, lossToOutdoors+deltaE, sum(usage), 1e-4)
}

func TestZeroLengthSimulation(t *testing.T) {
	b := testBuilding(t)
	traj, usage, err := b.Simulate(
		State{Time: 0, Air: 20, Slow: 20, Store: 20},
		nil, DirectHeat{}, nil,
		[]float64{20},
		[]Constraint{{Start: 0, Min: 0}},
	)
	require.NoError(t, err)

	last := traj.Last()
	assert.Equal(t, 0.0, last.Time)
	assert.Equal(t, 20.0, last.Air)
	assert.Equal(t, 20.0, last.Slow)
	assert.Equal(t, 20.0, last.Store)
	assert.Equal(t, 0.0, sum(usage))
}

func TestSimulateInputValidation(t *testing.T) {
	b := testBuilding(t)

	_, _, err := b.Simulate(State{}, nil, DirectHeat{}, nil, nil, []Constraint{{Start: 0}})
	assert.Error(t, err)

	_, _, err = b.Simulate(State{}, nil, DirectHeat{}, nil, []float64{20, 20}, nil)
	assert.Error(t, err)
}
