package thermal

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"

	"github.com/kentwell/heatplan/pkg/odes"
)

// Each simulation step is solved analytically over at least this many sample
// points so that regime validity can be checked densely.
const numSamplePoints = 100

// Simulate advances the building's temperatures under the given heating.
//
// Time values are measured in hours; the simulation runs for the duration of
// the hourly outdoor temperature forecast (len(outdoor)−1 hours from
// init.Time). Storage intervals define when the storage heater charges,
// direct defines timed or thermostat heating whose energy is metered, and
// other defines incidental heat gains excluded from the usage accounting.
// constraints supply the minimum temperature the storage heater strives to
// maintain over time (maxima are ignored here; they matter to the optimizer).
//
// Returns the dense trajectory and the total electricity used in each
// half-hour period starting at init.Time.
func (b *Building) Simulate(init State, storage []Interval, direct DirectHeat, other []PowerInterval, outdoor []float64, constraints []Constraint) (*Trajectory, []float64, error) {
	if len(outdoor) == 0 {
		return nil, nil, fmt.Errorf("empty outdoor temperature forecast")
	}
	if len(constraints) == 0 {
		return nil, nil, fmt.Errorf("no temperature constraints supplied")
	}

	startT := init.Time
	endT := init.Time + float64(len(outdoor)-1)

	mins := make([]Constraint, len(constraints))
	copy(mins, constraints)
	sort.Slice(mins, func(i, j int) bool { return mins[i].Start < mins[j].Start })

	// Collect every expected discontinuity: heating switch-on/off events,
	// minimum-temperature changes, and the half-hour usage grid. The
	// intervals between consecutive boundaries solve analytically as single
	// steps.
	boundarySet := map[float64]struct{}{}
	for i := 0; i <= int(2*(endT-startT)); i++ {
		boundarySet[startT+0.5*float64(i)] = struct{}{}
	}
	for _, iv := range storage {
		boundarySet[iv.Start] = struct{}{}
		boundarySet[iv.End] = struct{}{}
	}
	if !direct.Thermostat {
		for _, iv := range direct.Intervals {
			boundarySet[iv.Start] = struct{}{}
			boundarySet[iv.End] = struct{}{}
		}
	}
	for _, c := range mins {
		boundarySet[c.Start] = struct{}{}
	}
	boundaries := make([]float64, 0, len(boundarySet))
	for t := range boundarySet {
		if startT <= t && t <= endT {
			boundaries = append(boundaries, t)
		}
	}
	sort.Float64s(boundaries)

	usage := make([]float64, 2*int(math.Ceil(endT-startT)))
	traj := &Trajectory{
		Times: []float64{startT},
		Air:   []float64{init.Air},
		Slow:  []float64{init.Slow},
		Store: []float64{init.Store},
	}

	minTempIdx := 0
	for bi := 0; bi+1 < len(boundaries); bi++ {
		ta, tb := boundaries[bi], boundaries[bi+1]

		// Constant P and I over this step.
		var pDirect, pOther, chargeI float64
		for _, iv := range storage {
			if iv.Start <= ta && ta < iv.End {
				chargeI = b.ChargePower
			}
		}
		if !direct.Thermostat {
			for _, iv := range direct.Intervals {
				if iv.Start <= ta && ta < iv.End {
					pDirect = iv.Power
				}
			}
		}
		for _, iv := range other {
			if iv.Start <= ta && ta < iv.End {
				pOther = iv.Power
			}
		}

		// Outdoor temperature is linearly interpolated between forecast hours.
		outA := interpHourly(outdoor, startT, ta)
		outB := interpHourly(outdoor, startT, tb)

		for minTempIdx < len(mins)-1 && mins[minTempIdx+1].Start <= ta {
			minTempIdx++
		}
		minTemp := mins[minTempIdx].Min

		last := traj.Last()
		res, err := b.step(ta, tb, last.Air, last.Slow, last.Store, outA, outB, chargeI, pDirect+pOther, minTemp, direct.Thermostat)
		if err != nil {
			return nil, nil, err
		}
		traj.Times = append(traj.Times, res.times...)
		traj.Air = append(traj.Air, res.air...)
		traj.Slow = append(traj.Slow, res.slow...)
		traj.Store = append(traj.Store, res.store...)

		bucket := int(2*(ta-startT) + 1e-9)
		usage[bucket] += res.thermostatEnergy + (res.actualI+pDirect)*(tb-ta)
	}

	return traj, usage, nil
}

// stepResult holds the simulated samples for one step plus its usage inputs.
type stepResult struct {
	times, air, slow, store []float64
	actualI                 float64
	thermostatEnergy        float64
}

// step simulates a single inter-boundary interval. The regime is selected
// from the state at the interval's start; whenever its validity condition
// breaks at a sample point, the analytic solution is truncated there and the
// remainder re-dispatched, looping until the interval end is reached.
func (b *Building) step(ta, tb, T0, Q0, S0, outA, outB, chargeI, power, minTemp float64, thermostat bool) (*stepResult, error) {
	res := &stepResult{actualI: chargeI}
	if ta == tb {
		res.times = []float64{ta}
		res.air = []float64{T0}
		res.slow = []float64{Q0}
		res.store = []float64{S0}
		return res, nil
	}

	// A(t) = U + V·t over the whole step.
	V := (outB - outA) / (tb - ta)
	U := outA - V*ta

	curStart, T, Q, S := ta, T0, Q0, S0
	curI := chargeI
	firstIter := true

	for {
		charging := curI > 0
		j := b.JPassive
		if charging {
			j = b.JCharging
		}

		// Reduce I if necessary so the heater stays at or below its rated
		// maximum temperature. A rough mid-interval leakage estimate is fine:
		// slight under- or overshoot is inconsequential.
		if curI > 0 {
			estLeakage := j * ((b.MaxStoreTmp+S)/2 - T)
			energyForMax := (b.MaxStoreTmp - S) * b.Csh
			maxI := estLeakage + energyForMax/(tb-curStart)
			curI = math.Min(curI, maxI)
			curI = math.Max(curI, 0)
		}
		if firstIter {
			res.actualI = curI
			firstIter = false
		}

		tVals := linspace(curStart, tb, numSamplePoints)

		// Instantaneous heat transfer from the storage heater if the air has
		// fallen below the minimum and the heater is warmer: either pull
		// exactly enough heat to reach the minimum, or equalize at the
		// capacity-weighted mean.
		if T < minTemp && S > T {
			if b.Csh*(S-minTemp) >= b.C*(minTemp-T) {
				S -= b.C * (minTemp - T) / b.Csh
				T = minTemp
			} else {
				T = (b.C*T + b.Csh*S) / (b.C + b.Csh)
				S = T
			}
		}

		// Instantaneous thermostatic bump when idealized heating is on.
		if thermostat && T < minTemp {
			res.thermostatEnergy += b.C * (minTemp - T)
			T = minTemp
		}

		a0 := U + V*curStart
		eq1RHS0 := b.K*(a0-T) + b.H*(Q-T) + j*(S-T) + power
		eq4RHS0 := b.K*(a0-T) + b.H*(Q-T) + power + curI

		var airVals, slowVals, storeVals []float64
		var terminate []bool
		var err error

		switch {
		case thermostat && S <= T && T <= minTemp && eq1RHS0 <= 0:
			// T would drop below the minimum without real-time heat. Hold
			// T = minTemp and integrate the residual deficit to get the
			// thermostat's energy draw.
			airVals = constant(minTemp, len(tVals))
			slowVals = odes.SolveScalar(curStart, Q, -b.H/b.Cq, b.H*minTemp/b.Cq, 0, tVals)
			storeVals = odes.SolveScalar(curStart, S, -j/b.Csh, (j*minTemp+curI)/b.Csh, 0, tVals)

			rhs := make([]float64, len(tVals))
			terminate = make([]bool, len(tVals))
			for i, t := range tVals {
				rhs[i] = b.K*((U+V*t)-minTemp) + b.H*(slowVals[i]-minTemp) + j*(storeVals[i]-minTemp) + power
				// The thermostat turns off once the storage heater can take
				// over or other heat sources suffice.
				terminate[i] = !(storeVals[i] <= minTemp && rhs[i] <= 0)
			}
			idx := len(terminate)
			for i, done := range terminate {
				if done {
					idx = i
					break
				}
			}
			if idx >= 2 {
				res.thermostatEnergy += -integrate.Trapezoidal(tVals[:idx], rhs[:idx])
			}

		case T <= minTemp && S == T && eq4RHS0/(b.Csh+b.C) >= (eq4RHS0-curI)/b.C:
			// Air and heater are tied and keeping them combined is
			// advantageous.
			airVals, slowVals, storeVals, err = b.solveRegime(tVals, T, Q, S, RegimeEqualised, U, V, power, curI)
			if err != nil {
				return nil, err
			}
			terminate = make([]bool, len(tVals))
			for i := range tVals {
				terminate[i] = airVals[i] > minTemp
			}

		case T <= minTemp && T < S && eq1RHS0 <= 0:
			// Discharge the storage heater to hold the minimum for as long
			// as possible.
			airVals, slowVals, storeVals, err = b.solveRegime(tVals, T, Q, S, RegimeDischarging, U, V, power, curI)
			if err != nil {
				return nil, err
			}
			terminate = make([]bool, len(tVals))
			for i, t := range tVals {
				rhs := b.K*((U+V*t)-minTemp) + b.H*(slowVals[i]-minTemp) + j*(storeVals[i]-minTemp) + power
				terminate[i] = storeVals[i] <= minTemp || rhs > 0
			}

		default:
			// Conduction only; pick the matrix matching the heater's
			// charge-time leakage.
			regime := RegimeFree
			if charging {
				regime = RegimeCharging
			}
			airVals, slowVals, storeVals, err = b.solveRegime(tVals, T, Q, S, regime, U, V, power, curI)
			if err != nil {
				return nil, err
			}
			terminate = make([]bool, len(tVals))
			for i, t := range tVals {
				at := U + V*t
				ti, qi, si := airVals[i], slowVals[i], storeVals[i]
				rhs1 := b.K*(at-ti) + b.H*(qi-ti) + j*(si-ti) + power
				rhs4 := b.K*(at-ti) + b.H*(qi-ti) + power + curI
				enterDischarge := ti <= minTemp && ((ti < si && rhs1 <= 0) ||
					(rhs4/(b.Csh+b.C) >= (rhs4-curI)/b.C && ti == si))
				enterThermostat := thermostat && si <= ti && ti <= minTemp && rhs1 <= 0
				terminate[i] = enterDischarge || enterThermostat
			}
		}

		// Floating point error occasionally marks the first sample as
		// terminated, so only subsequent samples count.
		trunc := -1
		for i := 1; i < len(terminate); i++ {
			if terminate[i] {
				trunc = i
				break
			}
		}
		if trunc < 0 {
			res.times = append(res.times, tVals...)
			res.air = append(res.air, airVals...)
			res.slow = append(res.slow, slowVals...)
			res.store = append(res.store, storeVals...)
			return res, nil
		}

		res.times = append(res.times, tVals[:trunc]...)
		res.air = append(res.air, airVals[:trunc]...)
		res.slow = append(res.slow, slowVals[:trunc]...)
		res.store = append(res.store, storeVals[:trunc]...)
		curStart = tVals[trunc]
		T, Q, S = airVals[trunc], slowVals[trunc], storeVals[trunc]
	}
}

// solveRegime evaluates the regime's closed-form solution at tVals, with the
// outdoor temperature A(t) = U + V·t, direct power P and charge power I held
// constant.
func (b *Building) solveRegime(tVals []float64, T0, Q0, S0 float64, regime Regime, U, V, P, I float64) (airVals, slowVals, storeVals []float64, err error) {
	m := b.matrices[regime]
	switch regime {
	case RegimeFree, RegimeCharging:
		rows, err := odes.SolveVector(
			tVals[0],
			[]float64{T0, Q0, S0},
			m,
			[]float64{(b.K*U + P) / b.C, 0, I / b.Csh},
			[]float64{b.K * V / b.C, 0, 0},
			tVals,
		)
		if err != nil {
			return nil, nil, nil, err
		}
		return rows[0], rows[1], rows[2], nil

	case RegimeEqualised:
		rows, err := odes.SolveVector(
			tVals[0],
			[]float64{T0, Q0},
			m,
			[]float64{(b.K*U + P + I) / (b.Csh + b.C), 0},
			[]float64{b.K * V / (b.Csh + b.C), 0},
			tVals,
		)
		if err != nil {
			return nil, nil, nil, err
		}
		return rows[0], rows[1], rows[0], nil

	case RegimeDischarging:
		// T held constant; all heat lost from indoors is replenished by the
		// storage heater.
		held := T0
		rows, err := odes.SolveVector(
			tVals[0],
			[]float64{Q0, S0},
			m,
			[]float64{b.H * held / b.Cq, (U*b.K + P + I - (b.K+b.H)*held) / b.Csh},
			[]float64{0, b.K * V / b.Csh},
			tVals,
		)
		if err != nil {
			return nil, nil, nil, err
		}
		return constant(held, len(tVals)), rows[0], rows[1], nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown regime %v", regime)
	}
}

// interpHourly linearly interpolates the hourly forecast at time t.
func interpHourly(outdoor []float64, startT, t float64) float64 {
	if len(outdoor) == 1 {
		return outdoor[0]
	}
	pos := t - startT
	if pos <= 0 {
		return outdoor[0]
	}
	if pos >= float64(len(outdoor)-1) {
		return outdoor[len(outdoor)-1]
	}
	i := int(pos)
	frac := pos - float64(i)
	return outdoor[i] + frac*(outdoor[i+1]-outdoor[i])
}

func linspace(a, b float64, n int) []float64 {
	out := make([]float64, n)
	step := (b - a) / float64(n-1)
	for i := range out {
		out[i] = a + float64(i)*step
	}
	out[n-1] = b
	return out
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
