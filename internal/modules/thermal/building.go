// Package thermal simulates the heating and cooling of a building.
//
// Buildings are modelled as three coupled heat reservoirs: the air and other
// fast-responding contents (temperature T), slow-responding contents such as
// walls (Q), and a storage heater (S). The air additionally exchanges heat
// with the outdoor temperature A(t). The governing equations are
//
//	C·T'(t)    = k(A−T) + h(Q−T) + j(S−T) + P(t)
//	C_q·Q'(t)  = h(T−Q)
//	C_sh·S'(t) = j(T−S) + I(t)
//
// where j takes the value jCharging while the heater's input power I is
// non-zero and jPassive otherwise, and P is the total power dissipated
// directly into the indoors. When T would otherwise fall below the active
// minimum acceptable temperature, the storage heater discharges to pin T at
// that minimum for as long as it can; once its own temperature reaches T the
// two behave as one combined reservoir of capacity C+C_sh.
package thermal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kentwell/heatplan/internal/config"
	"github.com/kentwell/heatplan/pkg/odes"
)

// Interval is a period of hours during which something is switched on.
type Interval struct {
	Start float64
	End   float64
}

// Length returns the duration of the interval in hours.
func (iv Interval) Length() float64 { return iv.End - iv.Start }

// PowerInterval is an Interval with a constant power input in kW.
type PowerInterval struct {
	Start float64
	End   float64
	Power float64
}

// Energy returns the total energy delivered over the interval in kWh.
func (iv PowerInterval) Energy() float64 { return iv.Power * (iv.End - iv.Start) }

// DirectHeat describes heating applied directly to the air: either a list of
// timed intervals, or idealized thermostat heating applied in real time as
// required to maintain the active minimum temperature.
type DirectHeat struct {
	Thermostat bool
	Intervals  []PowerInterval
}

// Thermostat returns the idealized real-time heating mode.
func Thermostat() DirectHeat { return DirectHeat{Thermostat: true} }

// DirectIntervals returns timed direct heating.
func DirectIntervals(intervals ...PowerInterval) DirectHeat {
	return DirectHeat{Intervals: intervals}
}

// Constraint gives the acceptable temperature range applying from Start
// until the next constraint's Start.
type Constraint struct {
	Start float64
	Min   float64
	Max   float64
}

// State is the simulation state (t, T, Q, S).
type State struct {
	Time  float64
	Air   float64
	Slow  float64
	Store float64
}

// Trajectory holds dense, parallel arrays of simulated values.
type Trajectory struct {
	Times []float64
	Air   []float64
	Slow  []float64
	Store []float64
}

// Last returns the final simulated state.
func (tr *Trajectory) Last() State {
	n := len(tr.Times) - 1
	return State{Time: tr.Times[n], Air: tr.Air[n], Slow: tr.Slow[n], Store: tr.Store[n]}
}

// Building is a model of the thermal behaviour of a particular property.
// It is immutable once constructed and safe for concurrent simulations.
type Building struct {
	K         float64 // conductance to outdoors
	H         float64 // conductance between fast and slow reservoirs
	JPassive  float64 // storage heater conductance while idle
	JCharging float64 // storage heater conductance while charging (extra leakage)
	C         float64 // fast heat capacity
	Csh       float64 // storage heater heat capacity
	Cq        float64 // slow heat capacity

	ChargePower float64 // storage heater charge power, kW
	MaxStoreTmp float64 // storage heater internal thermostat limit, °C

	// Pre-diagonalized coupling matrices, one per regime.
	matrices map[Regime]*odes.DiagonalizedMatrix
}

// NewBuilding constructs a Building and pre-diagonalizes the coupling matrix
// of every regime.
func NewBuilding(k, h, jPassive, jCharging, c, cSh, cQ, chargePower, maxStoreTemp float64) (*Building, error) {
	b := &Building{
		K:           k,
		H:           h,
		JPassive:    jPassive,
		JCharging:   jCharging,
		C:           c,
		Csh:         cSh,
		Cq:          cQ,
		ChargePower: chargePower,
		MaxStoreTmp: maxStoreTemp,
	}

	// The system of equations in vector form is dY/dt = MY + A + Bt with the
	// rows ordered (T, Q, S); the inhomogeneous part is supplied per step.
	specs := map[Regime]*mat.Dense{
		// Free evolution: full three-reservoir conduction, idle heater.
		RegimeFree: mat.NewDense(3, 3, []float64{
			(-k - h - jPassive) / c, h / c, jPassive / c,
			h / cQ, -h / cQ, 0,
			jPassive / cSh, 0, -jPassive / cSh,
		}),
		// Charging: as free, but with the extra charge-time leakage.
		RegimeCharging: mat.NewDense(3, 3, []float64{
			(-k - h - jCharging) / c, h / c, jCharging / c,
			h / cQ, -h / cQ, 0,
			jCharging / cSh, 0, -jCharging / cSh,
		}),
		// Discharging: T pinned at the minimum, so only (Q, S) evolve.
		RegimeDischarging: mat.NewDense(2, 2, []float64{
			-h / cQ, 0,
			h / cSh, 0,
		}),
		// Equalised: T and S tied together as one reservoir of capacity C+C_sh,
		// so only (T, Q) evolve.
		RegimeEqualised: mat.NewDense(2, 2, []float64{
			(-k - h) / (cSh + c), h / (cSh + c),
			h / cQ, -h / cQ,
		}),
	}

	b.matrices = make(map[Regime]*odes.DiagonalizedMatrix, len(specs))
	for regime, m := range specs {
		dm, err := odes.NewDiagonalizedMatrix(m)
		if err != nil {
			return nil, fmt.Errorf("diagonalizing %s regime matrix: %w", regime, err)
		}
		b.matrices[regime] = dm
	}
	return b, nil
}

// NewBuildingFromConfig derives the heater's heat capacity and conductances
// from the configured size, store time and charge leakage, then builds the
// Building.
//
// The configured store time is the time taken for a full heater to cool to
// 10°C above the minimum acceptable temperature; the charge leakage figure is
// the power leaked at full temperature, scaled pessimistically against the
// configured maximum acceptable indoor temperature.
func NewBuildingFromConfig(cfg *config.Config) (*Building, error) {
	const cooledTempDiff = 10.0
	shTempRange := cfg.StorageHeaterMaxTemp - cfg.MinTemp
	if shTempRange < cooledTempDiff && cfg.StorageHeaterSize != 0 {
		return nil, fmt.Errorf("STORAGE_HEATER_MAX_TEMP too low")
	}
	cSh := cfg.StorageHeaterSize / shTempRange
	jPassive := (cSh / cfg.StorageHeaterStoreTime) * math.Log(shTempRange/cooledTempDiff)
	jCharging := jPassive + cfg.StorageHeaterChargeLeakage/(cfg.StorageHeaterMaxTemp-cfg.MaxTemp)

	return NewBuilding(
		cfg.ConductanceToOutdoors,
		cfg.SlowConductance,
		jPassive,
		jCharging,
		cfg.FastHeatCapacity,
		cSh,
		cfg.SlowHeatCapacity,
		cfg.StorageHeaterPower,
		cfg.StorageHeaterMaxTemp,
	)
}
