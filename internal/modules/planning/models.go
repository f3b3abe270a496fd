package planning

import "time"

// TimedInterval is a storage-heater charge period in wall-clock time.
type TimedInterval struct {
	Start time.Time
	End   time.Time
}

// TimedPowerInterval is a direct-heating period in wall-clock time.
type TimedPowerInterval struct {
	Start time.Time
	End   time.Time
	Power float64
}

// Option is one heating possibility: the cheapest schedule found that keeps
// temperatures acceptable until LastsUntil.
type Option struct {
	// LastsUntil is when the temperature first actually becomes unacceptable.
	LastsUntil time.Time

	StorageHeat []TimedInterval
	DirectHeat  []TimedPowerInterval

	// TotalPrice is the cost in pence of implementing this heating;
	// MarginalPrice is the difference from the previous (shorter) option.
	TotalPrice    float64
	MarginalPrice float64

	// TotalEnergy is the electricity used in kWh; MarginalEnergy is the
	// difference from the previous option.
	TotalEnergy    float64
	MarginalEnergy float64

	// UsefulEnergy is the minimum energy a perfect heating system would need
	// for the same span; MarginalUseful is the difference from the previous
	// option.
	UsefulEnergy   float64
	MarginalUseful float64

	// Times and Temps hold the simulated indoor temperature trajectory,
	// Times in hours after the planning start.
	Times []float64
	Temps []float64
}
