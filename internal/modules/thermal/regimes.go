package thermal

// Regime is one of the mutually exclusive physical operating modes of the
// three-reservoir model. Each has its own closed-form ODE system and a
// validity condition which is re-checked at every sample point; a step is
// truncated and re-dispatched as soon as its regime's condition breaks.
type Regime int

const (
	// RegimeFree is normal three-reservoir conduction with an idle heater.
	RegimeFree Regime = iota
	// RegimeCharging is three-reservoir conduction with charge-time leakage.
	RegimeCharging
	// RegimeDischarging pins the air at the active minimum temperature while
	// the storage heater alone supplies the deficit.
	RegimeDischarging
	// RegimeEqualised ties the air and storage heater together as a single
	// reservoir once their temperatures meet below the minimum.
	RegimeEqualised
)

func (r Regime) String() string {
	switch r {
	case RegimeFree:
		return "free"
	case RegimeCharging:
		return "charging"
	case RegimeDischarging:
		return "discharging"
	case RegimeEqualised:
		return "equalised"
	default:
		return "unknown"
	}
}
