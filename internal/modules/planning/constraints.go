// Package planning turns configured temperature preferences and forecast data
// into concrete heating options for the days ahead.
package planning

import (
	"fmt"
	"math"
	"time"

	"github.com/kentwell/heatplan/internal/config"
	"github.com/kentwell/heatplan/internal/modules/thermal"
)

// ConstraintWindows builds the acceptable-temperature constraints implied by
// the configured absent hours.
//
// The simulation starts at startT (hours) which corresponds to startTime; the
// absent-hours windows repeat every local calendar day, so clock changes
// shift their simulation-hour offsets. Windows are generated from the day
// before the start (so the range applying at startT is known) through to the
// day after endT.
func ConstraintWindows(cfg *config.Config, startTime time.Time, startT, endT float64) ([]thermal.Constraint, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolving tariff time zone: %w", err)
	}

	local := startTime.In(loc)
	year, month, day := local.Date()

	lastDay := 1 + int((endT-startT)/24)
	var constraints []thermal.Constraint
	for _, hours := range cfg.AbsentHours {
		for dayNum := -1; dayNum <= lastDay; dayNum++ {
			absentFrom := localClock(year, month, day+dayNum, hours.Start, loc)
			absentTo := localClock(year, month, day+dayNum, hours.End, loc)
			constraints = append(constraints,
				thermal.Constraint{
					Start: startT + absentFrom.Sub(startTime).Hours(),
					Min:   cfg.AbsentMinTemp,
					Max:   cfg.AbsentMaxTemp,
				},
				thermal.Constraint{
					Start: startT + absentTo.Sub(startTime).Hours(),
					Min:   cfg.MinTemp,
					Max:   cfg.MaxTemp,
				},
			)
		}
	}
	return constraints, nil
}

// localClock returns the wall-clock time at the given fractional hour of the
// given local day.
func localClock(year int, month time.Month, day int, hour float64, loc *time.Location) time.Time {
	h := int(hour)
	m := int(math.Round((hour - float64(h)) * 60))
	return time.Date(year, month, day, h, m, 0, 0, loc)
}
