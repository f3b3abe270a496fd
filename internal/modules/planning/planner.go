package planning

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/kentwell/heatplan/internal/config"
	"github.com/kentwell/heatplan/internal/modules/optimization"
	"github.com/kentwell/heatplan/internal/modules/thermal"
)

// Planner computes heating options for a building under the configured
// temperature preferences.
type Planner struct {
	cfg      *config.Config
	building *thermal.Building
	log      zerolog.Logger

	// Seed makes planning runs reproducible; zero seeds from the clock.
	Seed int64
}

// NewPlanner creates a planner for the configured building.
func NewPlanner(cfg *config.Config, building *thermal.Building, log zerolog.Logger) *Planner {
	return &Planner{
		cfg:      cfg,
		building: building,
		log:      log.With().Str("component", "planner").Logger(),
	}
}

// HeatingOptions finds the cheapest heating to maintain acceptable
// temperatures until each of endTimes.
//
// outdoor holds hourly forecast temperatures with outdoor[0] at startTime;
// startIndoorTemp initializes all three reservoirs; prices are half-hourly
// unit prices starting at startTime, and heating is only scheduled while
// prices are available; numHeats bounds the storage and direct heating
// periods per option. The returned options are sorted by how long they
// actually last.
func (p *Planner) HeatingOptions(
	outdoor []float64,
	startTime time.Time,
	startIndoorTemp float64,
	endTimes []time.Time,
	prices []float64,
	numHeats int,
) ([]Option, error) {
	if len(endTimes) == 0 {
		return nil, fmt.Errorf("no end times requested")
	}
	sortedEnds := make([]time.Time, len(endTimes))
	copy(sortedEnds, endTimes)
	sort.Slice(sortedEnds, func(i, j int) bool { return sortedEnds[i].Before(sortedEnds[j]) })

	numHours := sortedEnds[len(sortedEnds)-1].Sub(startTime).Hours()
	if float64(len(outdoor)) < numHours+1 {
		return nil, fmt.Errorf("insufficient temperature data")
	}

	ranges, err := ConstraintWindows(p.cfg, startTime, 0, numHours)
	if err != nil {
		return nil, err
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	ranges = applyGracePeriod(ranges, p.cfg.IgnoreInitialTempHours)

	other := []thermal.PowerInterval{{Start: 0, End: numHours, Power: p.cfg.OtherHeatOutput / 24}}
	init := thermal.State{
		Time:  0,
		Air:   startIndoorTemp,
		Slow:  startIndoorTemp,
		Store: startIndoorTemp,
	}
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	opts := optimization.Options{
		PopSize:        p.cfg.OptimizationPopSize,
		Workers:        p.cfg.OptimizationWorkers,
		MaxGenerations: p.cfg.OptimizationMaxGens,
		Seed:           seed,
	}

	options := make([]Option, 0, len(sortedEnds))
	for i, endTime := range sortedEnds {
		endT := endTime.Sub(startTime).Hours()
		p.log.Info().
			Int("option", i+1).
			Int("of", len(sortedEnds)).
			Time("until", endTime).
			Msg("Optimising heating schedule")

		res, err := optimization.CheapestHeat(
			p.building, ranges, init, p.cfg.DirectHeatingPower,
			other, outdoor, prices, endT, numHeats, p.cfg.HeatingPeriodPenalty,
			opts,
		)
		if err != nil {
			return nil, fmt.Errorf("optimising heating until %s: %w", endTime, err)
		}

		useful, err := optimization.UsefulHeatEnergy(
			p.building, ranges, init, other, outdoor, endT,
		)
		if err != nil {
			return nil, fmt.Errorf("computing useful energy until %s: %w", endTime, err)
		}

		opt := Option{
			LastsUntil:   addHours(startTime, res.ActualEnd),
			TotalPrice:   res.Cost,
			TotalEnergy:  res.TotalEnergy,
			UsefulEnergy: useful,
			Times:        res.Trajectory.Times,
			Temps:        res.Trajectory.Air,
		}
		for _, iv := range res.Schedule.Storage {
			if iv.Length() > 0 {
				opt.StorageHeat = append(opt.StorageHeat, TimedInterval{
					Start: addHours(startTime, iv.Start),
					End:   addHours(startTime, iv.End),
				})
			}
		}
		for _, iv := range res.Schedule.Direct {
			if iv.Energy() > 0 {
				opt.DirectHeat = append(opt.DirectHeat, TimedPowerInterval{
					Start: addHours(startTime, iv.Start),
					End:   addHours(startTime, iv.End),
					Power: iv.Power,
				})
			}
		}
		if len(options) == 0 {
			opt.MarginalPrice = opt.TotalPrice
			opt.MarginalEnergy = opt.TotalEnergy
			opt.MarginalUseful = opt.UsefulEnergy
		} else {
			prev := options[len(options)-1]
			opt.MarginalPrice = opt.TotalPrice - prev.TotalPrice
			opt.MarginalEnergy = opt.TotalEnergy - prev.TotalEnergy
			opt.MarginalUseful = opt.UsefulEnergy - prev.UsefulEnergy
		}
		options = append(options, opt)
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].LastsUntil.Before(options[j].LastsUntil)
	})
	return options, nil
}

// applyGracePeriod relaxes the first graceHours of constraints so that a cold
// start (e.g. returning to an unheated house) is not reported as an immediate
// violation.
func applyGracePeriod(ranges []thermal.Constraint, graceHours float64) []thermal.Constraint {
	if graceHours <= 0 {
		return ranges
	}
	for len(ranges) > 1 && ranges[1].Start <= graceHours {
		ranges = ranges[1:]
	}
	if len(ranges) > 0 && ranges[0].Start < graceHours {
		ranges[0].Start = graceHours
	}
	return append([]thermal.Constraint{{Start: 0, Min: math.Inf(-1), Max: math.Inf(1)}}, ranges...)
}

func addHours(t time.Time, hours float64) time.Time {
	return t.Add(time.Duration(hours * float64(time.Hour)))
}
