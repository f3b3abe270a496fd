// Command heatplan finds the cheapest heating schedules that keep the house
// acceptably warm for each of the next few days, and prints them to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/kentwell/heatplan/internal/clients/metoffice"
	"github.com/kentwell/heatplan/internal/clients/octopus"
	"github.com/kentwell/heatplan/internal/config"
	"github.com/kentwell/heatplan/internal/database"
	"github.com/kentwell/heatplan/internal/modules/bulletin"
	"github.com/kentwell/heatplan/internal/modules/planning"
	"github.com/kentwell/heatplan/internal/modules/pricing"
	"github.com/kentwell/heatplan/internal/modules/thermal"
	"github.com/kentwell/heatplan/internal/modules/weather"
	"github.com/kentwell/heatplan/internal/timeutil"
	"github.com/kentwell/heatplan/pkg/logger"
)

func main() {
	initialTemp := flag.Float64("initial-temp", math.NaN(),
		"current indoor temperature in °C (required)")
	days := flag.Int("days", 2,
		"maximum number of days the heating should last for")
	maxHeats := flag.Int("max-heats", 3,
		"maximum number of times to run each type of heating")
	assumeTemp := flag.Float64("assume-temp", math.NaN(),
		"outdoor temperature in °C to assume beyond the forecast horizon")
	refresh := flag.Bool("refresh", true,
		"fetch fresh prices and forecast before planning")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if math.IsNaN(*initialTemp) {
		log.Fatal().Msg("-initial-temp is required")
	}
	if *days < 1 {
		log.Fatal().Msg("-days must be at least 1")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve time zone")
	}
	building, err := thermal.NewBuildingFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build thermal model")
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	priceRepo := pricing.NewRepository(db.Conn(), log)
	weatherRepo := weather.NewRepository(db.Conn(), log)

	// The plan starts at 23:00 tonight, when tomorrow's published prices
	// begin.
	midnight := timeutil.MidnightTonight(loc)
	start := midnight.Add(-time.Hour)

	if *refresh {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		octopusClient := octopus.NewClient(cfg.OctopusBaseURL, cfg.OctopusProduct, cfg.OctopusRegion, log)
		pricingSvc := pricing.NewService(priceRepo, octopusClient, log)
		if _, err := pricingSvc.Refresh(ctx, start); err != nil {
			log.Warn().Err(err).Msg("Price refresh failed, using stored prices")
		}
		metClient := metoffice.NewClient(cfg.MetOfficeBaseURL, cfg.MetOfficeAPIKey, cfg.Latitude, cfg.Longitude, log)
		weatherSvc := weather.NewService(weatherRepo, metClient, log)
		if _, err := weatherSvc.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("Forecast refresh failed, using stored forecast")
		}
	}

	outdoor, err := weatherRepo.HourlyTemperatures(start)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load temperature forecast")
	}
	// One extra hour for the fencepost and one for the 23:00 start.
	numMissing := 24*(*days) - len(outdoor) + 2
	if numMissing > 0 {
		if math.IsNaN(*assumeTemp) {
			log.Fatal().
				Int("missing_hours", numMissing).
				Msg("Forecast too short for this many days; rerun with -assume-temp")
		}
		for i := 0; i < numMissing; i++ {
			outdoor = append(outdoor, *assumeTemp)
		}
		log.Info().
			Int("missing_hours", numMissing).
			Float64("assumed_temp", *assumeTemp).
			Msg("Extended forecast with assumed temperature")
	}

	series, err := priceRepo.SeriesFrom(start)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load prices")
	}
	if len(series.Unit) == 0 {
		log.Fatal().Msg("Could not obtain prices")
	}
	if len(series.Unit) != 48 {
		log.Warn().Msg("Tomorrow appears to feature a daylight savings switchover")
		log.Warn().Msg("Analogue timers may need the times below to be adjusted accordingly")
	}

	endTimes := timeutil.Sequence(midnight.Add(24*time.Hour), 24*time.Hour, *days)
	planner := planning.NewPlanner(cfg, building, log)
	options, err := planner.HeatingOptions(
		outdoor, start, *initialTemp, endTimes, series.Unit, *maxHeats,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Planning failed")
	}

	fmt.Print(bulletin.OptionsSummary(options, start))
}
