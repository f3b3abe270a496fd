// Command bulletind is a daemon that emails the daily Agile Octopus bulletin.
// Each afternoon it refreshes the stored prices and forecast, waits for
// tomorrow's prices to be published, and sends the report.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kentwell/heatplan/internal/clients/metoffice"
	"github.com/kentwell/heatplan/internal/clients/octopus"
	"github.com/kentwell/heatplan/internal/config"
	"github.com/kentwell/heatplan/internal/database"
	"github.com/kentwell/heatplan/internal/modules/bulletin"
	"github.com/kentwell/heatplan/internal/modules/pricing"
	"github.com/kentwell/heatplan/internal/modules/weather"
	"github.com/kentwell/heatplan/internal/scheduler"
	"github.com/kentwell/heatplan/pkg/logger"
)

func main() {
	schedule := flag.String("schedule", "30 16 * * *",
		"cron schedule (local time) for the daily bulletin")
	runNow := flag.Bool("now", false,
		"send a bulletin immediately on startup as well")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log.Info().Msg("Starting bulletin daemon")

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve time zone")
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
	octopusClient := octopus.NewClient(cfg.OctopusBaseURL, cfg.OctopusProduct, cfg.OctopusRegion, log)
	metClient := metoffice.NewClient(cfg.MetOfficeBaseURL, cfg.MetOfficeAPIKey, cfg.Latitude, cfg.Longitude, log)

	job := scheduler.NewDailyBulletinJob(
		pricing.NewService(priceRepo, octopusClient, log),
		weather.NewService(weatherRepo, metClient, log),
		priceRepo,
		bulletin.NewSender(cfg, log),
		loc,
		log,
	)

	sched := scheduler.New(loc, log)
	if err := sched.AddJob(*schedule, job); err != nil {
		log.Fatal().Err(err).Msg("Failed to register bulletin job")
	}
	sched.Start()
	defer sched.Stop()

	if *runNow {
		go func() {
			if err := sched.RunNow(job); err != nil {
				log.Error().Err(err).Msg("Immediate bulletin failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
}
