package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kentwell/heatplan/internal/modules/bulletin"
	"github.com/kentwell/heatplan/internal/modules/pricing"
	"github.com/kentwell/heatplan/internal/modules/weather"
	"github.com/kentwell/heatplan/internal/timeutil"
)

// DailyBulletinJob refreshes the stored prices and forecast, then emails the
// daily bulletin. It is meant to run once per afternoon: tomorrow's Agile
// prices are published at an unpredictable time around 16:00 local, so the
// job waits for them.
type DailyBulletinJob struct {
	pricing *pricing.Service
	weather *weather.Service
	prices  *pricing.Repository
	sender  *bulletin.Sender
	loc     *time.Location
	log     zerolog.Logger

	// Timeout bounds one run, including the wait for prices to publish.
	Timeout time.Duration
	// PollInterval is how long to wait between price fetch attempts.
	PollInterval time.Duration
}

// NewDailyBulletinJob wires up the bulletin job.
func NewDailyBulletinJob(
	pricingSvc *pricing.Service,
	weatherSvc *weather.Service,
	prices *pricing.Repository,
	sender *bulletin.Sender,
	loc *time.Location,
	log zerolog.Logger,
) *DailyBulletinJob {
	return &DailyBulletinJob{
		pricing:      pricingSvc,
		weather:      weatherSvc,
		prices:       prices,
		sender:       sender,
		loc:          loc,
		log:          log.With().Str("job", "daily_bulletin").Logger(),
		Timeout:      4 * time.Hour,
		PollInterval: 15 * time.Minute,
	}
}

// Name implements Job.
func (j *DailyBulletinJob) Name() string { return "daily_bulletin" }

// Run implements Job.
func (j *DailyBulletinJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.Timeout)
	defer cancel()

	midnight := timeutil.MidnightTonight(j.loc)
	pricesStart := midnight.Add(-time.Hour) // 23:00 tonight

	if _, err := j.pricing.RefreshWait(ctx, pricesStart, j.PollInterval); err != nil {
		return fmt.Errorf("refreshing prices: %w", err)
	}
	if _, err := j.weather.Refresh(ctx); err != nil {
		// The bulletin itself only needs prices.
		j.log.Warn().Err(err).Msg("Forecast refresh failed")
	}

	series, err := j.prices.SeriesFrom(pricesStart)
	if err != nil {
		return fmt.Errorf("loading prices: %w", err)
	}
	if len(series.Unit) != 48 {
		// 46 or 50 settlement periods mean a DST switchover tomorrow.
		j.log.Warn().Int("count", len(series.Unit)).Msg("Tomorrow is not 24 hours of prices")
	}

	report := bulletin.Report{
		Date:   midnight.AddDate(0, 0, -1),
		Prices: series,
	}
	return j.sender.Send(report.Subject(), report.Body())
}
