package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kentwell/heatplan/internal/clients/metoffice"
)

// Service refreshes the stored temperature forecast from the Met Office.
type Service struct {
	repo   *Repository
	client *metoffice.Client
	log    zerolog.Logger
}

// NewService creates a new weather service.
func NewService(repo *Repository, client *metoffice.Client, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		client: client,
		log:    log.With().Str("service", "weather").Logger(),
	}
}

// Refresh fetches the hourly forecast, extends it with three-hourly points
// beyond the hourly horizon, and stores the result. Returns the number of
// points stored.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	hourly, err := s.client.Hourly(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch hourly forecast: %w", err)
	}
	if len(hourly) == 0 {
		return 0, fmt.Errorf("hourly forecast is empty")
	}

	var lastHourly time.Time
	for _, p := range hourly {
		if p.Time.After(lastHourly) {
			lastHourly = p.Time
		}
	}

	threeHourly, err := s.client.ThreeHourly(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch three-hourly forecast: %w", err)
	}

	points := make([]ForecastPoint, 0, len(hourly)+len(threeHourly))
	for _, p := range hourly {
		points = append(points, ForecastPoint{Time: p.Time, Temperature: p.Temperature})
	}
	for _, p := range threeHourly {
		if p.Time.After(lastHourly) {
			points = append(points, ForecastPoint{Time: p.Time, Temperature: p.Temperature})
		}
	}

	n, err := s.repo.Upsert(points)
	if err != nil {
		return 0, fmt.Errorf("failed to store forecast: %w", err)
	}
	s.log.Info().Int("count", n).Msg("Refreshed temperature forecast")
	return n, nil
}
