package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kentwell/heatplan/internal/clients/octopus"
)

// Service refreshes the stored unit prices from the Octopus API.
type Service struct {
	repo   *Repository
	client *octopus.Client
	log    zerolog.Logger
}

// NewService creates a new pricing service.
func NewService(repo *Repository, client *octopus.Client, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		client: client,
		log:    log.With().Str("service", "pricing").Logger(),
	}
}

// Refresh fetches unit rates valid from the given time onwards and stores
// them. Returns the number of rates stored.
func (s *Service) Refresh(ctx context.Context, from time.Time) (int, error) {
	rates, err := s.client.UnitRates(ctx, from)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch unit rates: %w", err)
	}

	points := make([]PricePoint, len(rates))
	for i, rate := range rates {
		points[i] = PricePoint{PeriodStart: rate.ValidFrom, Price: rate.Price}
	}
	n, err := s.repo.Upsert(points)
	if err != nil {
		return 0, fmt.Errorf("failed to store unit rates: %w", err)
	}

	s.log.Info().Int("count", n).Time("from", from).Msg("Refreshed unit prices")
	return n, nil
}

// RefreshWait calls Refresh repeatedly until at least one rate is available,
// waiting the given interval between attempts. Tomorrow's Agile prices are
// published at an unpredictable time in the afternoon, so callers that run
// early may need to wait for them.
func (s *Service) RefreshWait(ctx context.Context, from time.Time, interval time.Duration) (int, error) {
	for {
		n, err := s.Refresh(ctx, from)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return n, nil
		}
		s.log.Info().Dur("interval", interval).Msg("No prices published yet, waiting")
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(interval):
		}
	}
}
