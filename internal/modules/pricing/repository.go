package pricing

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const timeLayout = "2006-01-02T15:04:05Z"

// PricePoint is a single settlement period's unit price.
type PricePoint struct {
	PeriodStart time.Time
	Price       float64
}

// Repository persists unit prices.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new price repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "pricing").Logger(),
	}
}

// Upsert stores the given price points, replacing any already stored for the
// same settlement periods. Returns the number of points written.
func (r *Repository) Upsert(points []PricePoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO unit_prices (period_start, price, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(period_start) DO UPDATE SET price = excluded.price, fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	fetchedAt := time.Now().UTC().Format(timeLayout)
	for _, p := range points {
		if _, err := stmt.Exec(p.PeriodStart.UTC().Format(timeLayout), p.Price, fetchedAt); err != nil {
			return 0, fmt.Errorf("failed to upsert price: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prices: %w", err)
	}
	return len(points), nil
}

// SeriesFrom returns the contiguous run of half-hourly prices beginning
// exactly at start. The series ends at the first gap in the stored data; it
// is empty when no price is stored for start itself.
func (r *Repository) SeriesFrom(start time.Time) (Series, error) {
	rows, err := r.db.Query(
		"SELECT period_start, price FROM unit_prices WHERE period_start >= ? ORDER BY period_start ASC",
		start.UTC().Format(timeLayout),
	)
	if err != nil {
		return Series{}, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	series := Series{Start: start}
	next := start.UTC()
	for rows.Next() {
		var periodStr string
		var price float64
		if err := rows.Scan(&periodStr, &price); err != nil {
			return Series{}, fmt.Errorf("failed to scan price: %w", err)
		}
		period, err := time.Parse(timeLayout, periodStr)
		if err != nil {
			return Series{}, fmt.Errorf("failed to parse stored period %q: %w", periodStr, err)
		}
		if !period.Equal(next) {
			break
		}
		series.Unit = append(series.Unit, price)
		next = next.Add(30 * time.Minute)
	}
	if err := rows.Err(); err != nil {
		return Series{}, fmt.Errorf("error iterating prices: %w", err)
	}
	return series, nil
}

// WindowPrices returns the stored prices with period starts in [from, to) as
// a map suitable for CheapestWindow.
func (r *Repository) WindowPrices(from, to time.Time) (map[time.Time]float64, error) {
	rows, err := r.db.Query(
		"SELECT period_start, price FROM unit_prices WHERE period_start >= ? AND period_start < ?",
		from.UTC().Format(timeLayout), to.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[time.Time]float64)
	for rows.Next() {
		var periodStr string
		var price float64
		if err := rows.Scan(&periodStr, &price); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		period, err := time.Parse(timeLayout, periodStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored period %q: %w", periodStr, err)
		}
		prices[period] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}
	return prices, nil
}
