// Package weather stores outdoor temperature forecasts and resamples them to
// the hourly grid the thermal simulation consumes.
package weather

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/interp"
)

const timeLayout = "2006-01-02T15:04:05Z"

// ErrInsufficientData indicates the stored forecast does not cover the
// requested start time.
var ErrInsufficientData = errors.New("insufficient stored temperature forecast")

// ForecastPoint is a forecast temperature at a point in time.
type ForecastPoint struct {
	Time        time.Time
	Temperature float64
}

// Repository persists forecast temperatures.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new weather repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "weather").Logger(),
	}
}

// Upsert stores the given forecast points. A fresher forecast for a time
// already stored replaces the old value.
func (r *Repository) Upsert(points []ForecastPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO forecast_temperatures (time, temperature, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(time) DO UPDATE SET temperature = excluded.temperature, fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	fetchedAt := time.Now().UTC().Format(timeLayout)
	for _, p := range points {
		if _, err := stmt.Exec(p.Time.UTC().Format(timeLayout), p.Temperature, fetchedAt); err != nil {
			return 0, fmt.Errorf("failed to upsert forecast point: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit forecast: %w", err)
	}
	return len(points), nil
}

// HourlyTemperatures returns hourly forecast temperatures starting at start,
// for as long as the stored forecast permits. Stored points are linearly
// interpolated onto the hourly grid. Returns ErrInsufficientData when the
// forecast does not cover start.
func (r *Repository) HourlyTemperatures(start time.Time) ([]float64, error) {
	rows, err := r.db.Query("SELECT time, temperature FROM forecast_temperatures ORDER BY time ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast: %w", err)
	}
	defer rows.Close()

	var points []ForecastPoint
	for rows.Next() {
		var timeStr string
		var temp float64
		if err := rows.Scan(&timeStr, &temp); err != nil {
			return nil, fmt.Errorf("failed to scan forecast point: %w", err)
		}
		pointTime, err := time.Parse(timeLayout, timeStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored time %q: %w", timeStr, err)
		}
		points = append(points, ForecastPoint{Time: pointTime, Temperature: temp})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forecast: %w", err)
	}

	return hourlyFromPoints(points, start)
}

func hourlyFromPoints(points []ForecastPoint, start time.Time) ([]float64, error) {
	if len(points) == 0 {
		return nil, ErrInsufficientData
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })

	startUTC := start.UTC()
	if startUTC.Before(points[0].Time) || points[len(points)-1].Time.Before(startUTC) {
		return nil, ErrInsufficientData
	}

	// Convert to hours after start.
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Time.Sub(startUTC).Hours()
		ys[i] = p.Temperature
	}
	numHours := int(xs[len(xs)-1])

	if len(points) == 1 {
		return []float64{ys[0]}, nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("failed to interpolate forecast: %w", err)
	}
	temps := make([]float64, numHours+1)
	for h := 0; h <= numHours; h++ {
		temps[h] = pl.Predict(float64(h))
	}
	return temps, nil
}
