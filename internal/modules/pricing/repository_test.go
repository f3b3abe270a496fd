package pricing

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitSchema(db))
	return NewRepository(db, zerolog.Nop())
}

func TestRepositorySeriesFrom(t *testing.T) {
	repo := testRepo(t)
	start := time.Date(2024, 1, 10, 23, 0, 0, 0, time.UTC)

	points := []PricePoint{
		{PeriodStart: start, Price: 10},
		{PeriodStart: start.Add(30 * time.Minute), Price: 12},
		{PeriodStart: start.Add(60 * time.Minute), Price: 8},
		// Gap at +90m.
		{PeriodStart: start.Add(120 * time.Minute), Price: 6},
	}
	n, err := repo.Upsert(points)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	series, err := repo.SeriesFrom(start)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 12, 8}, series.Unit)
	assert.Equal(t, 1.5, series.Hours())

	// No price stored for the requested start: empty series.
	series, err = repo.SeriesFrom(start.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, series.Unit)

	// Upsert replaces existing periods.
	_, err = repo.Upsert([]PricePoint{{PeriodStart: start, Price: 11}})
	require.NoError(t, err)
	series, err = repo.SeriesFrom(start)
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 12, 8}, series.Unit)
}

func TestRepositoryWindowPrices(t *testing.T) {
	repo := testRepo(t)
	start := time.Date(2024, 1, 10, 23, 0, 0, 0, time.UTC)

	_, err := repo.Upsert([]PricePoint{
		{PeriodStart: start, Price: 10},
		{PeriodStart: start.Add(30 * time.Minute), Price: 12},
		{PeriodStart: start.Add(60 * time.Minute), Price: 8},
	})
	require.NoError(t, err)

	prices, err := repo.WindowPrices(start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, 10.0, prices[start])
	assert.Equal(t, 12.0, prices[start.Add(30*time.Minute)])
}
