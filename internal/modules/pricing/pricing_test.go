package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCost(t *testing.T) {
	cost, err := Cost([]float64{0, 1, 2, 3, 4, 5, 6}, []float64{1, 2, 3, 5, 7, 11})
	require.NoError(t, err)
	assert.Equal(t, 106.0, cost)

	cost, err = Cost([]float64{0, 1, 2, 3, 4, 5}, []float64{1, 2, 3, 5, 7, 11})
	require.NoError(t, err)
	assert.Equal(t, 106.0, cost)

	// Zero usage beyond the price horizon is fine.
	cost, err = Cost([]float64{0, 1, 2, 3, 4, 5}, []float64{1, 2, 3, 5, 7, 11, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 106.0, cost)

	_, err = Cost([]float64{0, 1, 2, 3, 4, 5}, []float64{1, 2, 3, 5, 7, 11, 0, 1})
	assert.ErrorIs(t, err, ErrPriceHorizon)
}

func TestCheapestWindow(t *testing.T) {
	day := func(h, m int) time.Time {
		return time.Date(2020, 1, 1, h, m, 0, 0, time.UTC)
	}
	prices := map[time.Time]float64{
		day(4, 0):   50,
		day(4, 30):  40,
		day(5, 0):   1,
		day(5, 30):  40,
		day(8, 0):   2,
		day(8, 30):  4,
		day(9, 0):   30,
		day(9, 30):  3.5,
		day(10, 0):  3.5,
		day(10, 30): 3,
		day(11, 0):  4,
		day(11, 30): 30,
		day(13, 30): 3,
		day(14, 0):  4,
		day(14, 30): 3,
		day(15, 0):  4,
	}

	w, err := CheapestWindow(0.5, prices)
	require.NoError(t, err)
	assert.Equal(t, day(5, 0), w.Start)
	assert.Equal(t, 1.0, w.AveragePrice)

	w, err = CheapestWindow(1, prices)
	require.NoError(t, err)
	assert.Equal(t, day(8, 0), w.Start)
	assert.Equal(t, 3.0, w.AveragePrice)

	w, err = CheapestWindow(2, prices)
	require.NoError(t, err)
	assert.Equal(t, day(13, 30), w.Start)
	assert.Equal(t, 3.5, w.AveragePrice)

	_, err = CheapestWindow(4.5, prices)
	assert.ErrorIs(t, err, ErrNoWindow)

	_, err = CheapestWindow(0, prices)
	assert.Error(t, err)
	_, err = CheapestWindow(0.75, prices)
	assert.Error(t, err)
}

func TestCheapestWindowPreservesZone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	prices := map[time.Time]float64{
		time.Date(2020, 6, 1, 12, 0, 0, 0, loc):  2,
		time.Date(2020, 6, 1, 12, 30, 0, 0, loc): 1,
		time.Date(2020, 6, 1, 13, 0, 0, 0, loc):  3,
	}
	w, err := CheapestWindow(0.5, prices)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 6, 1, 12, 30, 0, 0, loc), w.Start)
	assert.Equal(t, "Europe/London", w.Start.Location().String())
}
