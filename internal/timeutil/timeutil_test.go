package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMidnightAfter(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	got := MidnightAfter(time.Date(2020, 1, 15, 22, 30, 0, 0, london), london)
	assert.Equal(t, time.Date(2020, 1, 16, 0, 0, 0, 0, london), got)

	// The day the clocks go forward is only 23 hours long, but the result is
	// still wall-clock midnight.
	got = MidnightAfter(time.Date(2020, 3, 29, 12, 0, 0, 0, london), london)
	assert.Equal(t, time.Date(2020, 3, 30, 0, 0, 0, 0, london), got)
	assert.Equal(t, "BST", got.Format("MST"))

	// The caller's zone does not matter, only the target location.
	utc := time.Date(2020, 6, 1, 23, 30, 0, 0, time.UTC) // 00:30 on 2 June in London
	got = MidnightAfter(utc, london)
	assert.Equal(t, time.Date(2020, 6, 3, 0, 0, 0, 0, london), got)
}

func TestSequence(t *testing.T) {
	start := time.Date(2020, 1, 1, 23, 0, 0, 0, time.UTC)
	got := Sequence(start, 30*time.Minute, 3)
	assert.Equal(t, []time.Time{
		start,
		start.Add(30 * time.Minute),
		start.Add(time.Hour),
	}, got)

	assert.Empty(t, Sequence(start, time.Hour, 0))
}
