package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Europe/London", cfg.TimeZone)
	assert.Equal(t, 0.1, cfg.FastHeatCapacity)
	assert.Equal(t, 3.0, cfg.StorageHeaterSize)
	assert.Equal(t, []HourRange{{Start: 0, End: 8}}, cfg.AbsentHours)
	assert.Equal(t, 64, cfg.OptimizationPopSize)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", loc.String())
}

func TestParseHourRanges(t *testing.T) {
	ranges, err := parseHourRanges("0-8, 9-17")
	require.NoError(t, err)
	assert.Equal(t, []HourRange{{0, 8}, {9, 17}}, ranges)

	_, err = parseHourRanges("8")
	assert.Error(t, err)

	_, err = parseHourRanges("a-b")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{DatabasePath: "x.db", MinTemp: 16, MaxTemp: 24}
	assert.NoError(t, cfg.Validate())

	cfg.MinTemp = 24
	assert.Error(t, cfg.Validate())

	cfg.MinTemp = 16
	cfg.AbsentHours = []HourRange{{8, 8}}
	assert.Error(t, cfg.Validate())

	cfg.AbsentHours = nil
	cfg.DatabasePath = ""
	assert.Error(t, cfg.Validate())
}
