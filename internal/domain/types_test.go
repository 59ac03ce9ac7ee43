package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() SimulationConfig {
	return SimulationConfig{
		Lat:         13.0827,
		Lon:         80.2707,
		Start:       date(2025, time.January, 1),
		BaseTemp:    10,
		Targets:     []float64{100, 300},
		HorizonDays: 365,
		BlockDays:   30,
	}
}

func TestSimulationConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SimulationConfig)
		wantErr string
	}{
		{"valid", func(*SimulationConfig) {}, ""},
		{"latitude too high", func(c *SimulationConfig) { c.Lat = 91 }, "latitude"},
		{"latitude too low", func(c *SimulationConfig) { c.Lat = -90.5 }, "latitude"},
		{"longitude out of range", func(c *SimulationConfig) { c.Lon = 181 }, "longitude"},
		{"zero start", func(c *SimulationConfig) { c.Start = time.Time{} }, "start date"},
		{"zero block days", func(c *SimulationConfig) { c.BlockDays = 0 }, "block_days"},
		{"no targets", func(c *SimulationConfig) { c.Targets = nil }, "target"},
		{"negative target", func(c *SimulationConfig) { c.Targets = []float64{-1} }, "positive"},
		{"zero horizon is allowed", func(c *SimulationConfig) { c.HorizonDays = 0 }, ""},
		{"negative horizon is allowed", func(c *SimulationConfig) { c.HorizonDays = -5 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSimulationConfig_HorizonEnd(t *testing.T) {
	cfg := validConfig()
	cfg.HorizonDays = 10
	assert.Equal(t, date(2025, time.January, 11), cfg.HorizonEnd())
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("IST", int(5.5*3600))
	in := time.Date(2025, time.June, 15, 23, 45, 12, 999, loc)
	got := Day(in)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, date(2025, time.June, 15), got)
}

func TestResult_Finished(t *testing.T) {
	fixed := time.Date(2026, time.February, 3, 12, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	r := Result{}.Finished(true)
	assert.True(t, r.Completed)
	assert.Equal(t, fixed, r.FinishedAt)

	r = Result{}.Finished(false)
	assert.False(t, r.Completed)
}

func TestResult_CumulativeGDD(t *testing.T) {
	assert.Equal(t, 0.0, Result{}.CumulativeGDD())

	r := Result{Records: []Record{
		{Date: date(2025, time.January, 1), GDDDay: 10, GDDCum: 10},
		{Date: date(2025, time.January, 2), GDDDay: 5, GDDCum: 15},
	}}
	assert.Equal(t, 15.0, r.CumulativeGDD())
}

func TestRemoteError(t *testing.T) {
	t.Run("with status", func(t *testing.T) {
		err := &RemoteError{Status: 503, Attempts: 3, Err: assert.AnError}
		assert.Contains(t, err.Error(), "503")
		assert.Contains(t, err.Error(), "3 attempt")
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("network-level", func(t *testing.T) {
		err := &RemoteError{Attempts: 1, Err: assert.AnError}
		assert.NotContains(t, err.Error(), "status")
	})
}
