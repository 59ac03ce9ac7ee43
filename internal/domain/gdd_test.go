package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailyGDD(t *testing.T) {
	tests := []struct {
		name     string
		tmax     float64
		tmin     float64
		tbase    float64
		expected float64
	}{
		{"warm day", 30, 20, 10, 15},
		{"mean equals base", 20, 0, 10, 0},
		{"below base clamps to zero", 5, -5, 10, 0},
		{"well below base", -10, -20, 10, 0},
		{"zero base", 30, 10, 0, 20},
		{"negative base", 10, 0, -5, 10},
		{"fractional", 25.5, 14.5, 10, 10},
		{"extreme heat is uncapped", 50, 40, 10, 35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DailyGDD(tt.tmax, tt.tmin, tt.tbase))
		})
	}
}

func TestDailyGDD_NeverNegative(t *testing.T) {
	// Sweep a grid of extremes; the contribution must always be >= 0 and
	// equal the mean-minus-base whenever that is non-negative.
	for tmax := -40.0; tmax <= 50; tmax += 7.5 {
		for tmin := -50.0; tmin <= tmax; tmin += 7.5 {
			for tbase := -5.0; tbase <= 20; tbase += 5 {
				got := DailyGDD(tmax, tmin, tbase)
				assert.GreaterOrEqual(t, got, 0.0)

				if raw := (tmax+tmin)/2 - tbase; raw >= 0 {
					assert.Equal(t, raw, got)
				} else {
					assert.Equal(t, 0.0, got)
				}
			}
		}
	}
}
