package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewStages(t *testing.T) {
	t.Run("sorts targets ascending", func(t *testing.T) {
		s, err := NewStages([]float64{500, 100, 1000, 300})
		require.NoError(t, err)
		require.Len(t, s, 4)
		assert.Equal(t, 100.0, s[0].Threshold)
		assert.Equal(t, 1000.0, s[3].Threshold)
		assert.Equal(t, 1000.0, s.Max())
		for _, st := range s {
			assert.False(t, st.Reached)
			assert.True(t, st.Date.IsZero())
		}
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := NewStages(nil)
		require.Error(t, err)
	})

	t.Run("rejects non-positive", func(t *testing.T) {
		_, err := NewStages([]float64{100, 0})
		require.Error(t, err)
		_, err = NewStages([]float64{-50})
		require.Error(t, err)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := NewStages([]float64{100, 300, 100})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})
}

func TestStages_MarkReached(t *testing.T) {
	t.Run("marks every threshold at or below the total", func(t *testing.T) {
		s, err := NewStages([]float64{100, 300, 500})
		require.NoError(t, err)

		d := date(2025, time.March, 10)
		marked := s.MarkReached(310, d)
		assert.Equal(t, 2, marked)

		st, ok := s.Lookup(100)
		require.True(t, ok)
		assert.True(t, st.Reached)
		assert.Equal(t, d, st.Date)

		st, _ = s.Lookup(300)
		assert.True(t, st.Reached)

		st, _ = s.Lookup(500)
		assert.False(t, st.Reached)
	})

	t.Run("first crossing date is never overwritten", func(t *testing.T) {
		s, err := NewStages([]float64{100})
		require.NoError(t, err)

		first := date(2025, time.March, 10)
		later := date(2025, time.March, 20)

		assert.Equal(t, 1, s.MarkReached(105, first))
		assert.Equal(t, 0, s.MarkReached(200, later))

		st, _ := s.Lookup(100)
		assert.Equal(t, first, st.Date)
	})

	t.Run("below all thresholds marks nothing", func(t *testing.T) {
		s, err := NewStages([]float64{100, 300})
		require.NoError(t, err)
		assert.Equal(t, 0, s.MarkReached(99.99, date(2025, time.March, 1)))
	})
}

func TestStages_Clone(t *testing.T) {
	s, err := NewStages([]float64{100, 300})
	require.NoError(t, err)
	s.MarkReached(150, date(2025, time.April, 1))

	clone := s.Clone()
	clone.MarkReached(400, date(2025, time.May, 1))

	// The original must not see the clone's crossing.
	st, _ := s.Lookup(300)
	assert.False(t, st.Reached)
	st, _ = clone.Lookup(300)
	assert.True(t, st.Reached)
}

func TestStages_Lookup_Missing(t *testing.T) {
	s, err := NewStages([]float64{100})
	require.NoError(t, err)
	_, ok := s.Lookup(250)
	assert.False(t, ok)
}
