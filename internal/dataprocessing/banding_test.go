package dataprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smechannel/pkg/contracts/domain"
)

func TestQuintileThresholds(t *testing.T) {
	t.Run("one to ten", func(t *testing.T) {
		th, ok := QuintileThresholds([]float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1})
		require.True(t, ok)
		assert.Equal(t, domain.BandThresholds{P20: 2, P40: 4, P60: 6, P80: 8}, th)

		assert.Equal(t, domain.BandMid, th.Band(5))
		assert.Equal(t, domain.BandVeryHigh, th.Band(9))
		assert.Equal(t, domain.BandVeryLow, th.Band(2))
		assert.Equal(t, domain.BandLow, th.Band(3))
		assert.Equal(t, domain.BandHigh, th.Band(8))
	})

	t.Run("too few values", func(t *testing.T) {
		_, ok := QuintileThresholds([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
		assert.False(t, ok)
	})

	t.Run("non-finite values ignored", func(t *testing.T) {
		values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, math.NaN(), math.Inf(1)}
		_, ok := QuintileThresholds(values)
		assert.False(t, ok)
	})

	t.Run("input left unsorted", func(t *testing.T) {
		values := []float64{5, 1, 4, 2, 3, 10, 9, 8, 7, 6}
		_, ok := QuintileThresholds(values)
		require.True(t, ok)
		assert.Equal(t, 5.0, values[0])
	})

	t.Run("identical values share a band", func(t *testing.T) {
		values := make([]float64, 12)
		for i := range values {
			values[i] = 100
		}
		th, ok := QuintileThresholds(values)
		require.True(t, ok)
		assert.Equal(t, domain.BandVeryLow, th.Band(100))
	})
}

func TestBandSummaries_IncludesEmptyBands(t *testing.T) {
	th := domain.BandThresholds{P20: 10, P40: 20, P60: 30, P80: 40}
	records := []domain.Record{{Premium: 5}, {Premium: 50}, {Premium: 45}}

	bands := BandSummaries(records, th)
	require.Len(t, bands, 5)
	assert.Equal(t, domain.GroupSummary{Key: domain.BandVeryLow, Sum: 5, Count: 1, Mean: 5}, bands[0])
	assert.Equal(t, domain.GroupSummary{Key: domain.BandLow}, bands[1])
	assert.Equal(t, domain.GroupSummary{Key: domain.BandVeryHigh, Sum: 95, Count: 2, Mean: 47.5}, bands[4])
}
