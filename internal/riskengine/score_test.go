package riskengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
)

func occWithDays(days [models.BandCount]int) *models.OccupancySet {
	bands := make(map[models.BandKey]models.RiskBand, models.BandCount)
	total := 0
	for i, key := range models.BandKeys {
		bands[key] = models.RiskBand{Key: key, Days: days[i]}
		total += days[i]
	}
	return &models.OccupancySet{
		Symbol:      "BTCUSDT",
		Bands:       bands,
		LifeAgeDays: total,
		Consistent:  true,
	}
}

func TestBaseScoreWorkedExample(t *testing.T) {
	// risk value 0.505 sits in zone [0.40,0.60] at proportion 0.525:
	// 40 + 0.525*20 = 50.5, rounded to 51.
	score, err := BaseScore(0.505, nil)
	require.NoError(t, err)
	assert.Equal(t, 51, score)
}

func TestBaseScoreStaysInZoneWithoutOccupancy(t *testing.T) {
	zones := []struct {
		lo, hi   float64
		min, max int
	}{
		{0.0, 0.25, 70, 100},
		{0.25, 0.40, 60, 70},
		{0.40, 0.60, 40, 60},
		{0.60, 0.75, 60, 70},
		{0.75, 1.0, 70, 100},
	}
	for _, z := range zones {
		// The upper boundary belongs to the next zone, so sample up to
		// just below it. The topmost zone is closed at 1.0.
		hi := z.hi - 0.001
		if z.hi == 1.0 {
			hi = 1.0
		}
		for _, v := range []float64{z.lo, (z.lo + z.hi) / 2, hi} {
			score, err := BaseScore(v, nil)
			require.NoError(t, err, "v=%v", v)
			assert.GreaterOrEqual(t, score, z.min, "v=%v", v)
			assert.LessOrEqual(t, score, z.max, "v=%v", v)
		}
	}
}

func TestBaseScoreBoundaryBelongsToUpperZone(t *testing.T) {
	// A value on a shared zone boundary scores at the bottom of the upper
	// zone, mirroring how bands resolve boundaries.
	cases := []struct {
		v    float64
		want int
	}{
		{0.0, 70},
		{0.25, 60},
		{0.40, 40},
		{0.60, 60},
		{0.75, 70},
		{1.0, 100},
	}
	for _, tc := range cases {
		score, err := BaseScore(tc.v, nil)
		require.NoError(t, err, "v=%v", tc.v)
		assert.Equal(t, tc.want, score, "v=%v", tc.v)
	}
}

func TestBaseScoreBothNeighborsRarer(t *testing.T) {
	// Band 0.5-0.6 has 50 days, both neighbors 10. Zone score at 0.55 is
	// 55; rarity rank 3 of 10 gives 20*(7/9); proximity adds 15.
	// 55 + 15.556 + 15 = 85.556 -> 86.
	occ := occWithDays([models.BandCount]int{100, 100, 100, 100, 10, 50, 10, 100, 100, 100})
	score, err := BaseScore(0.55, occ)
	require.NoError(t, err)
	assert.Equal(t, 86, score)
}

func TestBaseScoreOneNeighborRarer(t *testing.T) {
	// Only the upper neighbor is rarer: 25 days vs current 50. The ratio
	// bonus min(10, 50/25*5) caps at 10. Rarity rank 2 gives 20*(8/9).
	// 55 + 17.778 + 10 = 82.778 -> 83.
	occ := occWithDays([models.BandCount]int{100, 100, 100, 100, 100, 50, 25, 100, 100, 100})
	score, err := BaseScore(0.55, occ)
	require.NoError(t, err)
	assert.Equal(t, 83, score)
}

func TestBaseScoreRatioBonusBelowCap(t *testing.T) {
	// Rarer neighbor at 40 days vs current 50: ratio bonus 50/40*5 = 6.25
	// stays under the 10-point cap. Zone 55 + rarity 20*(8/9) + 6.25 -> 79.
	occ := occWithDays([models.BandCount]int{100, 100, 100, 100, 100, 50, 40, 100, 100, 100})
	withRatio, err := BaseScore(0.55, occ)
	require.NoError(t, err)
	assert.Equal(t, 79, withRatio)

	// Same band with no rarer neighbor: rarest band overall, no proximity.
	// Zone 55 + rarity 20 -> 75.
	flat := occWithDays([models.BandCount]int{100, 100, 100, 100, 100, 50, 100, 100, 100, 100})
	without, err := BaseScore(0.55, flat)
	require.NoError(t, err)
	assert.Equal(t, 75, without)
}

func TestBaseScoreNeverExceeds100(t *testing.T) {
	// Rarest band in a high-scoring zone with both neighbors rarer would
	// overflow without the cap.
	occ := occWithDays([models.BandCount]int{0, 2, 500, 500, 500, 500, 500, 500, 500, 500})
	for _, v := range []float64{0.01, 0.05, 0.95, 0.99, 1.0} {
		score, err := BaseScore(v, occ)
		require.NoError(t, err, "v=%v", v)
		assert.LessOrEqual(t, score, 100, "v=%v", v)
		assert.GreaterOrEqual(t, score, 0, "v=%v", v)
	}

	// Rarest band deep in the top zone: 98.8 + 20 overflows and must cap.
	top := occWithDays([models.BandCount]int{500, 500, 500, 500, 500, 500, 500, 500, 5, 1})
	score, err := BaseScore(0.99, top)
	require.NoError(t, err)
	assert.Equal(t, 100, score)
}

func TestBaseScoreIgnoresEmptyOccupancy(t *testing.T) {
	occ := occWithDays([models.BandCount]int{})
	score, err := BaseScore(0.505, occ)
	require.NoError(t, err)
	assert.Equal(t, 51, score)
}

func TestBaseScoreOutOfDomain(t *testing.T) {
	_, err := BaseScore(1.5, nil)
	assert.ErrorIs(t, err, ErrOutOfDomain)
}
