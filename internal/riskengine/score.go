package riskengine

import (
	"math"
	"sort"

	"RiskPulse/internal/domain/models"
)

// scoreZone maps a risk-value interval onto a score range. The edge zones
// score highest: historically extreme prices carry the strongest
// mean-reversion/breakout potential.
type scoreZone struct {
	lo, hi           float64
	scoreLo, scoreHi float64
}

var scoreZones = []scoreZone{
	{0.0, 0.25, 70, 100},
	{0.25, 0.40, 60, 70},
	{0.40, 0.60, 40, 60},
	{0.60, 0.75, 60, 70},
	{0.75, 1.0, 70, 100},
}

// rarityBonusMax scales the rank-based rarity factor onto score points.
const rarityBonusMax = 20

// BaseScore computes the 0-100 base score for a risk value.
//
// Step 1 interpolates the value's position within its score zone. Step 2,
// applied only when occupancy data with nonzero total days is available,
// adds a rarity bonus for bands the symbol has rarely visited and a
// proximity bonus when adjacent bands are rarer than the current one.
// The sum is capped at 100 and rounded to the nearest integer.
func BaseScore(v float64, occ *models.OccupancySet) (int, error) {
	if v < 0 || v > 1 {
		return 0, ErrOutOfDomain
	}

	score := zoneScore(v)

	if occ != nil && occ.TotalDays() > 0 {
		band, err := BandOf(v)
		if err != nil {
			return 0, err
		}
		score += rarityBonus(band, occ)
		score += proximityBonus(band, occ)
	}

	return int(math.Round(math.Min(100, score))), nil
}

// zoneScore interpolates the risk value linearly within its zone's score
// range. Zones are scanned top-down so a shared boundary belongs to the
// upper zone, the same convention BandOf uses for decile boundaries.
func zoneScore(v float64) float64 {
	for i := len(scoreZones) - 1; i >= 0; i-- {
		z := scoreZones[i]
		if v >= z.lo {
			proportion := (v - z.lo) / (z.hi - z.lo)
			return z.scoreLo + proportion*(z.scoreHi-z.scoreLo)
		}
	}
	// Unreachable for v in [0,1]; the first zone starts at 0.
	return 0
}

// rarityBonus ranks the ten bands by ascending occupancy (rank 1 = rarest)
// and rewards the current band in proportion to its rarity.
func rarityBonus(band models.BandKey, occ *models.OccupancySet) float64 {
	type bandDays struct {
		idx  int
		days int
	}
	ranked := make([]bandDays, 0, models.BandCount)
	for i, key := range models.BandKeys {
		ranked = append(ranked, bandDays{idx: i, days: occ.Bands[key].Days})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].days < ranked[b].days
	})

	rank := 0
	for pos, bd := range ranked {
		if bd.idx == band.Index() {
			rank = pos + 1
			break
		}
	}
	if rank == 0 {
		return 0
	}

	rarityFactor := 1 - float64(rank-1)/float64(models.BandCount-1)
	return rarityFactor * rarityBonusMax
}

// proximityBonus rewards structural adjacency to rarer bands: a band
// flanked by two rarer neighbors suggests a directional opportunity.
func proximityBonus(band models.BandKey, occ *models.OccupancySet) float64 {
	idx := band.Index()
	current := occ.Bands[band].Days

	rarer := make([]int, 0, 2) // day counts of rarer neighbors
	neighbors := 0
	for _, ni := range []int{idx - 1, idx + 1} {
		if ni < 0 || ni >= models.BandCount {
			continue
		}
		neighbors++
		if d := occ.Bands[models.BandKeys[ni]].Days; d < current {
			rarer = append(rarer, d)
		}
	}

	// The 15-point branch requires two rarer neighbors. An edge band has
	// only one neighbor, so even when that neighbor is rarer the band
	// takes the ratio branch below.
	switch {
	case neighbors == 2 && len(rarer) == 2:
		return 15
	case len(rarer) == 1:
		if rarer[0] == 0 {
			return 10
		}
		return math.Min(10, float64(current)/float64(rarer[0])*5)
	default:
		return 0
	}
}
