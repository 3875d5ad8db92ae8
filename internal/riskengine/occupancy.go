package riskengine

import (
	"math"

	"RiskPulse/internal/domain/models"
)

// Recalculate refreshes each band's percentage against the life age and
// reports whether the occupancy data is internally consistent, i.e.
// sum(days) == life_age. Inconsistency is a data-quality warning; callers
// keep using the data as-is rather than correcting it.
func Recalculate(occ *models.OccupancySet) bool {
	if occ == nil {
		return false
	}
	total := 0
	for key, b := range occ.Bands {
		total += b.Days
		if occ.LifeAgeDays > 0 {
			b.Percentage = math.Round(float64(b.Days)/float64(occ.LifeAgeDays)*100*100) / 100
		} else {
			b.Percentage = 0
		}
		occ.Bands[key] = b
	}
	occ.Consistent = total == occ.LifeAgeDays
	return occ.Consistent
}
