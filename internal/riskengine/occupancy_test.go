package riskengine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"RiskPulse/internal/domain/models"
)

func TestRecalculateConsistent(t *testing.T) {
	occ := occWithDays([models.BandCount]int{10, 20, 30, 40, 0, 0, 0, 0, 0, 0})
	assert.True(t, Recalculate(occ))
	assert.True(t, occ.Consistent)
	assert.InDelta(t, 10.0, occ.Bands["0.0-0.1"].Percentage, 1e-9)
	assert.InDelta(t, 40.0, occ.Bands["0.3-0.4"].Percentage, 1e-9)
}

func TestRecalculateInconsistent(t *testing.T) {
	occ := occWithDays([models.BandCount]int{10, 20, 30, 40, 0, 0, 0, 0, 0, 0})
	occ.LifeAgeDays = 120 // ten days unaccounted for
	assert.False(t, Recalculate(occ))
	assert.False(t, occ.Consistent)
	// Percentages follow the declared life age, not the band sum.
	assert.InDelta(t, 100.0/12, occ.Bands["0.0-0.1"].Percentage, 0.01)
}

func TestRecalculateNil(t *testing.T) {
	assert.False(t, Recalculate(nil))
}
