package riskengine

import (
	"RiskPulse/internal/domain/models"
)

// BandOf classifies a risk value into its decile band. Bands are
// lower-inclusive and upper-exclusive except the last, which is closed on
// both ends so the function is total over [0,1].
func BandOf(v float64) (models.BandKey, error) {
	if v < 0 || v > 1 {
		return "", ErrOutOfDomain
	}
	// Scan from the top so exact decile boundaries land in the upper band
	// without float multiplication artifacts.
	for i := models.BandCount - 1; i > 0; i-- {
		if v >= float64(i)/10 {
			return models.BandKeys[i], nil
		}
	}
	return models.BandKeys[0], nil
}
