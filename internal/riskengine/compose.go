package riskengine

import "math"

// Coefficient bounds guaranteed by the provider. The engine clamps again
// before use rather than trusting the wire value.
const (
	CoefficientMin = 1.0
	CoefficientMax = 1.6
)

// ClampCoefficient forces a coefficient into [CoefficientMin, CoefficientMax].
func ClampCoefficient(c float64) float64 {
	if c < CoefficientMin {
		return CoefficientMin
	}
	if c > CoefficientMax {
		return CoefficientMax
	}
	return c
}

// FinalScore composes the base score with the external coefficient:
// min(100, base · coefficient), reported with two decimal places.
// Monotonic non-decreasing in both operands.
func FinalScore(baseScore int, coefficient float64) float64 {
	score := float64(baseScore) * ClampCoefficient(coefficient)
	if score > 100 {
		score = 100
	}
	return math.Round(score*100) / 100
}
