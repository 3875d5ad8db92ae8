package riskengine

import "math"

// RiskValue maps a price to a normalized risk value through the symbol's
// fitted quartic polynomial a0 + a1·P + a2·P² + a3·P³ + a4·P⁴.
//
// The raw result is clamped to [0,1] and rounded to 3 decimal places.
// The returned bool reports whether clamping occurred; the polynomial is a
// fitted approximation and can overshoot near its domain edges, so a clamp
// is a warning condition, not an error.
func RiskValue(price float64, coeffs [5]float64) (float64, bool, error) {
	if price <= 0 {
		return 0, false, ErrInvalidPrice
	}

	raw := coeffs[0] +
		coeffs[1]*price +
		coeffs[2]*price*price +
		coeffs[3]*price*price*price +
		coeffs[4]*price*price*price*price

	clamped := false
	v := raw
	if v < 0 {
		v = 0
		clamped = true
	} else if v > 1 {
		v = 1
		clamped = true
	}

	return math.Round(v*1000) / 1000, clamped, nil
}
