package riskengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// btcCoeffs is the fitted quartic for BTC used across the engine tests.
var btcCoeffs = [5]float64{
	-0.380790057100,
	1.718335491963e-5,
	-1.213364209168e-10,
	4.390647720677e-16,
	-5.830886880671e-22,
}

func TestRiskValueWorkedExample(t *testing.T) {
	v, clamped, err := RiskValue(100000, btcCoeffs)
	require.NoError(t, err)
	assert.False(t, clamped)
	assert.InDelta(t, 0.505, v, 1e-9)
}

func TestRiskValueInvalidPrice(t *testing.T) {
	for _, price := range []float64{0, -1, -100000} {
		_, _, err := RiskValue(price, btcCoeffs)
		assert.ErrorIs(t, err, ErrInvalidPrice, "price=%v", price)
	}
}

func TestRiskValueClampsOvershoot(t *testing.T) {
	// A constant polynomial above 1 must clamp high.
	v, clamped, err := RiskValue(10, [5]float64{1.5, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.True(t, clamped)
	assert.Equal(t, 1.0, v)

	// And below 0 must clamp low.
	v, clamped, err = RiskValue(10, [5]float64{-0.5, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.True(t, clamped)
	assert.Equal(t, 0.0, v)
}

func TestRiskValueAlwaysInUnitInterval(t *testing.T) {
	// Sweep a wide price range; the result must stay in [0,1] regardless
	// of how far the fitted polynomial overshoots.
	for price := 100.0; price <= 500000; price *= 1.37 {
		v, _, err := RiskValue(price, btcCoeffs)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, 0.0, "price=%v", price)
		assert.LessOrEqual(t, v, 1.0, "price=%v", price)
	}
}

func TestRiskValueRoundsToThreeDecimals(t *testing.T) {
	v, _, err := RiskValue(100000, btcCoeffs)
	require.NoError(t, err)
	assert.Equal(t, v, float64(int(v*1000))/1000)
}
