package riskengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalScoreWorkedExample(t *testing.T) {
	assert.InDelta(t, 59.16, FinalScore(51, 1.16), 1e-9)
}

func TestFinalScoreCapsAt100(t *testing.T) {
	assert.Equal(t, 100.0, FinalScore(100, 1.6))
	assert.Equal(t, 100.0, FinalScore(90, 1.2))
}

func TestFinalScoreClampsCoefficient(t *testing.T) {
	// Below range clamps to 1.0, above to 1.6.
	assert.InDelta(t, 50.0, FinalScore(50, 0.5), 1e-9)
	assert.InDelta(t, 80.0, FinalScore(50, 2.5), 1e-9)
}

func TestFinalScoreMonotonic(t *testing.T) {
	// Non-decreasing in base score.
	prev := 0.0
	for base := 0; base <= 100; base += 5 {
		got := FinalScore(base, 1.3)
		assert.GreaterOrEqual(t, got, prev, "base=%d", base)
		prev = got
	}

	// Non-decreasing in coefficient.
	prev = 0.0
	for c := 1.0; c <= 1.6; c += 0.05 {
		got := FinalScore(60, c)
		assert.GreaterOrEqual(t, got, prev, "coeff=%v", c)
		prev = got
	}
}

func TestClampCoefficient(t *testing.T) {
	assert.Equal(t, 1.0, ClampCoefficient(0.3))
	assert.Equal(t, 1.6, ClampCoefficient(9))
	assert.Equal(t, 1.25, ClampCoefficient(1.25))
}
