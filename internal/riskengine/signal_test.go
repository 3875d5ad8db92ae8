package riskengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarketSignal(t *testing.T) {
	cases := []struct {
		v    float64
		want string
	}{
		{0.0, SignalStrongBuy},
		{0.08, SignalStrongBuy},
		{0.249, SignalStrongBuy},
		{0.25, SignalBuy},
		{0.399, SignalBuy},
		{0.40, SignalNeutral},
		{0.505, SignalNeutral},
		{0.599, SignalNeutral},
		{0.60, SignalSell},
		{0.749, SignalSell},
		{0.75, SignalStrongSell},
		{1.0, SignalStrongSell},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MarketSignal(tc.v), "v=%v", tc.v)
	}
}

func TestTradingSignal(t *testing.T) {
	cases := []struct {
		final float64
		v     float64
		want  string
	}{
		{79.99, 0.9, SignalNone},
		{59.16, 0.505, SignalNone},
		{80, 0.60, SignalShort},
		{95, 0.9, SignalShort},
		{85, 0.08, SignalLong},
		{80, 0.399, SignalLong},
		{80, 0.40, SignalBreakout},
		{90, 0.50, SignalBreakout},
		{100, 0.599, SignalBreakout},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TradingSignal(tc.final, tc.v), "final=%v v=%v", tc.final, tc.v)
	}
}

func TestCombinedStatus(t *testing.T) {
	// Worked example: NEUTRAL with no trading prefix.
	assert.Equal(t, "NEUTRAL", CombinedStatus(SignalNone, SignalNeutral))
	// Strong buy zone with a fireable final score.
	assert.Equal(t, "LONG STRONG BUY",
		CombinedStatus(TradingSignal(85, 0.08), MarketSignal(0.08)))
	assert.Equal(t, "SHORT STRONG SELL",
		CombinedStatus(TradingSignal(92, 0.8), MarketSignal(0.8)))
}
