package riskengine

// Market-structure signals, derived from the risk value alone.
const (
	SignalStrongBuy  = "STRONG BUY"
	SignalBuy        = "BUY"
	SignalNeutral    = "NEUTRAL"
	SignalSell       = "SELL"
	SignalStrongSell = "STRONG SELL"
)

// Trading signals, derived from the final score crossing 80.
const (
	SignalLong     = "LONG"
	SignalShort    = "SHORT"
	SignalBreakout = "BREAKOUT"
	SignalNone     = "NO SIGNAL"
)

// tradingThreshold is the final score above which a trading signal fires.
const tradingThreshold = 80

// MarketSignal classifies a risk value into the market-structure taxonomy.
func MarketSignal(v float64) string {
	switch {
	case v >= 0.75:
		return SignalStrongSell
	case v >= 0.60:
		return SignalSell
	case v >= 0.40:
		return SignalNeutral
	case v >= 0.25:
		return SignalBuy
	default:
		return SignalStrongBuy
	}
}

// TradingSignal derives a directional trading signal from the final score
// and the risk value. Below the threshold no signal fires; above it, a
// high risk value shorts, a low one longs, and the middle is a breakout.
func TradingSignal(finalScore, v float64) string {
	if finalScore < tradingThreshold {
		return SignalNone
	}
	switch {
	case v >= 0.60:
		return SignalShort
	case v < 0.40:
		return SignalLong
	default:
		return SignalBreakout
	}
}

// CombinedStatus joins the two taxonomies into one label: the trading
// signal prefixes the market signal when present, otherwise the market
// signal stands alone.
func CombinedStatus(trading, market string) string {
	if trading == SignalNone {
		return market
	}
	return trading + " " + market
}
