package riskengine

import "errors"

var (
	// ErrInvalidPrice rejects non-positive prices; the tick is dropped and
	// the previous snapshot kept.
	ErrInvalidPrice = errors.New("invalid price: must be positive")

	// ErrOutOfDomain reports a risk value outside [0,1]. Unreachable when
	// the value comes from RiskValue, which clamps; hitting it indicates a
	// calculator bug.
	ErrOutOfDomain = errors.New("risk value out of [0,1] domain")
)
