package service

import (
	"context"

	"RiskPulse/internal/domain/models"
)

// CoefficientProvider computes the multiplicative coefficient for a symbol
// at a given risk value. The methodology is external and opaque; callers
// must treat a failure as "keep the last known coefficient, mark stale"
// rather than substituting a default.
type CoefficientProvider interface {
	Calculate(ctx context.Context, symbol string, riskValue float64) (models.CoefficientResult, error)
}
