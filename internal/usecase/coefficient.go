package usecase

import (
	"context"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	drepo "RiskPulse/internal/domain/repository"
	domsvc "RiskPulse/internal/domain/service"
	"RiskPulse/pkg/cache"
	applogger "RiskPulse/pkg/logger"
)

// CoefficientService fronts the external CoefficientProvider with a cache
// so restarts keep the last known coefficient across the 12-hour refresh
// window. A forced fetch (band change) bypasses the cache.
type CoefficientService struct {
	provider domsvc.CoefficientProvider
	cache    cache.Service
	ttl      time.Duration
	metrics  drepo.Metrics
	logger   *applogger.Logger
}

// NewCoefficientService creates the coefficient use case. c may be nil.
func NewCoefficientService(
	provider domsvc.CoefficientProvider,
	c cache.Service,
	ttl time.Duration,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *CoefficientService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &CoefficientService{
		provider: provider,
		cache:    c,
		ttl:      ttl,
		metrics:  metrics,
		logger:   logger,
	}
}

// Get returns a coefficient for the symbol at the given risk value. With
// force set the provider is always called; otherwise a cached result is
// served when present.
func (s *CoefficientService) Get(ctx context.Context, symbol string, riskValue float64, force bool) (models.CoefficientResult, error) {
	key := cache.GenerateKey("coefficient", symbol)

	if !force && s.cache != nil {
		var cached models.CoefficientResult
		if err := s.cache.Get(ctx, key, &cached); err == nil && cached.Coefficient > 0 {
			return cached, nil
		}
	}

	start := time.Now()
	result, err := s.provider.Calculate(ctx, symbol, riskValue)
	s.metrics.RecordLatency("coefficient_fetch", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("coefficient_fetch")
		return models.CoefficientResult{}, fmt.Errorf("coefficient get: %w", err)
	}

	if s.cache != nil {
		if cerr := s.cache.Set(ctx, key, result, s.ttl); cerr != nil {
			s.logger.Warn("coefficient cache set failed",
				applogger.String("symbol", symbol),
				applogger.Error(cerr),
			)
		}
	}
	return result, nil
}

// Invalidate drops the cached coefficient for a symbol. Called on band
// change so the next fetch is always synchronous and fresh.
func (s *CoefficientService) Invalidate(ctx context.Context, symbol string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, cache.GenerateKey("coefficient", symbol))
}
