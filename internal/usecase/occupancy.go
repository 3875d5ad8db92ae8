package usecase

import (
	"context"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	drepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/riskengine"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/queue"
)

const (
	jobPersistBandDays = "persist_band_days"
	jobPersistLifeAge  = "persist_life_age"
)

// BandDaysWrite is the payload of a deferred occupancy write.
type BandDaysWrite struct {
	Symbol string `json:"symbol"`
	Band   string `json:"band"`
	Days   int    `json:"days"`
}

// LifeAgeWrite is the payload of a deferred life-age write.
type LifeAgeWrite struct {
	Symbol  string `json:"symbol"`
	AgeDays int    `json:"age_days"`
}

// OccupancyService loads and persists occupancy and life-age data. Failed
// writes go onto a retry queue; in-memory state is never rolled back.
type OccupancyService struct {
	occupancy drepo.OccupancyStore
	lifeAge   drepo.LifeAgeStore
	retries   queue.QueueService
	metrics   drepo.Metrics
	logger    *applogger.Logger
}

// NewOccupancyService creates the occupancy use case. retries may be nil;
// failed writes are then dropped until the next scheduled refresh.
func NewOccupancyService(
	occupancy drepo.OccupancyStore,
	lifeAge drepo.LifeAgeStore,
	retries queue.QueueService,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *OccupancyService {
	return &OccupancyService{
		occupancy: occupancy,
		lifeAge:   lifeAge,
		retries:   retries,
		metrics:   metrics,
		logger:    logger,
	}
}

// Refresh loads a symbol's occupancy map and life age and recomputes the
// percentages. An inconsistent sum(days) is a data-quality warning, not an
// error: the data is returned as-is and never silently corrected.
func (s *OccupancyService) Refresh(ctx context.Context, symbol string) (*models.OccupancySet, error) {
	start := time.Now()
	occ, err := s.occupancy.GetOccupancy(ctx, symbol)
	if err != nil {
		s.metrics.RecordError("occupancy_fetch")
		return nil, fmt.Errorf("refresh occupancy: %w", err)
	}

	age, err := s.lifeAge.GetLifeAge(ctx, symbol)
	if err != nil {
		s.metrics.RecordError("life_age_fetch")
		return nil, fmt.Errorf("refresh life age: %w", err)
	}
	occ.LifeAgeDays = age

	if !riskengine.Recalculate(occ) {
		s.metrics.RecordError("occupancy_inconsistent")
		s.logger.Warn("occupancy inconsistent with life age",
			applogger.String("symbol", symbol),
			applogger.Int("band_days_total", occ.TotalDays()),
			applogger.Int("life_age_days", age),
		)
	}

	s.metrics.RecordLatency("occupancy_refresh", time.Since(start).Seconds())
	return occ, nil
}

// PersistBandDays writes one band's day count, deferring to the retry
// queue when the store is unavailable.
func (s *OccupancyService) PersistBandDays(ctx context.Context, symbol string, band models.BandKey, days int) error {
	if err := s.occupancy.PutBandDays(ctx, symbol, band, days); err != nil {
		s.metrics.RecordError("occupancy_persist")
		s.enqueue(ctx, jobPersistBandDays, BandDaysWrite{Symbol: symbol, Band: string(band), Days: days}, err)
		return fmt.Errorf("persist band days: %w", err)
	}
	return nil
}

// PersistLifeAge writes the life age, deferring on failure.
func (s *OccupancyService) PersistLifeAge(ctx context.Context, symbol string, ageDays int) error {
	if err := s.lifeAge.PutLifeAge(ctx, symbol, ageDays); err != nil {
		s.metrics.RecordError("life_age_persist")
		s.enqueue(ctx, jobPersistLifeAge, LifeAgeWrite{Symbol: symbol, AgeDays: ageDays}, err)
		return fmt.Errorf("persist life age: %w", err)
	}
	return nil
}

func (s *OccupancyService) enqueue(ctx context.Context, msgType string, payload interface{}, cause error) {
	if s.retries == nil {
		return
	}
	if err := s.retries.PublishMessage(ctx, msgType, payload); err != nil {
		s.logger.Error("retry enqueue failed",
			applogger.String("type", msgType),
			applogger.Error(err),
		)
		return
	}
	s.logger.Warn("store write deferred to retry queue",
		applogger.String("type", msgType),
		applogger.Error(cause),
	)
}
