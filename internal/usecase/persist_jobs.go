package usecase

import (
	"context"
	"fmt"

	"RiskPulse/internal/domain/models"
	drepo "RiskPulse/internal/domain/repository"
	"RiskPulse/pkg/queue"
)

// BandDaysRetryJob replays deferred occupancy writes from the retry queue.
type BandDaysRetryJob struct {
	store drepo.OccupancyStore
}

func NewBandDaysRetryJob(store drepo.OccupancyStore) *BandDaysRetryJob {
	return &BandDaysRetryJob{store: store}
}

func (j *BandDaysRetryJob) Name() string { return "band-days-retry" }
func (j *BandDaysRetryJob) Type() string { return jobPersistBandDays }

func (j *BandDaysRetryJob) Handle(ctx context.Context, payload interface{}) error {
	w, err := queue.ParsePayload[BandDaysWrite](payload)
	if err != nil {
		return fmt.Errorf("band days payload: %w", err)
	}
	return j.store.PutBandDays(ctx, w.Symbol, models.BandKey(w.Band), w.Days)
}

// LifeAgeRetryJob replays deferred life-age writes.
type LifeAgeRetryJob struct {
	store drepo.LifeAgeStore
}

func NewLifeAgeRetryJob(store drepo.LifeAgeStore) *LifeAgeRetryJob {
	return &LifeAgeRetryJob{store: store}
}

func (j *LifeAgeRetryJob) Name() string { return "life-age-retry" }
func (j *LifeAgeRetryJob) Type() string { return jobPersistLifeAge }

func (j *LifeAgeRetryJob) Handle(ctx context.Context, payload interface{}) error {
	w, err := queue.ParsePayload[LifeAgeWrite](payload)
	if err != nil {
		return fmt.Errorf("life age payload: %w", err)
	}
	return j.store.PutLifeAge(ctx, w.Symbol, w.AgeDays)
}

var (
	_ queue.Job = (*BandDaysRetryJob)(nil)
	_ queue.Job = (*LifeAgeRetryJob)(nil)
)
