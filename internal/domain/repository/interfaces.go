package repository

import (
	"context"
	"time"

	"RiskPulse/internal/domain/models"
)

// PriceStream is a live trade feed; the scheduler reads the latest cached
// price rather than consuming every tick.
type PriceStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// PriceSource returns the most recent known price for a symbol.
type PriceSource interface {
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}

// OccupancyStore persists and retrieves per-band day counts.
type OccupancyStore interface {
	GetOccupancy(ctx context.Context, symbol string) (*models.OccupancySet, error)
	PutBandDays(ctx context.Context, symbol string, band models.BandKey, days int) error
}

// LifeAgeStore persists and retrieves a symbol's total observed days.
type LifeAgeStore interface {
	GetLifeAge(ctx context.Context, symbol string) (int, error)
	PutLifeAge(ctx context.Context, symbol string, ageDays int) error
}

// AlertPublisher emits band-change alerts and snapshots to downstream
// consumers. Publish failures must not stall the scheduler.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, a *models.BandChangeAlert) error
	PublishSnapshot(ctx context.Context, s *models.RiskSnapshot) error
	Close() error
}

// UpdateLog is the write-mostly audit trail of computed snapshots and
// band transitions.
type UpdateLog interface {
	Init(ctx context.Context) error
	AppendSnapshot(ctx context.Context, s *models.RiskSnapshot) error
	AppendBandChange(ctx context.Context, a *models.BandChangeAlert) error
	Recent(ctx context.Context, symbol string, from time.Time, limit int) ([]models.UpdateLogEntry, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records engine health indicators.
type Metrics interface {
	RecordSnapshot(symbol string)
	RecordBandChange(symbol string)
	RecordCoefficientRefresh(symbol string, stale bool)
	RecordRiskValue(symbol string, v float64)
	RecordFinalScore(symbol string, score float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
