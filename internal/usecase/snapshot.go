package usecase

import (
	"context"
	"time"

	"RiskPulse/internal/domain/models"
	drepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/riskengine"
	applogger "RiskPulse/pkg/logger"
)

// SnapshotService assembles snapshots from the core calculators and emits
// them downstream. Emission failures are recorded but never fail the tick;
// the in-memory snapshot is already authoritative.
type SnapshotService struct {
	publisher  drepo.AlertPublisher
	updateLog  drepo.UpdateLog
	metrics    drepo.Metrics
	logger     *applogger.Logger
	deferAudit bool // audit consumer writes the ClickHouse rows instead
}

// NewSnapshotService creates the snapshot use case. publisher and
// updateLog may be nil when the respective sink is not configured.
func NewSnapshotService(
	publisher drepo.AlertPublisher,
	updateLog drepo.UpdateLog,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	deferAudit bool,
) *SnapshotService {
	return &SnapshotService{
		publisher:  publisher,
		updateLog:  updateLog,
		metrics:    metrics,
		logger:     logger,
		deferAudit: deferAudit,
	}
}

// Build runs the full scoring chain for one tick: price to risk value to
// band to base score to final score to signals. The coefficient and
// occupancy are supplied by the caller, which owns their refresh cadence.
func (s *SnapshotService) Build(
	cfg models.SymbolConfig,
	price float64,
	occ *models.OccupancySet,
	coeff float64,
	coeffStale bool,
	now time.Time,
) (*models.RiskSnapshot, error) {
	v, clamped, err := riskengine.RiskValue(price, cfg.Coefficients)
	if err != nil {
		return nil, err
	}
	if clamped {
		s.metrics.RecordError("risk_value_clamped")
		s.logger.Warn("polynomial overshoot clamped",
			applogger.String("symbol", cfg.Symbol),
			applogger.Float64("price", price),
		)
	}

	band, err := riskengine.BandOf(v)
	if err != nil {
		return nil, err
	}

	base, err := riskengine.BaseScore(v, occ)
	if err != nil {
		return nil, err
	}

	coeff = riskengine.ClampCoefficient(coeff)
	final := riskengine.FinalScore(base, coeff)
	market := riskengine.MarketSignal(v)
	trading := riskengine.TradingSignal(final, v)

	return &models.RiskSnapshot{
		Symbol:           cfg.Symbol,
		Timestamp:        now,
		Price:            price,
		RiskValue:        v,
		Band:             band,
		BaseScore:        base,
		Coefficient:      coeff,
		CoefficientStale: coeffStale,
		FinalScore:       final,
		MarketSignal:     market,
		TradingSignal:    trading,
		SignalStatus:     riskengine.CombinedStatus(trading, market),
		RangeClamped:     clamped,
	}, nil
}

// Emit publishes a snapshot and appends it to the audit log.
func (s *SnapshotService) Emit(ctx context.Context, snap *models.RiskSnapshot) {
	s.metrics.RecordSnapshot(snap.Symbol)
	s.metrics.RecordRiskValue(snap.Symbol, snap.RiskValue)
	s.metrics.RecordFinalScore(snap.Symbol, snap.FinalScore)

	if s.publisher != nil {
		if err := s.publisher.PublishSnapshot(ctx, snap); err != nil {
			s.metrics.RecordError("snapshot_publish")
			s.logger.Error("snapshot publish failed",
				applogger.String("symbol", snap.Symbol), applogger.Error(err))
		}
	}
	if s.updateLog != nil && !s.deferAudit {
		if err := s.updateLog.AppendSnapshot(ctx, snap); err != nil {
			s.metrics.RecordError("snapshot_audit")
			s.logger.Error("snapshot audit append failed",
				applogger.String("symbol", snap.Symbol), applogger.Error(err))
		}
	}
}

// EmitAlert publishes a band-change alert and appends it to the audit log.
func (s *SnapshotService) EmitAlert(ctx context.Context, alert *models.BandChangeAlert) {
	s.metrics.RecordBandChange(alert.Symbol)
	s.logger.Info("risk band changed",
		applogger.String("symbol", alert.Symbol),
		applogger.String("old_band", string(alert.OldBand)),
		applogger.String("new_band", string(alert.NewBand)),
		applogger.Float64("risk_value", alert.RiskValue),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishAlert(ctx, alert); err != nil {
			s.metrics.RecordError("alert_publish")
			s.logger.Error("alert publish failed",
				applogger.String("symbol", alert.Symbol), applogger.Error(err))
		}
	}
	if s.updateLog != nil {
		if err := s.updateLog.AppendBandChange(ctx, alert); err != nil {
			s.metrics.RecordError("alert_audit")
			s.logger.Error("alert audit append failed",
				applogger.String("symbol", alert.Symbol), applogger.Error(err))
		}
	}
}
