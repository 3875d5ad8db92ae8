package engine

import (
	"context"
	"errors"
	"time"

	"RiskPulse/internal/domain/models"
	drepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/riskengine"
	"RiskPulse/internal/usecase"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/util"
)

// Intervals are the scheduling cadences for one symbol's worker.
type Intervals struct {
	Price       time.Duration // risk recompute
	Coefficient time.Duration // periodic coefficient refresh
	Occupancy   time.Duration // occupancy/life-age refresh
	CallTimeout time.Duration // bound on each external call
}

// Worker owns one symbol's state and drives its scheduling. All state
// mutation happens on the worker goroutine, so band comparison and alert
// emission are atomic relative to the next tick.
type Worker struct {
	cfg       models.SymbolConfig
	intervals Intervals
	clock     Clock

	prices    drepo.PriceSource
	occupancy *usecase.OccupancyService
	coeffs    *usecase.CoefficientService
	snapshots *usecase.SnapshotService
	registry  *Registry
	metrics   drepo.Metrics
	logger    *applogger.Logger

	state symbolState
	cmdCh chan struct{} // forced recompute requests

	nextPrice time.Time
	nextCoeff time.Time
	nextOcc   time.Time
}

// NewWorker creates a worker for one symbol.
func NewWorker(
	cfg models.SymbolConfig,
	intervals Intervals,
	clock Clock,
	prices drepo.PriceSource,
	occupancy *usecase.OccupancyService,
	coeffs *usecase.CoefficientService,
	snapshots *usecase.SnapshotService,
	registry *Registry,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *Worker {
	if intervals.Price <= 0 {
		intervals.Price = 5 * time.Minute
	}
	if intervals.Coefficient <= 0 {
		intervals.Coefficient = 12 * time.Hour
	}
	if intervals.Occupancy <= 0 {
		intervals.Occupancy = time.Hour
	}
	if intervals.CallTimeout <= 0 {
		intervals.CallTimeout = 10 * time.Second
	}
	return &Worker{
		cfg:       cfg,
		intervals: intervals,
		clock:     clock,
		prices:    prices,
		occupancy: occupancy,
		coeffs:    coeffs,
		snapshots: snapshots,
		registry:  registry,
		metrics:   metrics,
		logger:    logger,
		cmdCh:     make(chan struct{}, 1),
	}
}

// ForceRecompute requests an immediate tick. Non-blocking; a pending
// request is good enough.
func (w *Worker) ForceRecompute() {
	select {
	case w.cmdCh <- struct{}{}:
	default:
	}
}

// Run drives the symbol until ctx is cancelled. Any failure affects only
// this symbol; the loop itself never exits on an error.
func (w *Worker) Run(ctx context.Context) {
	now := w.clock.Now()
	w.refreshOccupancy(ctx, now)
	w.tick(ctx, now)

	for {
		now = w.clock.Now()
		wait := w.nextDue().Sub(now)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-w.cmdCh:
			w.runDue(ctx, w.clock.Now(), true)
		case <-w.clock.After(wait):
			w.runDue(ctx, w.clock.Now(), false)
		}
	}
}

// nextDue returns the earliest scheduled task time.
func (w *Worker) nextDue() time.Time {
	next := w.nextPrice
	if w.nextOcc.Before(next) {
		next = w.nextOcc
	}
	if w.nextCoeff.Before(next) {
		next = w.nextCoeff
	}
	return next
}

// runDue executes every task due at now. Exported to the loop and to
// tests, which call it with a manual clock instead of sleeping.
func (w *Worker) runDue(ctx context.Context, now time.Time, forced bool) {
	if forced || !now.Before(w.nextOcc) {
		w.refreshOccupancy(ctx, now)
	}
	if forced || !now.Before(w.nextPrice) || !now.Before(w.nextCoeff) {
		w.tick(ctx, now)
	}
}

// tick runs one full recompute: price, risk value, band comparison,
// coefficient, scores, signals, emission.
func (w *Worker) tick(ctx context.Context, now time.Time) {
	w.nextPrice = now.Add(w.intervals.Price)

	callCtx, cancel := context.WithTimeout(ctx, w.intervals.CallTimeout)
	price, err := w.prices.LatestPrice(callCtx, w.cfg.Symbol)
	cancel()
	if err != nil {
		w.metrics.RecordError("price_fetch")
		w.logger.Warn("price fetch failed, keeping last snapshot",
			applogger.String("symbol", w.cfg.Symbol), applogger.Error(err))
		return
	}

	v, _, err := riskengine.RiskValue(price, w.cfg.Coefficients)
	if err != nil {
		// Non-positive price: reject the tick, keep the last snapshot.
		w.metrics.RecordError("invalid_price")
		w.logger.Warn("tick rejected",
			applogger.String("symbol", w.cfg.Symbol),
			applogger.Float64("price", price), applogger.Error(err))
		return
	}

	band, err := riskengine.BandOf(v)
	if err != nil {
		// Unreachable after the clamp; a hit means a calculator bug.
		w.metrics.RecordError("out_of_domain")
		w.logger.Error("risk value out of domain",
			applogger.String("symbol", w.cfg.Symbol),
			applogger.Float64("risk_value", v), applogger.Error(err))
		return
	}

	forceCoeff := false
	if w.state.lastBand != "" && band != w.state.lastBand {
		alert := &models.BandChangeAlert{
			Symbol:    w.cfg.Symbol,
			OldBand:   w.state.lastBand,
			NewBand:   band,
			RiskValue: v,
			Price:     price,
			Timestamp: now,
		}
		w.registry.SetAlert(alert)
		w.snapshots.EmitAlert(ctx, alert)
		w.coeffs.Invalidate(ctx, w.cfg.Symbol)
		forceCoeff = true
	}
	w.state.lastBand = band

	if forceCoeff || !w.state.hasCoeff || !now.Before(w.nextCoeff) {
		w.refreshCoefficient(ctx, v, forceCoeff, now)
	}

	coeff := riskengine.CoefficientMin
	if w.state.hasCoeff {
		coeff = w.state.coefficient.Coefficient
	}

	snap, err := w.snapshots.Build(w.cfg, price, w.state.occupancy, coeff, w.state.coeffStale, now)
	if err != nil {
		w.metrics.RecordError("snapshot_build")
		w.logger.Error("snapshot build failed",
			applogger.String("symbol", w.cfg.Symbol), applogger.Error(err))
		return
	}

	w.registry.SetSnapshot(snap)
	w.snapshots.Emit(ctx, snap)
}

// refreshCoefficient fetches the coefficient, retaining the previous one
// (marked stale) when the provider is unavailable.
func (w *Worker) refreshCoefficient(ctx context.Context, riskValue float64, force bool, now time.Time) {
	w.nextCoeff = now.Add(w.intervals.Coefficient)

	callCtx, cancel := context.WithTimeout(ctx, w.intervals.CallTimeout)
	result, err := w.coeffs.Get(callCtx, w.cfg.Symbol, riskValue, force)
	cancel()
	if err != nil {
		w.state.coeffStale = true
		w.metrics.RecordCoefficientRefresh(w.cfg.Symbol, true)
		w.logger.Warn("coefficient unavailable, retaining previous",
			applogger.String("symbol", w.cfg.Symbol),
			applogger.Bool("have_previous", w.state.hasCoeff),
			applogger.Error(err))
		return
	}

	w.state.coefficient = result
	w.state.hasCoeff = true
	w.state.coeffStale = false
	w.metrics.RecordCoefficientRefresh(w.cfg.Symbol, false)
}

// refreshOccupancy reloads the occupancy map and life age, and accrues
// one day onto the current band when the calendar day rolled over.
func (w *Worker) refreshOccupancy(ctx context.Context, now time.Time) {
	w.nextOcc = now.Add(w.intervals.Occupancy)

	callCtx, cancel := context.WithTimeout(ctx, w.intervals.CallTimeout)
	occ, err := w.occupancy.Refresh(callCtx, w.cfg.Symbol)
	cancel()
	if err != nil {
		w.logger.Warn("occupancy refresh failed, keeping previous data",
			applogger.String("symbol", w.cfg.Symbol), applogger.Error(err))
		return
	}

	// Accrue on the worker-owned set first; the registry gets a clone so
	// handler goroutines never see this map mutate.
	w.state.occupancy = occ
	w.accrueDay(ctx, occ, now)
	w.registry.SetOccupancy(occ.Clone())
}

// accrueDay bumps the current band's day count and the life age once per
// calendar day. Persistence failures are deferred by the occupancy
// service; the in-memory counts advance regardless.
func (w *Worker) accrueDay(ctx context.Context, occ *models.OccupancySet, now time.Time) {
	day := util.DayKey(now)
	if w.state.lastAccrualDay == "" {
		// First refresh after start: anchor without accruing.
		w.state.lastAccrualDay = day
		return
	}
	if w.state.lastAccrualDay == day || w.state.lastBand == "" {
		return
	}
	w.state.lastAccrualDay = day

	b := occ.Bands[w.state.lastBand]
	b.Days++
	occ.Bands[w.state.lastBand] = b
	occ.LifeAgeDays++
	riskengine.Recalculate(occ)

	callCtx, cancel := context.WithTimeout(ctx, w.intervals.CallTimeout)
	defer cancel()
	if err := w.occupancy.PersistBandDays(callCtx, w.cfg.Symbol, w.state.lastBand, b.Days); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("band day accrual persist deferred",
			applogger.String("symbol", w.cfg.Symbol), applogger.Error(err))
	}
	if err := w.occupancy.PersistLifeAge(callCtx, w.cfg.Symbol, occ.LifeAgeDays); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("life age accrual persist deferred",
			applogger.String("symbol", w.cfg.Symbol), applogger.Error(err))
	}
}
