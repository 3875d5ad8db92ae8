package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/usecase"
	applogger "RiskPulse/pkg/logger"
)

type fakePriceSource struct {
	mu     sync.Mutex
	prices map[string]float64
	errs   map[string]error
}

func (f *fakePriceSource) set(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prices == nil {
		f.prices = map[string]float64{}
	}
	f.prices[symbol] = price
}

func (f *fakePriceSource) fail(symbol string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = map[string]error{}
	}
	f.errs[symbol] = err
}

func (f *fakePriceSource) LatestPrice(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[symbol]; err != nil {
		return 0, err
	}
	p, ok := f.prices[symbol]
	if !ok {
		return 0, errors.New("no price")
	}
	return p, nil
}

type fakeProvider struct {
	mu          sync.Mutex
	coefficient float64
	err         error
	calls       int
}

func (f *fakeProvider) Calculate(_ context.Context, symbol string, _ float64) (models.CoefficientResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.CoefficientResult{}, f.err
	}
	return models.CoefficientResult{
		Symbol:      symbol,
		Coefficient: f.coefficient,
		Methodology: "test",
		RetrievedAt: time.Now(),
	}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeProvider) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeStores struct {
	mu       sync.Mutex
	days     map[models.BandKey]int
	lifeAge  int
	bandPuts int
	agePuts  int
	putErr   error
}

func (f *fakeStores) GetOccupancy(_ context.Context, symbol string) (*models.OccupancySet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bands := make(map[models.BandKey]models.RiskBand, models.BandCount)
	for _, key := range models.BandKeys {
		bands[key] = models.RiskBand{Key: key, Days: f.days[key]}
	}
	return &models.OccupancySet{Symbol: symbol, Bands: bands, RetrievedAt: time.Now()}, nil
}

func (f *fakeStores) PutBandDays(_ context.Context, _ string, band models.BandKey, days int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.bandPuts++
	if f.days == nil {
		f.days = map[models.BandKey]int{}
	}
	f.days[band] = days
	return nil
}

func (f *fakeStores) GetLifeAge(_ context.Context, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lifeAge, nil
}

func (f *fakeStores) PutLifeAge(_ context.Context, _ string, ageDays int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.agePuts++
	f.lifeAge = ageDays
	return nil
}

type noopMetrics struct{}

func (noopMetrics) RecordSnapshot(string)                 {}
func (noopMetrics) RecordBandChange(string)               {}
func (noopMetrics) RecordCoefficientRefresh(string, bool) {}
func (noopMetrics) RecordRiskValue(string, float64)       {}
func (noopMetrics) RecordFinalScore(string, float64)      {}
func (noopMetrics) RecordError(string)                    {}
func (noopMetrics) RecordLatency(string, float64)         {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

type workerFixture struct {
	worker   *Worker
	registry *Registry
	prices   *fakePriceSource
	provider *fakeProvider
	stores   *fakeStores
	clock    *ManualClock
}

// Prices map linearly onto risk values: v = price * 1e-5.
var linearCoeffs = [5]float64{0, 1e-5, 0, 0, 0}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	log := testLogger(t)
	metrics := noopMetrics{}
	prices := &fakePriceSource{}
	provider := &fakeProvider{coefficient: 1.2}
	stores := &fakeStores{lifeAge: 100, days: map[models.BandKey]int{"0.5-0.6": 100}}
	clock := NewManualClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	occSvc := usecase.NewOccupancyService(stores, stores, nil, metrics, log)
	coeffSvc := usecase.NewCoefficientService(provider, nil, 12*time.Hour, metrics, log)
	snapSvc := usecase.NewSnapshotService(nil, nil, metrics, log, false)

	registry := NewRegistry()
	w := NewWorker(
		models.SymbolConfig{Symbol: "BTCUSDT", Coefficients: linearCoeffs},
		Intervals{Price: 5 * time.Minute, Coefficient: 12 * time.Hour, Occupancy: time.Hour, CallTimeout: time.Second},
		clock,
		prices, occSvc, coeffSvc, snapSvc, registry, metrics, log,
	)
	return &workerFixture{worker: w, registry: registry, prices: prices, provider: provider, stores: stores, clock: clock}
}

func TestWorkerTickProducesSnapshot(t *testing.T) {
	fx := newWorkerFixture(t)
	fx.prices.set("BTCUSDT", 55000) // v = 0.55

	ctx := context.Background()
	now := fx.clock.Now()
	fx.worker.refreshOccupancy(ctx, now)
	fx.worker.tick(ctx, now)

	snap := fx.registry.Snapshot("BTCUSDT")
	require.NotNil(t, snap)
	assert.InDelta(t, 0.55, snap.RiskValue, 1e-9)
	assert.Equal(t, models.BandKey("0.5-0.6"), snap.Band)
	// Zone score 55; the current band holds every observed day so its
	// rarity bonus is zero, but both empty neighbors add the proximity 15.
	assert.Equal(t, 70, snap.BaseScore)
	assert.InDelta(t, 1.2, snap.Coefficient, 1e-9)
	assert.False(t, snap.CoefficientStale)
	assert.InDelta(t, 84.0, snap.FinalScore, 1e-9)
	assert.Equal(t, "NEUTRAL", snap.MarketSignal)
	assert.Equal(t, "BREAKOUT", snap.TradingSignal)
	assert.Equal(t, "BREAKOUT NEUTRAL", snap.SignalStatus)
	assert.Nil(t, fx.registry.Alert("BTCUSDT"))
	assert.Equal(t, 1, fx.provider.callCount())
}

func TestWorkerBandChangeEmitsAlertAndRefetchesCoefficient(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()
	now := fx.clock.Now()

	fx.prices.set("BTCUSDT", 55000) // band 0.5-0.6
	fx.worker.refreshOccupancy(ctx, now)
	fx.worker.tick(ctx, now)
	require.Equal(t, 1, fx.provider.callCount())

	// Same band again: no alert, no coefficient refetch.
	now = now.Add(5 * time.Minute)
	fx.prices.set("BTCUSDT", 57000)
	fx.worker.tick(ctx, now)
	assert.Nil(t, fx.registry.Alert("BTCUSDT"))
	assert.Equal(t, 1, fx.provider.callCount())

	// Band change: one alert and a forced synchronous refetch.
	now = now.Add(5 * time.Minute)
	fx.prices.set("BTCUSDT", 65000) // band 0.6-0.7
	fx.worker.tick(ctx, now)

	alert := fx.registry.Alert("BTCUSDT")
	require.NotNil(t, alert)
	assert.Equal(t, models.BandKey("0.5-0.6"), alert.OldBand)
	assert.Equal(t, models.BandKey("0.6-0.7"), alert.NewBand)
	assert.InDelta(t, 0.65, alert.RiskValue, 1e-9)
	assert.Equal(t, 2, fx.provider.callCount())

	// A later change overwrites; only the latest alert is kept.
	now = now.Add(5 * time.Minute)
	fx.prices.set("BTCUSDT", 35000) // band 0.3-0.4
	fx.worker.tick(ctx, now)

	alert = fx.registry.Alert("BTCUSDT")
	require.NotNil(t, alert)
	assert.Equal(t, models.BandKey("0.6-0.7"), alert.OldBand)
	assert.Equal(t, models.BandKey("0.3-0.4"), alert.NewBand)
}

func TestWorkerCoefficientFailureRetainsPrevious(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()
	now := fx.clock.Now()

	fx.prices.set("BTCUSDT", 55000)
	fx.worker.refreshOccupancy(ctx, now)
	fx.worker.tick(ctx, now)

	first := fx.registry.Snapshot("BTCUSDT")
	require.NotNil(t, first)
	require.InDelta(t, 1.2, first.Coefficient, 1e-9)

	// Provider goes down; a band change forces a refetch that fails. The
	// previous coefficient survives, marked stale.
	fx.provider.setErr(errors.New("service unavailable"))
	now = now.Add(5 * time.Minute)
	fx.prices.set("BTCUSDT", 65000)
	fx.worker.tick(ctx, now)

	snap := fx.registry.Snapshot("BTCUSDT")
	require.NotNil(t, snap)
	assert.InDelta(t, 1.2, snap.Coefficient, 1e-9)
	assert.True(t, snap.CoefficientStale)
}

func TestWorkerCoefficientNeverComputedFallsBackToFloor(t *testing.T) {
	fx := newWorkerFixture(t)
	fx.provider.setErr(errors.New("service unavailable"))
	ctx := context.Background()
	now := fx.clock.Now()

	fx.prices.set("BTCUSDT", 55000)
	fx.worker.refreshOccupancy(ctx, now)
	fx.worker.tick(ctx, now)

	snap := fx.registry.Snapshot("BTCUSDT")
	require.NotNil(t, snap)
	assert.InDelta(t, 1.0, snap.Coefficient, 1e-9)
	assert.True(t, snap.CoefficientStale)
	// With coefficient 1.0 the final score equals the base score.
	assert.InDelta(t, float64(snap.BaseScore), snap.FinalScore, 1e-9)
}

func TestWorkerInvalidPriceKeepsLastSnapshot(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()
	now := fx.clock.Now()

	fx.prices.set("BTCUSDT", 55000)
	fx.worker.refreshOccupancy(ctx, now)
	fx.worker.tick(ctx, now)

	first := fx.registry.Snapshot("BTCUSDT")
	require.NotNil(t, first)

	fx.prices.set("BTCUSDT", -1)
	fx.worker.tick(ctx, now.Add(5*time.Minute))

	snap := fx.registry.Snapshot("BTCUSDT")
	require.NotNil(t, snap)
	assert.Equal(t, first.Timestamp, snap.Timestamp)
	assert.Equal(t, first.Price, snap.Price)
}

func TestWorkerPriceFetchFailureKeepsLastSnapshot(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()
	now := fx.clock.Now()

	fx.prices.set("BTCUSDT", 55000)
	fx.worker.refreshOccupancy(ctx, now)
	fx.worker.tick(ctx, now)
	require.NotNil(t, fx.registry.Snapshot("BTCUSDT"))

	fx.prices.fail("BTCUSDT", errors.New("feed down"))
	fx.worker.tick(ctx, now.Add(5*time.Minute))

	snap := fx.registry.Snapshot("BTCUSDT")
	require.NotNil(t, snap)
	assert.Equal(t, now, snap.Timestamp)
}

func TestWorkerDailyAccrual(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()
	now := fx.clock.Now() // 2025-06-01 12:00 UTC

	fx.prices.set("BTCUSDT", 55000)
	fx.worker.refreshOccupancy(ctx, now) // anchors the accrual day
	fx.worker.tick(ctx, now)

	// Refresh on the same calendar day: no accrual.
	fx.worker.refreshOccupancy(ctx, now.Add(time.Hour))
	fx.stores.mu.Lock()
	assert.Equal(t, 0, fx.stores.bandPuts)
	fx.stores.mu.Unlock()

	// Refresh after midnight: the current band and the life age gain a day.
	fx.worker.refreshOccupancy(ctx, now.Add(13*time.Hour))
	fx.stores.mu.Lock()
	assert.Equal(t, 1, fx.stores.bandPuts)
	assert.Equal(t, 1, fx.stores.agePuts)
	assert.Equal(t, 101, fx.stores.days["0.5-0.6"])
	assert.Equal(t, 101, fx.stores.lifeAge)
	fx.stores.mu.Unlock()

	occ := fx.registry.Occupancy("BTCUSDT")
	require.NotNil(t, occ)
	assert.Equal(t, 101, occ.LifeAgeDays)
	assert.Equal(t, 101, occ.Bands["0.5-0.6"].Days)
}

func TestWorkerPublishesOccupancyCopy(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()
	now := fx.clock.Now()

	fx.prices.set("BTCUSDT", 55000)
	fx.worker.refreshOccupancy(ctx, now)
	fx.worker.tick(ctx, now)

	// Day rollover: accrual mutates the worker-owned set before publish.
	fx.worker.refreshOccupancy(ctx, now.Add(13*time.Hour))

	published := fx.registry.Occupancy("BTCUSDT")
	require.NotNil(t, published)
	assert.Equal(t, 101, published.Bands["0.5-0.6"].Days)

	// The registry must hold its own copy: handler goroutines range this
	// map while the worker keeps accruing on its set.
	require.NotSame(t, fx.worker.state.occupancy, published)
	b := published.Bands["0.5-0.6"]
	b.Days = 999
	published.Bands["0.5-0.6"] = b
	assert.Equal(t, 101, fx.worker.state.occupancy.Bands["0.5-0.6"].Days)
}

func TestWorkerAccrualSurvivesStoreFailure(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()
	now := fx.clock.Now()

	fx.prices.set("BTCUSDT", 55000)
	fx.worker.refreshOccupancy(ctx, now)
	fx.worker.tick(ctx, now)

	fx.stores.mu.Lock()
	fx.stores.putErr = errors.New("store down")
	fx.stores.mu.Unlock()

	fx.worker.refreshOccupancy(ctx, now.Add(13*time.Hour))

	// Persistence failed but the in-memory counts advanced anyway.
	occ := fx.registry.Occupancy("BTCUSDT")
	require.NotNil(t, occ)
	assert.Equal(t, 101, occ.LifeAgeDays)
	assert.Equal(t, 101, occ.Bands["0.5-0.6"].Days)
}

func TestWorkerScheduleCadence(t *testing.T) {
	fx := newWorkerFixture(t)
	ctx := context.Background()
	now := fx.clock.Now()

	fx.prices.set("BTCUSDT", 55000)
	fx.worker.runDue(ctx, now, true)
	require.Equal(t, 1, fx.provider.callCount())

	// 5 minutes on: the price task is due, the coefficient is not.
	now = now.Add(5 * time.Minute)
	fx.worker.runDue(ctx, now, false)
	assert.Equal(t, 1, fx.provider.callCount())

	// 12 hours on: the coefficient refresh comes due with the tick.
	now = now.Add(12 * time.Hour)
	fx.worker.runDue(ctx, now, false)
	assert.Equal(t, 2, fx.provider.callCount())
}
