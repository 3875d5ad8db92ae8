package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/usecase"
)

func newTestEngine(t *testing.T, prices *fakePriceSource, symbols ...string) *Engine {
	t.Helper()
	log := testLogger(t)
	metrics := noopMetrics{}
	stores := &fakeStores{lifeAge: 50, days: map[models.BandKey]int{"0.3-0.4": 50}}
	provider := &fakeProvider{coefficient: 1.1}

	occSvc := usecase.NewOccupancyService(stores, stores, nil, metrics, log)
	coeffSvc := usecase.NewCoefficientService(provider, nil, 12*time.Hour, metrics, log)
	snapSvc := usecase.NewSnapshotService(nil, nil, metrics, log, false)

	cfgs := make([]models.SymbolConfig, 0, len(symbols))
	for _, s := range symbols {
		cfgs = append(cfgs, models.SymbolConfig{Symbol: s, Coefficients: linearCoeffs})
	}
	return New(cfgs, Intervals{
		Price:       time.Hour,
		Coefficient: 12 * time.Hour,
		Occupancy:   time.Hour,
		CallTimeout: time.Second,
	}, NewRealClock(), prices, occSvc, coeffSvc, snapSvc, metrics, log)
}

func TestEngineSymbolIsolation(t *testing.T) {
	prices := &fakePriceSource{}
	prices.set("BTCUSDT", 35000)
	prices.fail("ETHUSDT", errors.New("feed down"))

	eng := newTestEngine(t, prices, "BTCUSDT", "ETHUSDT")
	eng.Start(context.Background())
	defer eng.Stop()

	require.Eventually(t, func() bool {
		return eng.Snapshot("BTCUSDT") != nil
	}, 2*time.Second, 10*time.Millisecond)

	// The failing symbol never produced a snapshot, the healthy one did.
	assert.Nil(t, eng.Snapshot("ETHUSDT"))
	snap := eng.Snapshot("BTCUSDT")
	require.NotNil(t, snap)
	assert.Equal(t, models.BandKey("0.3-0.4"), snap.Band)
	assert.Len(t, eng.Snapshots(), 1)
}

func TestEngineForceRecompute(t *testing.T) {
	prices := &fakePriceSource{}
	prices.fail("BTCUSDT", errors.New("not ready"))

	eng := newTestEngine(t, prices, "BTCUSDT")
	eng.Start(context.Background())
	defer eng.Stop()

	// The initial tick fails; the price interval is an hour so only a
	// forced recompute can produce a snapshot within the test window.
	time.Sleep(50 * time.Millisecond)
	require.Nil(t, eng.Snapshot("BTCUSDT"))

	prices.set("BTCUSDT", 35000)
	prices.fail("BTCUSDT", nil)
	require.NoError(t, eng.ForceRecompute("BTCUSDT"))

	require.Eventually(t, func() bool {
		return eng.Snapshot("BTCUSDT") != nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Error(t, eng.ForceRecompute("DOGEUSDT"))
}

func TestEngineStopIsIdempotent(t *testing.T) {
	prices := &fakePriceSource{}
	prices.set("BTCUSDT", 35000)

	eng := newTestEngine(t, prices, "BTCUSDT")
	eng.Stop() // before Start: no-op
	eng.Start(context.Background())
	eng.Stop()
	eng.Stop()
}

func TestEngineSymbols(t *testing.T) {
	eng := newTestEngine(t, &fakePriceSource{}, "BTCUSDT", "ETHUSDT")
	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT"}, eng.Symbols())
}
