package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/engine"
	"RiskPulse/internal/usecase"
	applogger "RiskPulse/pkg/logger"
)

type stubPrices struct {
	mu    sync.Mutex
	price float64
}

func (s *stubPrices) LatestPrice(context.Context, string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.price, nil
}

type stubStores struct{}

func (stubStores) GetOccupancy(_ context.Context, symbol string) (*models.OccupancySet, error) {
	bands := make(map[models.BandKey]models.RiskBand, models.BandCount)
	for _, key := range models.BandKeys {
		bands[key] = models.RiskBand{Key: key, Days: 10}
	}
	return &models.OccupancySet{Symbol: symbol, Bands: bands, RetrievedAt: time.Now()}, nil
}
func (stubStores) PutBandDays(context.Context, string, models.BandKey, int) error { return nil }
func (stubStores) GetLifeAge(context.Context, string) (int, error)                { return 100, nil }
func (stubStores) PutLifeAge(context.Context, string, int) error                  { return nil }

type stubProvider struct{}

func (stubProvider) Calculate(_ context.Context, symbol string, _ float64) (models.CoefficientResult, error) {
	return models.CoefficientResult{Symbol: symbol, Coefficient: 1.1, RetrievedAt: time.Now()}, nil
}

type stubUpdateLog struct {
	mu      sync.Mutex
	queries int
	entries []models.UpdateLogEntry
}

func (s *stubUpdateLog) Init(context.Context) error                                  { return nil }
func (s *stubUpdateLog) AppendSnapshot(context.Context, *models.RiskSnapshot) error  { return nil }
func (s *stubUpdateLog) AppendBandChange(context.Context, *models.BandChangeAlert) error { return nil }
func (s *stubUpdateLog) Health(context.Context) error                                { return nil }
func (s *stubUpdateLog) Close() error                                                { return nil }

func (s *stubUpdateLog) Recent(_ context.Context, _ string, from time.Time, limit int) ([]models.UpdateLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	out := make([]models.UpdateLogEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		out = append(out, e)
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubUpdateLog) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

type stubMetrics struct{}

func (stubMetrics) RecordSnapshot(string)                 {}
func (stubMetrics) RecordBandChange(string)               {}
func (stubMetrics) RecordCoefficientRefresh(string, bool) {}
func (stubMetrics) RecordRiskValue(string, float64)       {}
func (stubMetrics) RecordFinalScore(string, float64)      {}
func (stubMetrics) RecordError(string)                    {}
func (stubMetrics) RecordLatency(string, float64)         {}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestHandler(t *testing.T, updateLog *stubUpdateLog) (*RiskHandler, *engine.Engine) {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	metrics := stubMetrics{}
	stores := stubStores{}
	occSvc := usecase.NewOccupancyService(stores, stores, nil, metrics, log)
	coeffSvc := usecase.NewCoefficientService(stubProvider{}, nil, 12*time.Hour, metrics, log)
	snapSvc := usecase.NewSnapshotService(nil, nil, metrics, log, false)

	eng := engine.New(
		[]models.SymbolConfig{{Symbol: "BTCUSDT", Coefficients: [5]float64{0, 1e-5, 0, 0, 0}}},
		engine.Intervals{Price: time.Hour, Coefficient: 12 * time.Hour, Occupancy: time.Hour, CallTimeout: time.Second},
		engine.NewRealClock(),
		&stubPrices{price: 35000}, occSvc, coeffSvc, snapSvc, metrics, log,
	)
	return NewRiskHandler(log, eng, updateLog), eng
}

func doGet(h echo.HandlerFunc, target string) (*envelope, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func doPost(h echo.HandlerFunc, target, body string) (*envelope, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func TestSnapshotRequiresSymbol(t *testing.T) {
	h, _ := newTestHandler(t, &stubUpdateLog{})
	env, err := doGet(h.Snapshot, "/api/snapshot")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestSnapshotNotFoundBeforeFirstTick(t *testing.T) {
	h, _ := newTestHandler(t, &stubUpdateLog{})
	env, err := doGet(h.Snapshot, "/api/snapshot?symbol=BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, env.Status)
}

func TestSnapshotServedAfterTick(t *testing.T) {
	h, eng := newTestHandler(t, &stubUpdateLog{})
	eng.Start(context.Background())
	defer eng.Stop()

	require.Eventually(t, func() bool {
		return eng.Snapshot("BTCUSDT") != nil
	}, 2*time.Second, 10*time.Millisecond)

	env, err := doGet(h.Snapshot, "/api/snapshot?symbol=BTCUSDT")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, env.Status)

	var snap models.RiskSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.Equal(t, models.BandKey("0.3-0.4"), snap.Band)

	env, err = doGet(h.Snapshots, "/api/snapshots")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, env.Status)
	var snaps []models.RiskSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snaps))
	assert.Len(t, snaps, 1)

	env, err = doGet(h.Bands, "/api/bands?symbol=BTCUSDT")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, env.Status)
	var occ models.OccupancySet
	require.NoError(t, json.Unmarshal(env.Data, &occ))
	assert.Len(t, occ.Bands, models.BandCount)
}

func TestAlertNotFoundWithoutBandChange(t *testing.T) {
	h, _ := newTestHandler(t, &stubUpdateLog{})
	env, err := doGet(h.Alert, "/api/alert?symbol=BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, env.Status)
}

func TestUpdateLogsCachesResponses(t *testing.T) {
	updateLog := &stubUpdateLog{entries: []models.UpdateLogEntry{
		{Symbol: "BTCUSDT", Kind: "snapshot", Band: "0.3-0.4", Timestamp: time.Now().UTC()},
		{Symbol: "BTCUSDT", Kind: "band_change", Band: "0.3-0.4", Timestamp: time.Now().UTC()},
	}}
	h, _ := newTestHandler(t, updateLog)

	env, err := doGet(h.UpdateLogs, "/api/update-logs?symbol=BTCUSDT&limit=2")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, env.Status)
	var entries []models.UpdateLogEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	assert.Len(t, entries, 2)

	// Second identical request is served from the handler cache.
	_, err = doGet(h.UpdateLogs, "/api/update-logs?symbol=BTCUSDT&limit=2")
	require.NoError(t, err)
	assert.Equal(t, 1, updateLog.queryCount())
}

func TestUpdateLogsFromFilter(t *testing.T) {
	old := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	updateLog := &stubUpdateLog{entries: []models.UpdateLogEntry{
		{Symbol: "BTCUSDT", Kind: "snapshot", Band: "0.3-0.4", Timestamp: recent},
		{Symbol: "BTCUSDT", Kind: "snapshot", Band: "0.3-0.4", Timestamp: old},
	}}
	h, _ := newTestHandler(t, updateLog)

	env, err := doGet(h.UpdateLogs, "/api/update-logs?symbol=BTCUSDT&limit=10&from=2025-05-15T00:00:00Z")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, env.Status)
	var entries []models.UpdateLogEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, recent, entries[0].Timestamp)
}

func TestUpdateLogsLimitValidation(t *testing.T) {
	h, _ := newTestHandler(t, &stubUpdateLog{})
	env, err := doGet(h.UpdateLogs, "/api/update-logs?symbol=BTCUSDT&limit=9999")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestRecomputeUnknownSymbol(t *testing.T) {
	h, _ := newTestHandler(t, &stubUpdateLog{})
	env, err := doPost(h.Recompute, "/api/recompute", `{"symbol":"DOGEUSDT"}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, env.Status)
}

func TestRecomputeSchedulesTick(t *testing.T) {
	h, eng := newTestHandler(t, &stubUpdateLog{})
	eng.Start(context.Background())
	defer eng.Stop()

	env, err := doPost(h.Recompute, "/api/recompute", `{"symbol":"BTCUSDT"}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, env.Status)
}
