package api

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/engine"
	icache "RiskPulse/internal/service/cache"
	"RiskPulse/internal/service/metrics"
	"RiskPulse/internal/service/ratelimit"
	xhttp "RiskPulse/pkg/http"
	xlogger "RiskPulse/pkg/logger"
)

const updateLogsCacheTTL = 30 * time.Second

// RiskHandler serves the risk engine's in-memory results and the audit
// log over HTTP.
type RiskHandler struct {
	logger    *xlogger.Logger
	engine    *engine.Engine
	updateLog domrepo.UpdateLog
	cache     icache.BytesCache
	rl        *ratelimit.Limiter
}

func NewRiskHandler(logger *xlogger.Logger, eng *engine.Engine, updateLog domrepo.UpdateLog) *RiskHandler {
	metrics.Register()
	return &RiskHandler{
		logger:    logger,
		engine:    eng,
		updateLog: updateLog,
		cache:     icache.NewTTLCache(),
		rl:        ratelimit.New(),
	}
}

// SetCache swaps the response cache, e.g. for a Redis-backed one shared
// across replicas.
func (h *RiskHandler) SetCache(c icache.BytesCache) { h.cache = c }

func (h *RiskHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/snapshot", h.Snapshot)
	g.GET("/snapshots", h.Snapshots)
	g.GET("/alert", h.Alert)
	g.GET("/bands", h.Bands)
	g.GET("/update-logs", h.UpdateLogs)
	g.POST("/recompute", h.Recompute)
}

// Snapshot returns the latest snapshot for one symbol. 404 until the
// first successful tick.
func (h *RiskHandler) Snapshot(c echo.Context) error {
	defer h.observe("snapshot", time.Now())
	req := &models.SnapshotRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap := h.engine.Snapshot(req.Symbol)
	if snap == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no snapshot for %s", req.Symbol))
	}
	return xhttp.SuccessResponse(c, snap)
}

// Snapshots returns the latest snapshot for every symbol that has one.
func (h *RiskHandler) Snapshots(c echo.Context) error {
	defer h.observe("snapshots", time.Now())
	return xhttp.SuccessResponse(c, h.engine.Snapshots())
}

// Alert returns the most recent band-change alert for a symbol. Alerts
// overwrite; only the latest is retrievable.
func (h *RiskHandler) Alert(c echo.Context) error {
	defer h.observe("alert", time.Now())
	req := &models.AlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	alert := h.engine.Alert(req.Symbol)
	if alert == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no alert for %s", req.Symbol))
	}
	return xhttp.SuccessResponse(c, alert)
}

// Bands returns a symbol's occupancy map as last retrieved.
func (h *RiskHandler) Bands(c echo.Context) error {
	defer h.observe("bands", time.Now())
	req := &models.BandsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	occ := h.engine.Occupancy(req.Symbol)
	if occ == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no occupancy data for %s", req.Symbol))
	}
	return xhttp.SuccessResponse(c, occ)
}

// UpdateLogs returns recent audit-log entries for a symbol, newest first.
// An optional from query param (RFC3339 or unix seconds) limits how far
// back the scan goes. Responses are cached briefly; the log is
// write-mostly and reads are diagnostic.
func (h *RiskHandler) UpdateLogs(c echo.Context) error {
	defer h.observe("update_logs", time.Now())
	req := &models.UpdateLogsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.updateLog == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("update log not configured"))
	}
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), time.Time{})
	fromKey := int64(0)
	if !from.IsZero() {
		fromKey = from.Unix()
	}

	cacheKey := "update-logs:" + req.Symbol + ":" + strconv.Itoa(req.Limit) +
		":" + strconv.FormatInt(fromKey, 10)
	if b, ok, err := h.cache.GetBytes(cacheKey); err == nil && ok {
		var cached []models.UpdateLogEntry
		if jerr := json.Unmarshal(b, &cached); jerr == nil {
			return xhttp.SuccessResponse(c, cached)
		}
	}

	entries, err := h.updateLog.Recent(c.Request().Context(), req.Symbol, from, req.Limit)
	if err != nil {
		metrics.APIErrors.WithLabelValues("update_logs").Inc()
		h.logger.Error("update log query failed",
			xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("update log unavailable"))
	}

	if b, err := json.Marshal(entries); err == nil {
		if cerr := h.cache.SetBytes(cacheKey, b, updateLogsCacheTTL); cerr != nil {
			h.logger.Warn("update log cache set failed", xlogger.Error(cerr))
		}
	}
	return xhttp.SuccessResponse(c, entries)
}

// Recompute triggers an immediate out-of-schedule tick for one symbol.
func (h *RiskHandler) Recompute(c echo.Context) error {
	defer h.observe("recompute", time.Now())
	req := &models.RecomputeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":recompute", 3, 1) {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("rate_limited", "", "too many recompute requests", 429))
	}

	if err := h.engine.ForceRecompute(req.Symbol); err != nil {
		metrics.APIErrors.WithLabelValues("recompute").Inc()
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("unknown symbol %s", req.Symbol))
	}
	return xhttp.SuccessResponse(c, map[string]string{"symbol": req.Symbol, "status": "scheduled"})
}

func (h *RiskHandler) observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
