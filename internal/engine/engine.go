package engine

import (
	"context"
	"fmt"
	"sync"

	"RiskPulse/internal/domain/models"
	drepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/usecase"
	applogger "RiskPulse/pkg/logger"
)

// Engine runs one worker per configured symbol and exposes their latest
// results through a shared registry.
type Engine struct {
	workers  map[string]*Worker
	registry *Registry
	logger   *applogger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    sync.WaitGroup
	started bool
}

// New builds an engine with a worker for every symbol in cfgs.
func New(
	cfgs []models.SymbolConfig,
	intervals Intervals,
	clock Clock,
	prices drepo.PriceSource,
	occupancy *usecase.OccupancyService,
	coeffs *usecase.CoefficientService,
	snapshots *usecase.SnapshotService,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *Engine {
	registry := NewRegistry()
	workers := make(map[string]*Worker, len(cfgs))
	for _, cfg := range cfgs {
		workers[cfg.Symbol] = NewWorker(cfg, intervals, clock,
			prices, occupancy, coeffs, snapshots, registry, metrics, logger)
	}
	return &Engine{
		workers:  workers,
		registry: registry,
		logger:   logger,
	}
}

// Start launches all symbol workers. Safe to call once.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	for symbol, w := range e.workers {
		e.done.Add(1)
		go func(symbol string, w *Worker) {
			defer e.done.Done()
			e.logger.Info("symbol worker started", applogger.String("symbol", symbol))
			w.Run(runCtx)
			e.logger.Info("symbol worker stopped", applogger.String("symbol", symbol))
		}(symbol, w)
	}
}

// Stop cancels all workers and waits for them to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	started := e.started
	e.mu.Unlock()
	if !started || cancel == nil {
		return
	}
	cancel()
	e.done.Wait()
}

// ForceRecompute triggers an immediate tick on one symbol's worker.
func (e *Engine) ForceRecompute(symbol string) error {
	w, ok := e.workers[symbol]
	if !ok {
		return fmt.Errorf("unknown symbol %q", symbol)
	}
	w.ForceRecompute()
	return nil
}

// Symbols lists the configured symbols.
func (e *Engine) Symbols() []string {
	out := make([]string, 0, len(e.workers))
	for s := range e.workers {
		out = append(out, s)
	}
	return out
}

// Snapshot returns the latest snapshot for one symbol, or nil.
func (e *Engine) Snapshot(symbol string) *models.RiskSnapshot {
	return e.registry.Snapshot(symbol)
}

// Snapshots returns the latest snapshot for every symbol that has one.
func (e *Engine) Snapshots() []*models.RiskSnapshot {
	return e.registry.Snapshots()
}

// Alert returns the most recent band-change alert for one symbol, or nil.
func (e *Engine) Alert(symbol string) *models.BandChangeAlert {
	return e.registry.Alert(symbol)
}

// Occupancy returns the latest occupancy set for one symbol, or nil.
func (e *Engine) Occupancy(symbol string) *models.OccupancySet {
	return e.registry.Occupancy(symbol)
}
