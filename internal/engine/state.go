package engine

import (
	"sync"

	"RiskPulse/internal/domain/models"
)

// symbolState is the mutable per-symbol record. It is owned by the
// symbol's worker goroutine; nothing else writes it.
type symbolState struct {
	lastBand models.BandKey // empty until the first classification

	coefficient models.CoefficientResult
	hasCoeff    bool
	coeffStale  bool

	occupancy *models.OccupancySet

	lastAccrualDay string // "2006-01-02" of the last day-count accrual
}

// Registry holds the latest published snapshot and live alert per symbol
// for read-side consumers (HTTP API). Workers write, handlers read.
type Registry struct {
	mu        sync.RWMutex
	snapshots map[string]*models.RiskSnapshot
	alerts    map[string]*models.BandChangeAlert
	occupancy map[string]*models.OccupancySet
}

func NewRegistry() *Registry {
	return &Registry{
		snapshots: make(map[string]*models.RiskSnapshot),
		alerts:    make(map[string]*models.BandChangeAlert),
		occupancy: make(map[string]*models.OccupancySet),
	}
}

// SetSnapshot replaces the current snapshot for a symbol.
func (r *Registry) SetSnapshot(s *models.RiskSnapshot) {
	r.mu.Lock()
	r.snapshots[s.Symbol] = s
	r.mu.Unlock()
}

// SetAlert overwrites the singleton live alert for a symbol.
func (r *Registry) SetAlert(a *models.BandChangeAlert) {
	r.mu.Lock()
	r.alerts[a.Symbol] = a
	r.mu.Unlock()
}

// Snapshot returns the current snapshot for a symbol, or nil.
func (r *Registry) Snapshot(symbol string) *models.RiskSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshots[symbol]
}

// Snapshots returns the current snapshot of every symbol.
func (r *Registry) Snapshots() []*models.RiskSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.RiskSnapshot, 0, len(r.snapshots))
	for _, s := range r.snapshots {
		out = append(out, s)
	}
	return out
}

// Alert returns the live alert for a symbol, or nil when none fired yet.
func (r *Registry) Alert(symbol string) *models.BandChangeAlert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.alerts[symbol]
}

// SetOccupancy publishes the latest occupancy set for read-side consumers.
func (r *Registry) SetOccupancy(o *models.OccupancySet) {
	r.mu.Lock()
	r.occupancy[o.Symbol] = o
	r.mu.Unlock()
}

// Occupancy returns the last refreshed occupancy for a symbol, or nil.
func (r *Registry) Occupancy(symbol string) *models.OccupancySet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.occupancy[symbol]
}
