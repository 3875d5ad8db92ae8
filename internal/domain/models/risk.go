package models

import "time"

// BandKey identifies one of the ten decile risk bands, e.g. "0.5-0.6".
type BandKey string

// BandCount is the number of decile bands partitioning [0,1].
const BandCount = 10

// BandKeys lists all band keys in ascending order.
var BandKeys = [BandCount]BandKey{
	"0.0-0.1", "0.1-0.2", "0.2-0.3", "0.3-0.4", "0.4-0.5",
	"0.5-0.6", "0.6-0.7", "0.7-0.8", "0.8-0.9", "0.9-1.0",
}

// Index returns the position of the band in BandKeys, or -1 when unknown.
func (k BandKey) Index() int {
	for i, b := range BandKeys {
		if b == k {
			return i
		}
	}
	return -1
}

// SymbolConfig holds the per-symbol polynomial fit and reference data.
// Immutable at runtime except through an explicit administrative reload.
type SymbolConfig struct {
	Symbol       string     `json:"symbol" yaml:"symbol"`
	Coefficients [5]float64 `json:"coefficients" yaml:"coefficients"` // a0..a4
	LifeAgeDays  int        `json:"life_age_days" yaml:"life_age_days"`
	MinPrice     float64    `json:"min_price" yaml:"min_price"`
	MaxPrice     float64    `json:"max_price" yaml:"max_price"`
}

// RiskBand carries the historical occupancy of one decile band.
type RiskBand struct {
	Key         BandKey   `json:"band_key"`
	Days        int       `json:"days"`
	Percentage  float64   `json:"percentage"`
	LastUpdated time.Time `json:"last_updated"`
}

// OccupancySet is a symbol's full occupancy map plus its life age.
// Consistent is false when sum(days) != life_age (a data-quality
// condition, not an error).
type OccupancySet struct {
	Symbol      string               `json:"symbol"`
	Bands       map[BandKey]RiskBand `json:"bands"`
	LifeAgeDays int                  `json:"life_age_days"`
	Consistent  bool                 `json:"consistent"`
	RetrievedAt time.Time            `json:"retrieved_at"`
}

// Clone returns an independent copy. Sets handed to other goroutines
// must be clones; the band map is not safe for concurrent mutation.
func (o *OccupancySet) Clone() *OccupancySet {
	c := *o
	c.Bands = make(map[BandKey]RiskBand, len(o.Bands))
	for k, b := range o.Bands {
		c.Bands[k] = b
	}
	return &c
}

// TotalDays sums observed days across all bands.
func (o *OccupancySet) TotalDays() int {
	total := 0
	for _, b := range o.Bands {
		total += b.Days
	}
	return total
}

// CoefficientResult is the externally computed multiplier and its context.
// Owned by the coefficient service; the engine only consumes it.
type CoefficientResult struct {
	Symbol             string                 `json:"symbol"`
	Coefficient        float64                `json:"coefficient"`
	Methodology        string                 `json:"methodology"`
	SignalStrength     float64                `json:"signal_strength"`
	CalculationDetails map[string]interface{} `json:"calculation_details,omitempty"`
	RetrievedAt        time.Time              `json:"retrieved_at"`
}

// RiskSnapshot is the full scoring result for one scheduled tick.
// Snapshots are immutable; each recompute replaces the previous one.
type RiskSnapshot struct {
	Symbol           string    `json:"symbol"`
	Timestamp        time.Time `json:"timestamp"`
	Price            float64   `json:"price"`
	RiskValue        float64   `json:"risk_value"`
	Band             BandKey   `json:"band"`
	BaseScore        int       `json:"base_score"`
	Coefficient      float64   `json:"coefficient"`
	CoefficientStale bool      `json:"coefficient_stale"`
	FinalScore       float64   `json:"final_score"`
	MarketSignal     string    `json:"market_signal"`
	TradingSignal    string    `json:"trading_signal"`
	SignalStatus     string    `json:"signal_status"`
	RangeClamped     bool      `json:"range_clamped,omitempty"`
}

// BandChangeAlert records a transition between risk bands. At most one
// live alert exists per symbol; a new transition overwrites it.
type BandChangeAlert struct {
	Symbol    string    `json:"symbol"`
	OldBand   BandKey   `json:"old_band"`
	NewBand   BandKey   `json:"new_band"`
	RiskValue float64   `json:"risk_value"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// UpdateLogEntry is one row of the write-mostly audit log.
type UpdateLogEntry struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Kind       string    `json:"kind"` // "snapshot" or "band_change"
	Band       BandKey   `json:"band"`
	RiskValue  float64   `json:"risk_value"`
	Price      float64   `json:"price"`
	FinalScore float64   `json:"final_score"`
	Detail     string    `json:"detail,omitempty"`
}

// Tick is a single trade observation from the price stream.
type Tick struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp int64 // unix seconds
}
