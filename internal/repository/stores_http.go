package repository

import (
	"context"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	"RiskPulse/pkg/cache"
	xhttp "RiskPulse/pkg/http"
)

// HTTPStores implements OccupancyStore and LifeAgeStore against the
// external persistence service, with an optional read cache in front of
// the GET endpoints. Writes invalidate the cache.
type HTTPStores struct {
	baseURL      string
	client       *xhttp.Client
	cache        cache.Service
	occupancyTTL time.Duration
	lifeAgeTTL   time.Duration
}

// NewHTTPStores creates the stores client. c may be nil to disable caching.
func NewHTTPStores(baseURL string, timeout time.Duration, c cache.Service, occupancyTTL time.Duration) *HTTPStores {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if occupancyTTL <= 0 {
		occupancyTTL = time.Hour
	}
	return &HTTPStores{
		baseURL:      baseURL,
		client:       xhttp.NewClient(xhttp.WithTimeout(timeout)),
		cache:        c,
		occupancyTTL: occupancyTTL,
		lifeAgeTTL:   occupancyTTL,
	}
}

type bandRow struct {
	BandKey     string    `json:"band_key"`
	Days        int       `json:"days"`
	Percentage  float64   `json:"percentage"`
	LastUpdated time.Time `json:"last_updated"`
}

// GetOccupancy fetches the per-band day counts for a symbol. LifeAgeDays
// and Consistent are filled by the caller once the life age is known.
func (s *HTTPStores) GetOccupancy(ctx context.Context, symbol string) (*models.OccupancySet, error) {
	key := cache.GenerateKey("occupancy", symbol)
	if s.cache != nil {
		var cached models.OccupancySet
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	var rows []bandRow
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/risk-bands/%s", s.baseURL, symbol),
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("get risk bands %s: %w", symbol, err)
	}

	occ := &models.OccupancySet{
		Symbol:      symbol,
		Bands:       make(map[models.BandKey]models.RiskBand, models.BandCount),
		RetrievedAt: time.Now(),
	}
	// Missing bands default to zero days so the map always covers all ten.
	for _, k := range models.BandKeys {
		occ.Bands[k] = models.RiskBand{Key: k}
	}
	for _, r := range rows {
		k := models.BandKey(r.BandKey)
		if k.Index() < 0 {
			continue
		}
		occ.Bands[k] = models.RiskBand{
			Key:         k,
			Days:        r.Days,
			Percentage:  r.Percentage,
			LastUpdated: r.LastUpdated,
		}
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, occ, s.occupancyTTL)
	}
	return occ, nil
}

// PutBandDays persists an updated day count for one band.
func (s *HTTPStores) PutBandDays(ctx context.Context, symbol string, band models.BandKey, days int) error {
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    fmt.Sprintf("%s/risk-bands/%s/%s", s.baseURL, symbol, band),
		Body:   map[string]int{"days": days},
	}, nil)
	if err != nil {
		return fmt.Errorf("put band days %s/%s: %w", symbol, band, err)
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, cache.GenerateKey("occupancy", symbol))
	}
	return nil
}

type lifeAgeResp struct {
	AgeDays     int       `json:"age_days"`
	LastUpdated time.Time `json:"last_updated"`
}

// GetLifeAge fetches the total observed days for a symbol.
func (s *HTTPStores) GetLifeAge(ctx context.Context, symbol string) (int, error) {
	key := cache.GenerateKey("lifeage", symbol)
	if s.cache != nil {
		var cached int
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	var la lifeAgeResp
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/life-age/%s", s.baseURL, symbol),
	}, &la)
	if err != nil {
		return 0, fmt.Errorf("get life age %s: %w", symbol, err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, la.AgeDays, s.lifeAgeTTL)
	}
	return la.AgeDays, nil
}

// PutLifeAge persists an updated life age.
func (s *HTTPStores) PutLifeAge(ctx context.Context, symbol string, ageDays int) error {
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    fmt.Sprintf("%s/life-age/%s", s.baseURL, symbol),
		Body:   map[string]int{"age_days": ageDays},
	}, nil)
	if err != nil {
		return fmt.Errorf("put life age %s: %w", symbol, err)
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, cache.GenerateKey("lifeage", symbol))
	}
	return nil
}

var (
	_ domrepo.OccupancyStore = (*HTTPStores)(nil)
	_ domrepo.LifeAgeStore   = (*HTTPStores)(nil)
)
