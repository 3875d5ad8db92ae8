package coefficient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	domsvc "RiskPulse/internal/domain/service"
	"RiskPulse/internal/riskengine"
	xhttp "RiskPulse/pkg/http"
)

// ErrUnavailable marks a failed or empty coefficient call. Callers must
// retain the last known coefficient and mark the snapshot stale; the
// engine never fabricates a value.
var ErrUnavailable = errors.New("coefficient service unavailable")

// HTTPClient calls the external coefficient service.
type HTTPClient struct {
	baseURL  string
	client   *xhttp.Client
	attempts int
}

// NewHTTPClient builds a coefficient client with timeout and retry budget.
func NewHTTPClient(baseURL string, timeout time.Duration, attempts int) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if attempts <= 0 {
		attempts = 1
	}
	return &HTTPClient{
		baseURL:  baseURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		attempts: attempts,
	}
}

type calculateReq struct {
	Symbol    string  `json:"symbol"`
	RiskValue float64 `json:"risk_value"`
}

type calculateResp struct {
	Coefficient        float64                `json:"coefficient"`
	FinalScore         float64                `json:"final_score"`
	SignalStrength     float64                `json:"signal_strength"`
	Methodology        string                 `json:"methodology"`
	CalculationDetails map[string]interface{} `json:"calculation_details"`
}

// Calculate requests the multiplicative coefficient for a symbol at the
// given risk value. The result is clamped to [1.0,1.6] regardless of what
// the service returns.
func (c *HTTPClient) Calculate(ctx context.Context, symbol string, riskValue float64) (models.CoefficientResult, error) {
	var result models.CoefficientResult
	if c.client == nil || c.baseURL == "" {
		return result, fmt.Errorf("coefficient client not initialized: %w", ErrUnavailable)
	}

	var cr calculateResp
	var err error
	for i := 1; i <= c.attempts; i++ {
		err = c.post(ctx, calculateReq{Symbol: symbol, RiskValue: riskValue}, &cr)
		if err == nil {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return result, fmt.Errorf("coefficient %s: %w: %w", symbol, ErrUnavailable, ctx.Err())
		}
	}
	if err != nil {
		return result, fmt.Errorf("coefficient %s: %w: %w", symbol, ErrUnavailable, err)
	}
	if cr.Coefficient <= 0 {
		return result, fmt.Errorf("coefficient %s: empty response: %w", symbol, ErrUnavailable)
	}

	result.Symbol = symbol
	result.Coefficient = riskengine.ClampCoefficient(cr.Coefficient)
	result.Methodology = cr.Methodology
	result.SignalStrength = cr.SignalStrength
	result.CalculationDetails = cr.CalculationDetails
	result.RetrievedAt = time.Now()
	return result, nil
}

func (c *HTTPClient) post(ctx context.Context, payload interface{}, dest interface{}) error {
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + "/coefficient/calculate",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post /coefficient/calculate: %w", err)
	}
	return nil
}

var _ domsvc.CoefficientProvider = (*HTTPClient)(nil)
