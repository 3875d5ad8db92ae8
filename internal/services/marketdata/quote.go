package marketdata

import (
	"context"
	"fmt"
	"time"

	"RiskPulse/internal/service/ratelimit"
	xhttp "RiskPulse/pkg/http"
)

// QuoteClient fetches a spot quote over REST. Used when the stream has no
// sufficiently fresh price for a symbol.
type QuoteClient struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
	limiter *ratelimit.Limiter
}

// NewQuoteClient creates a REST quote client with a per-symbol rate limit.
func NewQuoteClient(baseURL, apiKey string, timeout time.Duration) *QuoteClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QuoteClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter: ratelimit.New(),
	}
}

type quoteResp struct {
	Current float64 `json:"c"`
	Time    int64   `json:"t"`
}

// Quote returns the latest trade price for a symbol.
func (q *QuoteClient) Quote(ctx context.Context, symbol string) (float64, error) {
	if q.baseURL == "" {
		return 0, fmt.Errorf("quote url not configured")
	}
	// One quote per symbol per second is plenty for a 5-minute cadence.
	if !q.limiter.Allow("quote:"+symbol, 2, 1) {
		return 0, fmt.Errorf("quote %s: rate limited", symbol)
	}

	var qr quoteResp
	err := q.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    q.baseURL,
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {q.apiKey},
		},
	}, &qr)
	if err != nil {
		return 0, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if qr.Current <= 0 {
		return 0, fmt.Errorf("quote %s: no price in response", symbol)
	}
	return qr.Current, nil
}
