package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RiskPulse/internal/domain/models"
	drepo "RiskPulse/internal/domain/repository"
	applogger "RiskPulse/pkg/logger"
)

type cachedPrice struct {
	price float64
	at    time.Time
}

// Source keeps the latest streamed price per symbol and serves it to the
// schedulers, falling back to a REST quote when the stream has nothing
// fresh. Implements repository.PriceSource.
type Source struct {
	stream  drepo.PriceStream
	quotes  *QuoteClient
	metrics drepo.Metrics
	logger  *applogger.Logger
	maxAge  time.Duration

	mu     sync.RWMutex
	latest map[string]cachedPrice
}

// NewSource creates a price source over a stream with REST fallback.
// quotes may be nil when no fallback endpoint is configured.
func NewSource(stream drepo.PriceStream, quotes *QuoteClient, metrics drepo.Metrics, logger *applogger.Logger, maxAge time.Duration) *Source {
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &Source{
		stream:  stream,
		quotes:  quotes,
		metrics: metrics,
		logger:  logger,
		maxAge:  maxAge,
		latest:  make(map[string]cachedPrice),
	}
}

// Start connects the stream and launches the consume loop. A nil stream is
// allowed; the source then serves REST quotes only.
func (s *Source) Start(ctx context.Context) error {
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Connect(ctx); err != nil {
		return err
	}
	if err := s.stream.Subscribe(ctx); err != nil {
		return err
	}
	tickCh, errCh := s.stream.Read(ctx)
	go s.consume(ctx, tickCh, errCh)
	return nil
}

func (s *Source) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				// The read goroutine exited. Drain remaining ticks first,
				// then reconnect; a closed channel left in the select would
				// deliver zero values in a tight loop.
				errCh = nil
				if tickCh == nil {
					if tickCh, errCh = s.reconnect(ctx); tickCh == nil {
						return
					}
				}
				continue
			}
			if err == nil {
				continue
			}
			s.metrics.RecordError("price_stream")
			s.logger.Warn("price stream error, reconnecting", applogger.Error(err))
			if tickCh, errCh = s.reconnect(ctx); tickCh == nil {
				return
			}
		case t, ok := <-tickCh:
			if !ok {
				tickCh = nil
				if errCh == nil {
					if tickCh, errCh = s.reconnect(ctx); tickCh == nil {
						return
					}
				}
				continue
			}
			if t == nil || t.Price <= 0 {
				continue
			}
			s.mu.Lock()
			s.latest[t.Symbol] = cachedPrice{price: t.Price, at: time.Unix(t.Timestamp, 0)}
			s.mu.Unlock()
		}
	}
}

// reconnect retries the stream with capped exponential backoff until it
// is back or ctx ends. Returns nil channels when ctx ended.
func (s *Source) reconnect(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil, nil
		}
		err := s.stream.Reconnect(ctx)
		if err == nil {
			return s.stream.Read(ctx)
		}
		s.metrics.RecordError("price_stream_reconnect")
		s.logger.Warn("price stream reconnect failed, retrying",
			applogger.Error(err), applogger.Duration("backoff_ms", backoff))

		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// LatestPrice returns the freshest known price for a symbol: the streamed
// price if younger than maxAge, otherwise a REST quote.
func (s *Source) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	s.mu.RLock()
	cached, ok := s.latest[symbol]
	s.mu.RUnlock()

	if ok && time.Since(cached.at) <= s.maxAge {
		return cached.price, nil
	}

	if s.quotes != nil {
		price, err := s.quotes.Quote(ctx, symbol)
		if err == nil {
			s.mu.Lock()
			s.latest[symbol] = cachedPrice{price: price, at: time.Now()}
			s.mu.Unlock()
			return price, nil
		}
		// A stale streamed price beats no price at all.
		if ok {
			s.logger.Warn("quote fallback failed, serving stale stream price",
				applogger.String("symbol", symbol), applogger.Error(err))
			return cached.price, nil
		}
		return 0, err
	}

	if ok {
		return cached.price, nil
	}
	return 0, fmt.Errorf("no price available for %s", symbol)
}

// Stop closes the stream.
func (s *Source) Stop() error {
	if s.stream == nil {
		return nil
	}
	return s.stream.Close()
}

var _ drepo.PriceSource = (*Source)(nil)
