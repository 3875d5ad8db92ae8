package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
	applogger "RiskPulse/pkg/logger"
)

// fakeStream hands out a fresh channel pair per Read and lets the test
// end a session the way the real stream does: optional error, then both
// channels closed.
type fakeStream struct {
	mu         sync.Mutex
	reconnects int
	reads      int
	failFirstN int // Reconnect attempts to reject before succeeding
	ticks      chan *models.Tick
	errs       chan error
}

func (f *fakeStream) Connect(context.Context) error   { return nil }
func (f *fakeStream) Subscribe(context.Context) error { return nil }
func (f *fakeStream) Close() error                    { return nil }
func (f *fakeStream) IsConnected() bool               { return true }

func (f *fakeStream) Read(context.Context) (<-chan *models.Tick, <-chan error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	f.ticks = make(chan *models.Tick, 8)
	f.errs = make(chan error, 1)
	return f.ticks, f.errs
}

func (f *fakeStream) Reconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	if f.reconnects <= f.failFirstN {
		return errors.New("dial refused")
	}
	return nil
}

func (f *fakeStream) push(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks <- &models.Tick{Symbol: symbol, Price: price, Timestamp: time.Now().Unix()}
}

// endSession emits err when non-nil and closes both channels, the same
// shutdown sequence the websocket read goroutine performs.
func (f *fakeStream) endSession(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.errs <- err
	}
	close(f.ticks)
	close(f.errs)
}

func (f *fakeStream) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeStream) reconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconnects
}

type noopMetrics struct{}

func (noopMetrics) RecordSnapshot(string)                 {}
func (noopMetrics) RecordBandChange(string)               {}
func (noopMetrics) RecordCoefficientRefresh(string, bool) {}
func (noopMetrics) RecordRiskValue(string, float64)       {}
func (noopMetrics) RecordFinalScore(string, float64)      {}
func (noopMetrics) RecordError(string)                    {}
func (noopMetrics) RecordLatency(string, float64)         {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func startSource(t *testing.T, stream *fakeStream) (*Source, context.CancelFunc) {
	t.Helper()
	src := NewSource(stream, nil, noopMetrics{}, testLogger(t), 5*time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, src.Start(ctx))
	return src, cancel
}

func waitForPrice(t *testing.T, src *Source, symbol string, want float64) {
	t.Helper()
	require.Eventually(t, func() bool {
		p, err := src.LatestPrice(context.Background(), symbol)
		return err == nil && p == want
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSourceReconnectsAfterStreamError(t *testing.T) {
	stream := &fakeStream{failFirstN: 1}
	src, cancel := startSource(t, stream)
	defer cancel()

	stream.push("BTCUSDT", 100)
	waitForPrice(t, src, "BTCUSDT", 100)

	// The read goroutine reports an error and closes both channels. The
	// first reconnect attempt is refused; the consumer must keep retrying
	// instead of going dead.
	stream.endSession(errors.New("unexpected EOF"))
	require.Eventually(t, func() bool {
		return stream.readCount() == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, stream.reconnectCount(), 2)

	stream.push("BTCUSDT", 200)
	waitForPrice(t, src, "BTCUSDT", 200)
}

func TestSourceRecoversFromSilentChannelClose(t *testing.T) {
	stream := &fakeStream{}
	src, cancel := startSource(t, stream)
	defer cancel()

	stream.push("BTCUSDT", 100)
	waitForPrice(t, src, "BTCUSDT", 100)

	// Both channels close without a preceding error. The consumer must
	// treat the closure as a dead stream and reconnect, not spin on the
	// closed channels' zero values.
	stream.endSession(nil)
	require.Eventually(t, func() bool {
		return stream.readCount() == 2
	}, 5*time.Second, 10*time.Millisecond)

	stream.push("BTCUSDT", 300)
	waitForPrice(t, src, "BTCUSDT", 300)
}
