package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/engine"
	"RiskPulse/internal/services/marketdata"
	pkgch "RiskPulse/pkg/clickhouse"
	"RiskPulse/pkg/config"
	xhttp "RiskPulse/pkg/http"
	pkgkafka "RiskPulse/pkg/kafka"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg    *config.Config
	logger *applogger.Logger

	source     *marketdata.Source
	engine     *engine.Engine
	publisher  drepo.AlertPublisher
	updateLog  drepo.UpdateLog
	retryQueue *queue.RedisQueue
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	chClient   *pkgch.Client

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies. Optional sinks
// (publisher, updateLog, retryQueue, consumer) may be nil.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	source *marketdata.Source,
	eng *engine.Engine,
	publisher drepo.AlertPublisher,
	updateLog drepo.UpdateLog,
	retryQueue *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		source:     source,
		engine:     eng,
		publisher:  publisher,
		updateLog:  updateLog,
		retryQueue: retryQueue,
		consumer:   consumer,
		kh:         kh,
		chClient:   chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	if a.updateLog != nil {
		if err := a.updateLog.Init(ctx); err != nil {
			l.Warn("update log init failed, auditing disabled for this run", applogger.Error(err))
		}
	}

	if err := a.source.Start(ctx); err != nil {
		// The quote fallback still serves prices; the stream keeps
		// reconnecting in the background.
		l.Warn("price stream unavailable at startup", applogger.Error(err))
	}
	l.Info("price source started", applogger.Strings("symbols", a.cfg.SymbolNames()))

	if a.retryQueue != nil {
		if err := a.retryQueue.Start(); err != nil {
			l.Error("retry queue start error", applogger.Error(err))
		} else {
			a.retryQueue.StartRetryProcessor()
			l.Info("persistence retry queue started")
		}
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("audit consumer started", applogger.String("topic", a.kh.Topic()))
	}

	a.engine.Start(ctx)
	l.Info("risk engine started")

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	l := a.logger
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.engine.Stop()

	if err := a.source.Stop(); err != nil {
		l.Warn("price source stop error", applogger.Error(err))
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.retryQueue != nil {
		if err := a.retryQueue.Stop(ctx); err != nil {
			l.Warn("retry queue stop error", applogger.Error(err))
		}
	}
	// Flush the log aggregator while the producer is still open.
	l.RemoveCollector()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			l.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.updateLog != nil {
		if err := a.updateLog.Close(); err != nil {
			l.Warn("update log close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
