package di

import (
	"context"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/domain/repository"
	domsvc "RiskPulse/internal/domain/service"
	"RiskPulse/internal/engine"
	"RiskPulse/internal/handler/api"
	internalrepo "RiskPulse/internal/repository"
	icache "RiskPulse/internal/service/cache"
	"RiskPulse/internal/services/coefficient"
	"RiskPulse/internal/services/marketdata"
	"RiskPulse/internal/usecase"
	pkgcache "RiskPulse/pkg/cache"
	pkgch "RiskPulse/pkg/clickhouse"
	"RiskPulse/pkg/config"
	pkgkafka "RiskPulse/pkg/kafka"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/metrics"
	"RiskPulse/pkg/queue"
	"RiskPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client for the audit log.
// Returns nil when no host is configured; auditing is then disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideUpdateLog creates the ClickHouse-backed audit log, or nil when
// ClickHouse is not configured.
func ProvideUpdateLog(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.UpdateLog {
	if chClient == nil {
		return nil
	}
	log := internalrepo.NewCHUpdateLog(chClient, cfg.ClickHouse.Database)
	log.SetLogger(l)
	return log
}

// ProvideKafkaProducer creates a Kafka producer, or nil without brokers.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// kafkaLogSink adapts the producer to the logger's batch publisher.
type kafkaLogSink struct {
	producer *pkgkafka.Producer
}

func (s kafkaLogSink) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return s.producer.Publish(ctx, topic, nil, payload)
}

// ProvidePublisher creates the Kafka alert/snapshot publisher. When a logs
// topic is configured it also attaches the error-log aggregator so
// repeated failures land in Kafka as counted batches.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) repository.AlertPublisher {
	if producer == nil {
		return nil
	}
	if cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      kafkaLogSink{producer: producer},
		})
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.AlertsTopic, cfg.Kafka.SnapshotsTopic)
}

// ProvideRedisCache connects to Redis, or returns nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache layers the in-process cache over Redis when available,
// falling back to memory-only.
func ProvideCache(rc *pkgcache.RedisCache) pkgcache.Service {
	if rc == nil {
		return pkgcache.NewMemoryCache()
	}
	return pkgcache.NewLayeredCache(rc)
}

// ProvideStores creates the HTTP occupancy/life-age store client.
func ProvideStores(cfg *config.Config, c pkgcache.Service) *internalrepo.HTTPStores {
	return internalrepo.NewHTTPStores(cfg.Stores.BaseURL, cfg.Stores.Timeout, c, cfg.Cache.OccupancyTTL)
}

// ProvideRetryQueue creates the Redis-backed persistence retry queue, with
// the deferred-write jobs registered. Nil without Redis.
func ProvideRetryQueue(cfg *config.Config, l *applogger.Logger, rc *pkgcache.RedisCache, stores *internalrepo.HTTPStores) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    2,
		QueueSize:  512,
		RetryLimit: 5,
		RetryDelay: 30 * time.Second,
	}, rc.Client(), queue.ModeProducerConsumer, queue.WithKeyPrefix("riskpulse"))
	q.RegisterJobs([]queue.Job{
		usecase.NewBandDaysRetryJob(stores),
		usecase.NewLifeAgeRetryJob(stores),
	})
	return q
}

// ProvideQueueService adapts the retry queue to the use-case interface.
func ProvideQueueService(q *queue.RedisQueue) queue.QueueService {
	if q == nil {
		return nil
	}
	return q
}

// ProvidePriceStream creates the WebSocket price stream, or nil when only
// the REST quote endpoint is configured.
func ProvidePriceStream(cfg *config.Config) repository.PriceStream {
	if cfg.PriceFeed.WebSocketURL == "" {
		return nil
	}
	return marketdata.NewStream(
		cfg.PriceFeed.APIKey,
		cfg.PriceFeed.WebSocketURL,
		cfg.SymbolNames(),
		cfg.PriceFeed.ReconnectDelay,
		cfg.PriceFeed.PingInterval,
	)
}

// ProvideQuoteClient creates the REST quote fallback, or nil.
func ProvideQuoteClient(cfg *config.Config) *marketdata.QuoteClient {
	if cfg.PriceFeed.QuoteURL == "" {
		return nil
	}
	return marketdata.NewQuoteClient(cfg.PriceFeed.QuoteURL, cfg.PriceFeed.APIKey, cfg.Engine.CallTimeout)
}

// ProvidePriceSource combines stream and quote fallback.
func ProvidePriceSource(stream repository.PriceStream, quotes *marketdata.QuoteClient, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *marketdata.Source {
	return marketdata.NewSource(stream, quotes, m, l, cfg.PriceFeed.MaxTickAge)
}

// ProvideCoefficientProvider creates the external coefficient client.
func ProvideCoefficientProvider(cfg *config.Config) domsvc.CoefficientProvider {
	return coefficient.NewHTTPClient(cfg.Coefficient.BaseURL, cfg.Coefficient.Timeout, cfg.Coefficient.RetryAttempts)
}

// ProvideCoefficientService creates the cached coefficient use case.
func ProvideCoefficientService(p domsvc.CoefficientProvider, c pkgcache.Service, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.CoefficientService {
	return usecase.NewCoefficientService(p, c, cfg.Cache.CoefficientTTL, m, l)
}

// ProvideOccupancyService creates the occupancy use case.
func ProvideOccupancyService(stores *internalrepo.HTTPStores, retries queue.QueueService, m repository.Metrics, l *applogger.Logger) *usecase.OccupancyService {
	return usecase.NewOccupancyService(stores, stores, retries, m, l)
}

// ProvideSnapshotService creates the snapshot use case. When the audit
// consumer is enabled, snapshot rows are written by the consumer rather
// than inline.
func ProvideSnapshotService(pub repository.AlertPublisher, log repository.UpdateLog, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.SnapshotService {
	deferAudit := cfg.Kafka.Audit.Enabled && pub != nil && log != nil
	return usecase.NewSnapshotService(pub, log, m, l, deferAudit)
}

// ProvideEngine creates the per-symbol scheduler engine.
func ProvideEngine(
	cfg *config.Config,
	source *marketdata.Source,
	occ *usecase.OccupancyService,
	coeffs *usecase.CoefficientService,
	snaps *usecase.SnapshotService,
	m repository.Metrics,
	l *applogger.Logger,
) *engine.Engine {
	symbols := make([]models.SymbolConfig, 0, len(cfg.Engine.Symbols))
	for _, s := range cfg.Engine.Symbols {
		symbols = append(symbols, models.SymbolConfig{
			Symbol:       s.Symbol,
			Coefficients: s.Coefficients,
			LifeAgeDays:  s.LifeAgeDays,
			MinPrice:     s.MinPrice,
			MaxPrice:     s.MaxPrice,
		})
	}
	return engine.New(symbols, engine.Intervals{
		Price:       cfg.Engine.PriceInterval,
		Coefficient: cfg.Engine.CoefficientInterval,
		Occupancy:   cfg.Engine.OccupancyInterval,
		CallTimeout: cfg.Engine.CallTimeout,
	}, engine.NewRealClock(), source, occ, coeffs, snaps, m, l)
}

// ProvideKafkaConsumer creates the snapshot-audit consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Audit.Enabled || len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Audit.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Audit.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Audit.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Audit.RetryMax, cfg.Kafka.Audit.BackoffMin, cfg.Kafka.Audit.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Audit.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Audit.MinBytes, cfg.Kafka.Audit.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideAuditHandler creates the snapshot-audit message handler.
func ProvideAuditHandler(cfg *config.Config, log repository.UpdateLog, m repository.Metrics) pkgkafka.MessageHandler {
	if !cfg.Kafka.Audit.Enabled || log == nil {
		return nil
	}
	return usecase.NewSnapshotAuditHandler(cfg.Kafka.SnapshotsTopic, log, m)
}

// ProvideRiskHandler creates the HTTP API handler. With Redis available
// the response cache is shared across replicas.
func ProvideRiskHandler(l *applogger.Logger, eng *engine.Engine, log repository.UpdateLog, rc *pkgcache.RedisCache) *api.RiskHandler {
	h := api.NewRiskHandler(l, eng, log)
	if rc != nil {
		h.SetCache(icache.NewRedisBytesCache(rc.Client()))
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	source *marketdata.Source,
	eng *engine.Engine,
	publisher repository.AlertPublisher,
	updateLog repository.UpdateLog,
	retryQueue *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	handler *api.RiskHandler,
	chClient *pkgch.Client,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, l, source, eng, publisher, updateLog, retryQueue, consumer, kh, chClient)
	app.SetHTTPHandler(handler)
	return app
}
