//go:build wireinject
// +build wireinject

package di

import (
	"RiskPulse/pkg/config"
	"RiskPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisCache,
		ProvideCache,

		// Repositories
		ProvideUpdateLog,
		ProvidePublisher,
		ProvideStores,
		ProvideRetryQueue,
		ProvideQueueService,
		ProvidePriceStream,
		ProvideQuoteClient,
		ProvidePriceSource,
		ProvideCoefficientProvider,

		// Use cases
		ProvideCoefficientService,
		ProvideOccupancyService,
		ProvideSnapshotService,

		// Engine, consumer, HTTP
		ProvideEngine,
		ProvideKafkaConsumer,
		ProvideAuditHandler,
		ProvideRiskHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
