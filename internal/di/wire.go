//go:build wireinject
// +build wireinject

package di

import (
	"LendPulse/pkg/config"
	"LendPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
    wire.Build(
        // Ambient
        ProvideLogger,
        ProvideMetrics,

        // Infrastructure clients
        ProvideClickHouseClient,
        ProvideKafkaProducer,
        ProvideKafkaConsumer,
        ProvideRedisCache,
        ProvideRPCClient,

        // Repositories (with business logic)
        ProvideHealthStore,
        ProvideReportPublisher,
        ProvidePositionSource,
        ProvideUpdateStream,

        // Domain services
        ProvideCalculator,

        // Use cases
        ProvideReportProcessor,
        ProvideRecomputer,
        ProvideAccountCollector,
        ProvideRecheckQueue,
        ProvideObligationScanner,
        ProvideKafkaAccountsHandler,
        ProvideHealthAggregator,
        ProvideHTTPHandler,

        // Application server
        ProvideApp,
    )
    return &server.App{}, nil
}
