//go:build wireinject
// +build wireinject

package di

import (
	"StockPulse/internal/domain/repository"
	"StockPulse/pkg/config"
	"StockPulse/pkg/metrics"
	"StockPulse/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),
	ProvidePostgresClient,
	ProvideRedisCache,
	ProvideCacheService,
	ProvideClickHouseClient,
	ProvideKafkaProducer,
)

var ingestSet = wire.NewSet(
	ProvideInstrumentCache,
	ProvideInstrumentStore,
	ProvideTradeStore,
	ProvideProfileLookup,
	ProvideBatchSinks,
	ProvideBatchPersister,
	ProvideSymbolResolver,
	ProvideBatchBuffer,
	ProvideRealtimePipeline,
	ProvideTradeCollector,
	ProvideKafkaConsumer,
	ProvideKafkaTradesHandler,
	ProvideTradeQueue,
)

var apiSet = wire.NewSet(
	ProvideCandlesUseCase,
	ProvideCandlesHandler,
	ProvideHTTPServer,
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(infraSet, ingestSet, apiSet, ProvideApp)
	return &server.App{}, nil
}
