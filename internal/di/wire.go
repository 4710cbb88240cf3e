//go:build wireinject
// +build wireinject

package di

import (
	"ChainPulse/pkg/config"
	"ChainPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Stores
		ProvideTransactionStore,
		ProvideSignalStore,

		// Flow analysis
		ProvideExchangeDirectory,
		ProvideClassifier,
		ProvideFlowAnalyzer,

		// Market data and detection
		ProvideSnapshotStore,
		ProvideDetector,
		ProvideMarketDataProvider,
		ProvideMarketData,
		ProvideSnapshotStream,
		ProvideSnapshotCollector,

		// Pipeline
		ProvideScorer,
		ProvideScanner,
		ProvideTracker,
		ProvideWhaleIngestHandler,

		// HTTP and application server
		ProvideAPIHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
