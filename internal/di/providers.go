package di

import (
	"context"
	"fmt"
	"time"

	"ChainPulse/internal/detector"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/flow"
	"ChainPulse/internal/handler/api"
	"ChainPulse/internal/lifecycle"
	internalrepo "ChainPulse/internal/repository"
	"ChainPulse/internal/scanner"
	"ChainPulse/internal/scorer"
	"ChainPulse/internal/service/marketdata"
	"ChainPulse/internal/snapshot"
	"ChainPulse/internal/usecase"
	"ChainPulse/pkg/cache"
	pkgch "ChainPulse/pkg/clickhouse"
	"ChainPulse/pkg/config"
	xhttp "ChainPulse/pkg/http"
	pkgkafka "ChainPulse/pkg/kafka"
	"ChainPulse/pkg/logger"
	"ChainPulse/pkg/metrics"
	"ChainPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache builds the cache service: layered memory+Redis when Redis is
// enabled, plain memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	redisCache, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache), nil
}

// ProvideClickHouseClient creates the ClickHouse client for the whale archive.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideTransactionStore creates the whale transaction archive.
func ProvideTransactionStore(client *pkgch.Client, log *logger.Logger) (repository.TransactionStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := internalrepo.NewClickHouseWhaleStore(ctx, client, log)
	if err != nil {
		return nil, fmt.Errorf("whale store: %w", err)
	}
	return store, nil
}

// ProvideSignalStore selects the signal persistence backend.
func ProvideSignalStore(cfg *config.Config, log *logger.Logger) (repository.SignalStore, error) {
	if cfg.SignalBackend == "memory" {
		return internalrepo.NewMemorySignalStore(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	store, err := internalrepo.NewPostgresSignalStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("signal store: %w", err)
	}
	return store, nil
}

// ProvideExchangeDirectory loads the known-exchange address table.
func ProvideExchangeDirectory(cfg *config.Config) (*flow.ExchangeDirectory, error) {
	return flow.NewExchangeDirectory(cfg.Flow.AddressFile)
}

// ProvideClassifier creates the whale transaction classifier.
func ProvideClassifier(cfg *config.Config, dir *flow.ExchangeDirectory) *flow.Classifier {
	return flow.NewClassifier(cfg, dir)
}

// ProvideFlowAnalyzer creates the flow analyzer.
func ProvideFlowAnalyzer(
	cfg *config.Config,
	store repository.TransactionStore,
	cacheSvc cache.Service,
	log *logger.Logger,
	m repository.Metrics,
) *flow.Analyzer {
	return flow.NewAnalyzer(cfg, store, cacheSvc, log, m)
}

// ProvideSnapshotStore creates the snapshot pair store.
func ProvideSnapshotStore() *snapshot.Store {
	return snapshot.NewStore()
}

// ProvideDetector creates the pattern detector.
func ProvideDetector(cfg *config.Config, store *snapshot.Store, log *logger.Logger, m repository.Metrics) *detector.Detector {
	return detector.New(cfg, store, log, m)
}

// ProvideMarketDataProvider creates the quote provider.
func ProvideMarketDataProvider(cfg *config.Config, log *logger.Logger) *marketdata.Provider {
	return marketdata.NewProvider(cfg, log)
}

// ProvideMarketData exposes the provider through its domain interface.
func ProvideMarketData(p *marketdata.Provider) repository.MarketData {
	return p
}

// ProvideSnapshotStream creates the WebSocket snapshot stream.
func ProvideSnapshotStream(cfg *config.Config, log *logger.Logger) repository.SnapshotStream {
	return marketdata.NewStream(cfg, log)
}

// ProvideSnapshotCollector creates the stream collector.
func ProvideSnapshotCollector(
	cfg *config.Config,
	stream repository.SnapshotStream,
	provider *marketdata.Provider,
	log *logger.Logger,
	m repository.Metrics,
) *usecase.SnapshotCollector {
	return usecase.NewSnapshotCollector(cfg, stream, provider, log, m)
}

// ProvideScorer creates the confidence scorer.
func ProvideScorer(
	cfg *config.Config,
	market repository.MarketData,
	det *detector.Detector,
	analyzer *flow.Analyzer,
	log *logger.Logger,
	m repository.Metrics,
) *scorer.Scorer {
	return scorer.New(cfg, market, det, analyzer, log, m)
}

// ProvideScanner creates the scan orchestrator. The distributed lock rides
// the cache service and only engages when Redis is enabled.
func ProvideScanner(
	cfg *config.Config,
	sc *scorer.Scorer,
	store repository.SignalStore,
	cacheSvc cache.Service,
	log *logger.Logger,
	m repository.Metrics,
) *scanner.Scanner {
	var locker cache.Service
	if cfg.Redis.Enabled {
		locker = cacheSvc
	}
	return scanner.New(cfg, sc, store, locker, log, m)
}

// ProvideTracker creates the signal lifecycle tracker.
func ProvideTracker(
	cfg *config.Config,
	store repository.SignalStore,
	market repository.MarketData,
	log *logger.Logger,
	m repository.Metrics,
) *lifecycle.Tracker {
	return lifecycle.NewTracker(cfg, store, market, log, m)
}

// ProvideKafkaProducer creates the Kafka producer for enriched republish.
// Nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
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

// ProvideKafkaConsumer creates the whale-feed consumer. Nil when no brokers
// are configured.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideWhaleIngestHandler creates the whale-feed message handler.
func ProvideWhaleIngestHandler(
	cfg *config.Config,
	classifier *flow.Classifier,
	store repository.TransactionStore,
	producer *pkgkafka.Producer,
	log *logger.Logger,
	m repository.Metrics,
) *usecase.WhaleIngestHandler {
	return usecase.NewWhaleIngestHandler(cfg, classifier, store, producer, log, m)
}

// ProvideAPIHandler creates the HTTP API handler.
func ProvideAPIHandler(
	sc *scanner.Scanner,
	tracker *lifecycle.Tracker,
	analyzer *flow.Analyzer,
	store repository.SignalStore,
	collector *usecase.SnapshotCollector,
	log *logger.Logger,
) xhttp.Handler {
	return api.NewHandler(sc, tracker, analyzer, store, collector, log)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	collector *usecase.SnapshotCollector,
	consumer *pkgkafka.Consumer,
	whaleHandler *usecase.WhaleIngestHandler,
	sc *scanner.Scanner,
	tracker *lifecycle.Tracker,
	handler xhttp.Handler,
	signalStore repository.SignalStore,
	txStore repository.TransactionStore,
	producer *pkgkafka.Producer,
	cacheSvc cache.Service,
) *server.App {
	return server.New(cfg, log, collector, consumer, whaleHandler, sc, tracker, handler, signalStore, txStore, producer, cacheSvc)
}
