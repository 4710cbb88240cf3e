// Package server wires the long-running pieces of the pipeline into one
// lifecycle: snapshot collector, whale consumer, scan orchestrator, signal
// tracker and the HTTP API.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/lifecycle"
	"ChainPulse/internal/scanner"
	"ChainPulse/internal/usecase"
	"ChainPulse/pkg/cache"
	"ChainPulse/pkg/config"
	xhttp "ChainPulse/pkg/http"
	pkgkafka "ChainPulse/pkg/kafka"
	applogger "ChainPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg          *config.Config
	logger       *applogger.Logger
	collector    *usecase.SnapshotCollector
	consumer     *pkgkafka.Consumer
	whaleHandler *usecase.WhaleIngestHandler
	scanner      *scanner.Scanner
	tracker      *lifecycle.Tracker
	httpHandler  xhttp.Handler
	httpServer   *xhttp.Server
	signalStore  repository.SignalStore
	txStore      repository.TransactionStore
	producer     *pkgkafka.Producer
	cache        cache.Service
}

// New creates an App with all dependencies injected.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.SnapshotCollector,
	consumer *pkgkafka.Consumer,
	whaleHandler *usecase.WhaleIngestHandler,
	sc *scanner.Scanner,
	tracker *lifecycle.Tracker,
	httpHandler xhttp.Handler,
	signalStore repository.SignalStore,
	txStore repository.TransactionStore,
	producer *pkgkafka.Producer,
	cacheSvc cache.Service,
) *App {
	return &App{
		cfg:          cfg,
		logger:       log.With("app"),
		collector:    collector,
		consumer:     consumer,
		whaleHandler: whaleHandler,
		scanner:      sc,
		tracker:      tracker,
		httpHandler:  httpHandler,
		signalStore:  signalStore,
		txStore:      txStore,
		producer:     producer,
		cache:        cacheSvc,
	}
}

// Run starts every component and blocks until an interrupt arrives.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, a.logger,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)

	if err := a.collector.Start(ctx); err != nil {
		a.logger.Error("snapshot collector start", applogger.Error(err))
		return err
	}
	a.logger.Info("snapshot collector started",
		applogger.Strings("universe", a.cfg.Universe))

	if a.consumer != nil && a.whaleHandler != nil {
		a.consumer.RegisterHandler(a.whaleHandler)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("whale consumer started",
			applogger.String("topic", a.whaleHandler.Topic()))
	}

	go a.scanner.Start(ctx)
	a.logger.Info("scan orchestrator started",
		applogger.Duration("interval", a.cfg.Scanner.Interval))

	go a.tracker.Start(ctx)
	a.logger.Info("lifecycle tracker started",
		applogger.Duration("sweep_interval", a.cfg.Lifecycle.SweepInterval))

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown stops components in reverse dependency order: inbound feeds
// first, then the API, then the stores.
func (a *App) shutdown() error {
	ctx := context.Background()

	if err := a.collector.Shutdown(ctx); err != nil {
		a.logger.Warn("collector stop", applogger.Error(err))
	}

	if a.consumer != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.consumer.Stop(stopCtx); err != nil {
			a.logger.Warn("kafka consumer stop", applogger.Error(err))
		}
		cancel()
	}

	httpCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(httpCtx); err != nil {
		a.logger.Error("http shutdown", applogger.Error(err))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close", applogger.Error(err))
		}
	}
	if err := a.txStore.Close(); err != nil {
		a.logger.Warn("whale store close", applogger.Error(err))
	}
	if err := a.signalStore.Close(); err != nil {
		a.logger.Warn("signal store close", applogger.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("cache close", applogger.Error(err))
	}

	a.logger.Info("shutdown complete")
	return nil
}
