package usecase

import (
	"context"
	"sync"
	"time"

	"ChainPulse/internal/domain/models"
	domrepo "ChainPulse/internal/domain/repository"
	"ChainPulse/internal/service/marketdata"
	"ChainPulse/pkg/config"
	"ChainPulse/pkg/logger"
)

// SnapshotCollector consumes the WebSocket snapshot stream and feeds the
// market-data provider's quote table. Per-symbol throttling caps the update
// rate so a chatty feed cannot starve the rest of the process.
type SnapshotCollector struct {
	stream   domrepo.SnapshotStream
	provider *marketdata.Provider
	logger   *logger.Logger
	metrics  domrepo.Metrics

	minGap         time.Duration
	reconnectDelay time.Duration
	mu             sync.Mutex
	last           map[string]time.Time
}

func NewSnapshotCollector(
	cfg *config.Config,
	stream domrepo.SnapshotStream,
	provider *marketdata.Provider,
	log *logger.Logger,
	metrics domrepo.Metrics,
) *SnapshotCollector {
	var minGap time.Duration
	if hz := cfg.MarketData.MaxPerSymbolHz; hz > 0 {
		minGap = time.Second / time.Duration(hz)
	}
	return &SnapshotCollector{
		stream:         stream,
		provider:       provider,
		logger:         log.With("snapshot_collector"),
		metrics:        metrics,
		minGap:         minGap,
		reconnectDelay: cfg.MarketData.ReconnectDelay,
		last:           make(map[string]time.Time),
	}
}

// Start connects, subscribes and begins consuming in the background.
func (c *SnapshotCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	snaps, errs := c.stream.Read(ctx)
	go c.consume(ctx, snaps, errs)
	return nil
}

// IsConnected reports the underlying stream status.
func (c *SnapshotCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *SnapshotCollector) consume(ctx context.Context, snaps <-chan *models.TickerSnapshot, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if ok && err == nil {
				continue
			}
			if ok {
				c.metrics.RecordError("stream")
				c.logger.Warn("stream error, reconnecting", logger.Error(err))
			} else {
				c.logger.Warn("stream closed, reconnecting")
			}
			snaps, errs = c.reconnect(ctx)
			if snaps == nil {
				return
			}
		case snap, ok := <-snaps:
			if !ok {
				// Drained; the error branch drives the reconnect.
				snaps = nil
				continue
			}
			if snap == nil || !c.admit(snap.Symbol) {
				continue
			}
			c.provider.Publish(snap)
			c.metrics.RecordLastPrice(snap.Symbol, snap.Price)
		}
	}
}

// reconnect retries until the stream comes back or ctx ends, doubling the
// delay between attempts up to a minute. Returns nil channels on ctx end.
func (c *SnapshotCollector) reconnect(ctx context.Context) (<-chan *models.TickerSnapshot, <-chan error) {
	const maxDelay = time.Minute
	delay := c.reconnectDelay
	if delay <= 0 {
		delay = time.Second
	}
	for {
		err := c.stream.Reconnect(ctx)
		if err == nil {
			return c.stream.Read(ctx)
		}
		c.metrics.RecordError("stream_reconnect")
		c.logger.Error("reconnect failed", logger.Error(err), logger.Duration("retry_in", delay))
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxDelay {
			delay = maxDelay
		}
	}
}

// admit applies the per-symbol rate cap.
func (c *SnapshotCollector) admit(symbol string) bool {
	if c.minGap <= 0 {
		return true
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.last[symbol]; ok && now.Sub(last) < c.minGap {
		return false
	}
	c.last[symbol] = now
	return true
}

// Shutdown closes the stream. The consume loop exits with the context the
// collector was started under.
func (c *SnapshotCollector) Shutdown(_ context.Context) error {
	return c.stream.Close()
}
