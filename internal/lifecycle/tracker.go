// Package lifecycle resolves open signals against live prices: stop hits fail
// a signal, target hits succeed it, and the validity window expires it.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/pkg/config"
	"ChainPulse/pkg/logger"
)

// Tracker sweeps ACTIVE signals on an interval and drives them to a terminal
// status. Terminal statuses are immutable; the store enforces that.
type Tracker struct {
	cfg     *config.Config
	store   repository.SignalStore
	market  repository.MarketData
	logger  *logger.Logger
	metrics repository.Metrics
}

func NewTracker(
	cfg *config.Config,
	store repository.SignalStore,
	market repository.MarketData,
	log *logger.Logger,
	metrics repository.Metrics,
) *Tracker {
	return &Tracker{
		cfg:     cfg,
		store:   store,
		market:  market,
		logger:  log.With("lifecycle"),
		metrics: metrics,
	}
}

// Start runs sweeps until ctx ends.
func (t *Tracker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.Lifecycle.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("lifecycle tracker stopped")
			return
		case <-ticker.C:
			if err := t.Sweep(ctx); err != nil {
				t.logger.Error("sweep failed", logger.Error(err))
			}
		}
	}
}

// Sweep resolves every ACTIVE signal once. Per-signal failures are logged and
// skipped so one bad symbol cannot stall the rest.
func (t *Tracker) Sweep(ctx context.Context) error {
	signals, err := t.store.Active(ctx)
	if err != nil {
		t.metrics.RecordError("lifecycle_query")
		return err
	}

	resolved := 0
	for _, sig := range signals {
		if done, err := t.resolve(ctx, sig); err != nil {
			t.logger.Warn("resolve failed",
				logger.String("id", sig.ID),
				logger.String("symbol", sig.Symbol),
				logger.Error(err))
		} else if done {
			resolved++
		}
	}

	if resolved > 0 {
		t.logger.Info("sweep resolved signals",
			logger.Int("resolved", resolved),
			logger.Int("active", len(signals)-resolved))
		t.refreshWinRate(ctx)
	}
	return nil
}

// resolve checks one signal against the current price. The stop is checked
// before the target so a move through both in one sweep resolves
// conservatively as a failure.
func (t *Tracker) resolve(ctx context.Context, sig *models.Signal) (bool, error) {
	now := time.Now()

	price, err := t.market.Price(ctx, sig.Symbol)
	if err != nil {
		// Price feed down. Expiry does not need a price.
		if sig.Expired(now) {
			return true, t.transition(ctx, sig, models.StatusExpired, nil, now)
		}
		return false, err
	}

	var to models.SignalStatus
	switch {
	case t.stopHit(sig, price):
		to = models.StatusFailed
	case t.targetHit(sig, price):
		to = models.StatusSuccess
	case sig.Expired(now):
		to = models.StatusExpired
	default:
		return false, nil
	}

	return true, t.transition(ctx, sig, to, &price, now)
}

func (t *Tracker) stopHit(sig *models.Signal, price float64) bool {
	if sig.Direction == models.DirectionSell {
		return price >= sig.StopLoss
	}
	return price <= sig.StopLoss
}

func (t *Tracker) targetHit(sig *models.Signal, price float64) bool {
	if len(sig.Targets) == 0 {
		return false
	}
	first := sig.Targets[0]
	if sig.Direction == models.DirectionSell {
		return price <= first
	}
	return price >= first
}

func (t *Tracker) transition(ctx context.Context, sig *models.Signal, to models.SignalStatus, exitPrice *float64, at time.Time) error {
	err := t.store.UpdateStatus(ctx, sig.ID, to, exitPrice, at)
	if errors.Is(err, repository.ErrTerminalSignal) {
		// Another sweep or instance got there first.
		return nil
	}
	if err != nil {
		t.metrics.RecordError("lifecycle_update")
		return err
	}

	fields := []logger.Field{
		logger.String("id", sig.ID),
		logger.String("symbol", sig.Symbol),
		logger.String("status", string(to)),
	}
	if exitPrice != nil {
		fields = append(fields, logger.Float64("exit_price", *exitPrice))
	}
	t.logger.Info("signal resolved", fields...)
	return nil
}

func (t *Tracker) refreshWinRate(ctx context.Context) {
	stats, err := t.Stats(ctx)
	if err != nil {
		t.logger.Warn("stats refresh failed", logger.Error(err))
		return
	}
	t.metrics.SetWinRate(stats.WinRate)
}
