// Package scanner runs the periodic market scan: batches of symbols are
// scored, gated on confidence, deduplicated against open signals, and
// persisted as actionable signals.
package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/scorer"
	"ChainPulse/internal/service/ratelimit"
	"ChainPulse/pkg/cache"
	"ChainPulse/pkg/config"
	"ChainPulse/pkg/logger"
)

// ErrScanInFlight is returned by RunCycle when a cycle is already running,
// here or on another instance holding the distributed lock.
var ErrScanInFlight = errors.New("scan already in progress")

const lockKey = "scan:cycle"

// Scanner orchestrates scan cycles over the configured symbol universe.
type Scanner struct {
	cfg     *config.Config
	scorer  *scorer.Scorer
	store   repository.SignalStore
	locker  cache.Service // nil when running single-instance
	limiter *ratelimit.Limiter
	logger  *logger.Logger
	metrics repository.Metrics

	state state
}

func New(
	cfg *config.Config,
	sc *scorer.Scorer,
	store repository.SignalStore,
	locker cache.Service,
	log *logger.Logger,
	metrics repository.Metrics,
) *Scanner {
	return &Scanner{
		cfg:     cfg,
		scorer:  sc,
		store:   store,
		locker:  locker,
		limiter: ratelimit.New(cfg.Scanner.RateCapacity, cfg.Scanner.RateRefill),
		logger:  log.With("scanner"),
		metrics: metrics,
	}
}

// Start runs scan cycles on the configured interval until ctx ends. The first
// cycle fires immediately.
func (s *Scanner) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Scanner.Interval)
	defer ticker.Stop()

	s.runQuietly(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner stopped")
			return
		case <-ticker.C:
			s.runQuietly(ctx)
		}
	}
}

func (s *Scanner) runQuietly(ctx context.Context) {
	if _, err := s.RunCycle(ctx); err != nil && !errors.Is(err, ErrScanInFlight) {
		s.logger.Error("scan cycle failed", logger.Error(err))
	}
}

// Status reports the current scan state.
func (s *Scanner) Status() models.ScanStatus {
	return s.state.Status()
}

// RunCycle executes one full scan of the universe. It refuses to overlap with
// a running cycle and, when a distributed locker is configured, with cycles
// on other instances.
func (s *Scanner) RunCycle(ctx context.Context) ([]models.ScanResult, error) {
	if !s.state.TryBegin() {
		return nil, ErrScanInFlight
	}

	unlock := func() {}
	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx, lockKey, s.cfg.Scanner.LockTTL)
		if err != nil {
			s.logger.Warn("scan lock unavailable, proceeding locally", logger.Error(err))
		} else if !ok {
			s.state.End(0, 0, time.Now().Add(s.cfg.Scanner.Interval))
			return nil, ErrScanInFlight
		} else {
			unlock = func() { _ = s.locker.Unlock(context.WithoutCancel(ctx), lockKey) }
		}
	}
	defer unlock()

	s.metrics.SetScanning(true)
	defer s.metrics.SetScanning(false)

	start := time.Now()
	universe := s.cfg.Universe
	batchSize := s.cfg.Scanner.BatchSize

	s.logger.Info("scan cycle started",
		logger.Int("universe", len(universe)),
		logger.Int("batch_size", batchSize))

	var results []models.ScanResult
	var newSignals int64

	for i := 0; i < len(universe); i += batchSize {
		end := i + batchSize
		if end > len(universe) {
			end = len(universe)
		}

		// Batch members are evaluated concurrently; the batch size bounds
		// how many outbound calls are in flight at once.
		batch := universe[i:end]
		batchResults := make([]models.ScanResult, len(batch))
		var wg sync.WaitGroup
		for j, symbol := range batch {
			wg.Add(1)
			go func(j int, symbol string) {
				defer wg.Done()
				batchResults[j] = s.scanSymbol(ctx, symbol)
			}(j, symbol)
		}
		wg.Wait()

		for _, res := range batchResults {
			if res.Signal != nil {
				newSignals++
			}
			results = append(results, res)
		}

		// Pause between batches, not after the last one.
		if end < len(universe) {
			select {
			case <-ctx.Done():
				s.finish(len(results), newSignals, start)
				return results, ctx.Err()
			case <-time.After(s.cfg.Scanner.BatchDelay):
			}
		}
	}

	s.finish(len(results), newSignals, start)
	return results, nil
}

func (s *Scanner) finish(scanned int, newSignals int64, start time.Time) {
	next := time.Now().Add(s.cfg.Scanner.Interval)
	s.state.End(scanned, newSignals, next)
	s.metrics.RecordScanCycle(scanned, int(newSignals))
	s.metrics.RecordLatency("scan_cycle", time.Since(start).Seconds())
	s.logger.Info("scan cycle finished",
		logger.Int("scanned", scanned),
		logger.Int64("new_signals", newSignals),
		logger.Duration("took", time.Since(start)))
}

// scanSymbol evaluates one symbol under the per-asset timeout. Failures are
// contained to the symbol: the cycle always moves on.
func (s *Scanner) scanSymbol(ctx context.Context, symbol string) models.ScanResult {
	res := models.ScanResult{Symbol: symbol}

	actx, cancel := context.WithTimeout(ctx, s.cfg.Scanner.AssetTimeout)
	defer cancel()

	if err := s.limiter.Wait(actx); err != nil {
		res.Reason = "rate limit wait: " + err.Error()
		return res
	}

	eval, err := s.scorer.Evaluate(actx, symbol)
	if err != nil {
		s.metrics.RecordError("symbol_scan")
		s.logger.Warn("symbol scan failed", logger.String("symbol", symbol), logger.Error(err))
		res.Reason = err.Error()
		return res
	}

	res.Confidence = eval.Confidence
	res.Direction = eval.Direction
	if eval.Rejected {
		res.Reason = eval.Reason
		return res
	}
	if eval.Confidence < s.cfg.Scanner.MinConfidence {
		res.Reason = "below confidence gate"
		return res
	}

	// Dedup: one open signal per symbol. An expired ACTIVE row does not
	// block; the lifecycle tracker will expire it and the store enforces
	// the invariant transactionally either way.
	existing, err := s.store.ActiveBySymbol(actx, symbol)
	if err != nil {
		res.Reason = "dedup check failed: " + err.Error()
		return res
	}
	if existing != nil && !existing.Expired(time.Now()) {
		res.Reason = "active signal exists"
		return res
	}

	sig := s.buildSignal(eval)
	if err := s.store.Insert(actx, sig); err != nil {
		if errors.Is(err, repository.ErrActiveSignalExists) {
			res.Reason = "active signal exists"
			return res
		}
		s.metrics.RecordError("signal_insert")
		res.Reason = "insert failed: " + err.Error()
		return res
	}

	res.Accepted = true
	res.Signal = sig
	s.logger.Info("signal created",
		logger.String("symbol", symbol),
		logger.String("direction", string(sig.Direction)),
		logger.Float64("confidence", sig.Confidence),
		logger.String("risk", string(sig.Risk)))
	return res
}

func (s *Scanner) buildSignal(eval *scorer.Evaluation) *models.Signal {
	now := time.Now()
	sig := &models.Signal{
		ID:         uuid.NewString(),
		Symbol:     eval.Symbol,
		Direction:  eval.Direction,
		Confidence: eval.Confidence,
		Risk:       riskFor(s.cfg, eval.Confidence),
		Status:     models.StatusActive,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.Scanner.SignalTTL),
	}
	computeLevels(s.cfg, sig, eval.Price)
	return sig
}
