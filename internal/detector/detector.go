// Package detector finds multi-signal patterns between consecutive market
// snapshots. Four families are evaluated on every call: confluence,
// divergence, institutional and momentum.
package detector

import (
	"fmt"
	"sync"
	"time"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/snapshot"
	"ChainPulse/pkg/config"
	"ChainPulse/pkg/logger"
)

// Detector evaluates snapshot pairs and maintains a bounded per-symbol
// pattern history used by the momentum family.
type Detector struct {
	cfg     *config.Config
	store   *snapshot.Store
	logger  *logger.Logger
	metrics repository.Metrics

	mu      sync.Mutex
	history map[string][]models.Pattern
}

func New(cfg *config.Config, store *snapshot.Store, l *logger.Logger, m repository.Metrics) *Detector {
	return &Detector{
		cfg:     cfg,
		store:   store,
		logger:  l.With("detector"),
		metrics: m,
		history: make(map[string][]models.Pattern),
	}
}

// deltas carries the derived measurements one evaluation works from.
type deltas struct {
	pricePct  float64
	volumePct float64
	velocity  float64 // percent per second
	imbalance float64
	hasDepth  bool
}

// Detect evaluates the pair formed by cur and the previously stored snapshot
// for symbol. It updates the snapshot store and appends surviving patterns to
// the history. With no previous snapshot the result is empty and neutral.
func (d *Detector) Detect(symbol string, cur *models.TickerSnapshot) models.DetectionResult {
	start := time.Now()
	empty := models.DetectionResult{
		Symbol:        symbol,
		OverallSignal: models.BiasNeutral,
		EvaluatedAt:   cur.Timestamp,
	}

	pair, ok := d.store.Update(cur)
	if !ok {
		d.logger.Warn("snapshot older than stored current, dropped",
			logger.String("symbol", symbol), logger.Time("ts", cur.Timestamp))
		d.metrics.RecordError("snapshot_out_of_order")
		return empty
	}
	prev := pair.Previous
	if prev == nil {
		return empty
	}

	del := deltas{
		pricePct:  cur.PriceChangePct(prev),
		volumePct: cur.VolumeChangePct(prev),
		velocity:  cur.VelocityPctPerSec(prev),
	}
	if cur.Depth != nil {
		del.imbalance = cur.Depth.Imbalance
		del.hasDepth = true
	}

	var candidates []models.Pattern
	candidates = append(candidates, d.confluence(cur, del)...)
	candidates = append(candidates, d.divergence(cur, prev, del)...)
	candidates = append(candidates, d.institutional(cur, prev, del)...)
	candidates = append(candidates, d.momentum(symbol, cur, del)...)

	result := d.aggregate(symbol, cur.Timestamp, candidates)
	d.metrics.RecordLatency("detect", time.Since(start).Seconds())
	return result
}

// aggregate applies the strength post-filter, derives the overall read, and
// records survivors into the bounded history.
func (d *Detector) aggregate(symbol string, ts time.Time, candidates []models.Pattern) models.DetectionResult {
	threshold := d.cfg.Detector.PatternThreshold

	var surviving []models.Pattern
	for _, p := range candidates {
		if p.Strength >= threshold {
			surviving = append(surviving, p)
		}
	}

	res := models.DetectionResult{
		Symbol:        symbol,
		Patterns:      surviving,
		OverallSignal: models.BiasNeutral,
		EvaluatedAt:   ts,
	}
	if len(surviving) == 0 {
		return res
	}

	var bull, bear, sum float64
	strongest := 0
	for i, p := range surviving {
		sum += p.Strength
		switch p.Signal {
		case models.BiasBullish:
			bull += p.Strength
		case models.BiasBearish:
			bear += p.Strength
		}
		if p.Strength > surviving[strongest].Strength {
			strongest = i
		}
		d.metrics.RecordPattern(string(p.Type), string(p.Signal))
	}

	dominance := d.cfg.Detector.BullishDominanceFactor
	switch {
	case bull > dominance*bear:
		res.OverallSignal = models.BiasBullish
	case bear > dominance*bull:
		res.OverallSignal = models.BiasBearish
	}
	res.OverallStrength = sum / float64(len(surviving))
	res.Strongest = &surviving[strongest]
	res.ShouldTrigger = res.OverallStrength >= threshold

	d.appendHistory(symbol, surviving)

	d.logger.Debug("patterns detected",
		logger.String("symbol", symbol),
		logger.Int("count", len(surviving)),
		logger.String("signal", string(res.OverallSignal)),
		logger.Float64("strength", res.OverallStrength))
	return res
}

func (d *Detector) appendHistory(symbol string, patterns []models.Pattern) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := append(d.history[symbol], patterns...)
	if max := d.cfg.Detector.HistorySize; len(h) > max {
		h = h[len(h)-max:]
	}
	d.history[symbol] = h
}

// recentHistory returns a copy of the stored history for symbol.
func (d *Detector) recentHistory(symbol string) []models.Pattern {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := d.history[symbol]
	out := make([]models.Pattern, len(h))
	copy(out, h)
	return out
}

// HistoryLen reports the current history depth for a symbol.
func (d *Detector) HistoryLen(symbol string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.history[symbol])
}

func clampStrength(s float64) float64 {
	if s > 100 {
		return 100
	}
	if s < 0 {
		return 0
	}
	return s
}

func pct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}
