// Package scorer fuses pattern detection with exchange-flow context into a
// single confidence read per symbol.
package scorer

import (
	"context"
	"time"

	"ChainPulse/internal/detector"
	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/internal/flow"
	"ChainPulse/pkg/config"
	"ChainPulse/pkg/logger"
)

// Evaluation is the scored view of one symbol at one point in time.
type Evaluation struct {
	Symbol     string
	Confidence float64
	Direction  models.Direction
	Price      float64
	Rejected   bool
	Reason     string
	Patterns   models.DetectionResult
	Flow       *models.FlowSummary
}

// Scorer pulls a fresh snapshot, runs detection, and adjusts the resulting
// strength by whether on-chain flow agrees with the pattern bias.
type Scorer struct {
	cfg      *config.Config
	market   repository.MarketData
	detector *detector.Detector
	flow     *flow.Analyzer
	logger   *logger.Logger
	metrics  repository.Metrics
}

func New(
	cfg *config.Config,
	market repository.MarketData,
	det *detector.Detector,
	analyzer *flow.Analyzer,
	log *logger.Logger,
	metrics repository.Metrics,
) *Scorer {
	return &Scorer{
		cfg:      cfg,
		market:   market,
		detector: det,
		flow:     analyzer,
		logger:   log.With("scorer"),
		metrics:  metrics,
	}
}

// Evaluate scores a single symbol. Flow data is advisory: a flow query
// failure degrades to pattern-only scoring rather than failing the symbol.
func (s *Scorer) Evaluate(ctx context.Context, symbol string) (*Evaluation, error) {
	start := time.Now()

	snap, err := s.market.Snapshot(ctx, symbol)
	if err != nil {
		s.metrics.RecordError("snapshot_fetch")
		return nil, err
	}
	s.metrics.RecordLastPrice(symbol, snap.Price)

	result := s.detector.Detect(symbol, snap)

	eval := &Evaluation{
		Symbol:   symbol,
		Price:    snap.Price,
		Patterns: result,
	}

	if !result.ShouldTrigger || result.OverallSignal == models.BiasNeutral {
		eval.Rejected = true
		eval.Reason = "no actionable pattern"
		return eval, nil
	}

	summary, err := s.flow.Summary(ctx, symbol, s.cfg.Flow.ScanTimeframe)
	if err != nil {
		s.logger.Warn("flow summary unavailable, scoring on patterns only",
			logger.String("symbol", symbol), logger.Error(err))
	} else {
		eval.Flow = summary
	}

	eval.Confidence = s.score(result, summary)
	eval.Direction = models.DirectionBuy
	if result.OverallSignal == models.BiasBearish {
		eval.Direction = models.DirectionSell
	}

	s.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
	s.logger.Debug("symbol evaluated",
		logger.String("symbol", symbol),
		logger.Float64("confidence", eval.Confidence),
		logger.String("direction", string(eval.Direction)))
	return eval, nil
}

// score starts from the overall pattern strength and nudges it by flow
// agreement: full bonus when flow strongly confirms the bias, half bonus on a
// lean, and the mirror penalties when flow contradicts it.
func (s *Scorer) score(result models.DetectionResult, summary *models.FlowSummary) float64 {
	confidence := result.OverallStrength
	if summary == nil {
		return clamp(confidence)
	}

	bonus := s.cfg.Scorer.FlowAlignmentBonus
	confidence += flowAdjustment(result.OverallSignal, summary.Sentiment, bonus)
	return clamp(confidence)
}

func flowAdjustment(bias models.SignalBias, sentiment models.FlowSentiment, bonus float64) float64 {
	var lean float64
	switch sentiment {
	case models.SentimentVeryBullish:
		lean = bonus
	case models.SentimentBullish:
		lean = bonus / 2
	case models.SentimentBearish:
		lean = -bonus / 2
	case models.SentimentVeryBearish:
		lean = -bonus
	default:
		return 0
	}
	if bias == models.BiasBearish {
		lean = -lean
	}
	return lean
}

func clamp(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
