package flow

import (
	"context"
	"errors"
	"time"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/pkg/cache"
	"ChainPulse/pkg/config"
	"ChainPulse/pkg/logger"
)

// Analyzer computes windowed exchange-flow summaries from the transaction
// archive. Summaries are cached briefly so repeated scoring within a scan
// cycle does not hammer the store.
type Analyzer struct {
	cfg     *config.Config
	store   repository.TransactionStore
	cache   cache.Service
	logger  *logger.Logger
	metrics repository.Metrics
}

func NewAnalyzer(
	cfg *config.Config,
	store repository.TransactionStore,
	cacheSvc cache.Service,
	log *logger.Logger,
	metrics repository.Metrics,
) *Analyzer {
	return &Analyzer{
		cfg:     cfg,
		store:   store,
		cache:   cacheSvc,
		logger:  log.With("flow_analyzer"),
		metrics: metrics,
	}
}

// Summary returns the flow summary for symbol over the given timeframe.
// Unknown timeframes fall back to the default window.
func (a *Analyzer) Summary(ctx context.Context, symbol, timeframe string) (*models.FlowSummary, error) {
	tf := repository.NormalizeTimeframe(timeframe)

	key := cache.Key("flow", symbol, string(tf))
	var cached models.FlowSummary
	if err := a.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		a.logger.Warn("flow cache read failed", logger.String("symbol", symbol), logger.Error(err))
	}

	start := time.Now()
	since := start.Add(-tf.Duration())
	txs, err := a.store.BySymbolSince(ctx, symbol, since)
	if err != nil {
		a.metrics.RecordError("flow_query")
		return nil, err
	}
	a.metrics.RecordLatency("flow_summary", time.Since(start).Seconds())

	summary := a.aggregate(symbol, string(tf), txs)

	if err := a.cache.Set(ctx, key, summary, a.cfg.Flow.CacheTTL); err != nil {
		a.logger.Warn("flow cache write failed", logger.String("symbol", symbol), logger.Error(err))
	}
	return summary, nil
}

// aggregate folds transactions into a summary. Only exchange-directed
// transfers move the inflow/outflow totals; whale-to-whale and unknown
// transfers count toward volume but not direction.
func (a *Analyzer) aggregate(symbol, timeframe string, txs []*models.WhaleTransaction) *models.FlowSummary {
	s := &models.FlowSummary{
		Symbol:           symbol,
		Timeframe:        timeframe,
		TransactionCount: len(txs),
		ComputedAt:       time.Now(),
	}

	for _, tx := range txs {
		switch tx.Type {
		case models.TxExchangeDeposit:
			s.InflowUSD += tx.AmountUSD
		case models.TxExchangeWithdrawal:
			s.OutflowUSD += tx.AmountUSD
		}
	}
	s.NetFlowUSD = s.InflowUSD - s.OutflowUSD

	ratio := s.FlowRatio()
	s.Interpretation = a.interpret(ratio)
	s.Sentiment = a.sentiment(ratio)
	return s
}

// interpret maps the flow ratio onto the accumulation/distribution scale.
// Negative ratio means net withdrawals, coins leaving exchanges.
func (a *Analyzer) interpret(ratio float64) models.FlowInterpretation {
	f := a.cfg.Flow
	switch {
	case ratio < -f.StrongRatio:
		return models.FlowStrongAccumulation
	case ratio < -f.LeanRatio:
		return models.FlowAccumulation
	case ratio > f.StrongRatio:
		return models.FlowStrongDistribution
	case ratio > f.LeanRatio:
		return models.FlowDistribution
	default:
		return models.FlowNeutral
	}
}

// sentiment is the market-direction mirror of interpretation: accumulation
// reads bullish, distribution bearish.
func (a *Analyzer) sentiment(ratio float64) models.FlowSentiment {
	f := a.cfg.Flow
	switch {
	case ratio < -f.VeryRatio:
		return models.SentimentVeryBullish
	case ratio < -f.SentimentRatio:
		return models.SentimentBullish
	case ratio > f.VeryRatio:
		return models.SentimentVeryBearish
	case ratio > f.SentimentRatio:
		return models.SentimentBearish
	default:
		return models.SentimentNeutral
	}
}
