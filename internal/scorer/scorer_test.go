package scorer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChainPulse/internal/detector"
	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/flow"
	"ChainPulse/internal/snapshot"
	"ChainPulse/pkg/cache"
	"ChainPulse/pkg/config"
	"ChainPulse/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLatency(string, float64)   {}
func (nopMetrics) RecordPattern(string, string)    {}
func (nopMetrics) RecordTransaction(string)        {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordScanCycle(int, int)        {}
func (nopMetrics) SetScanning(bool)                {}
func (nopMetrics) SetWinRate(float64)              {}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	require.NoError(t, defaults.Set(cfg))
	return cfg
}

// fakeMarket replays a queued sequence of snapshots.
type fakeMarket struct {
	snaps []*models.TickerSnapshot
	i     int
}

func (f *fakeMarket) Snapshot(context.Context, string) (*models.TickerSnapshot, error) {
	if f.i >= len(f.snaps) {
		return nil, errors.New("no more snapshots")
	}
	s := f.snaps[f.i]
	f.i++
	return s, nil
}

func (f *fakeMarket) Price(ctx context.Context, symbol string) (float64, error) {
	s, err := f.Snapshot(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return s.Price, nil
}

type fakeTxStore struct {
	txs []*models.WhaleTransaction
	err error
}

func (f *fakeTxStore) Store(context.Context, *models.WhaleTransaction) error        { return nil }
func (f *fakeTxStore) StoreBatch(context.Context, []*models.WhaleTransaction) error { return nil }
func (f *fakeTxStore) Health(context.Context) error                                 { return nil }
func (f *fakeTxStore) Close() error                                                 { return nil }

func (f *fakeTxStore) BySymbolSince(context.Context, string, time.Time) ([]*models.WhaleTransaction, error) {
	return f.txs, f.err
}

func newTestScorer(t *testing.T, market *fakeMarket, txStore *fakeTxStore) *Scorer {
	t.Helper()
	cfg := testConfig(t)
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	det := detector.New(cfg, snapshot.NewStore(), logger.Nop(), nopMetrics{})
	analyzer := flow.NewAnalyzer(cfg, txStore, mem, logger.Nop(), nopMetrics{})
	return New(cfg, market, det, analyzer, logger.Nop(), nopMetrics{})
}

// accumulationPair yields two snapshots whose comparison produces a strong
// bullish accumulation pattern (flat price, +40% volume, strength 90).
func accumulationPair() []*models.TickerSnapshot {
	now := time.Now()
	return []*models.TickerSnapshot{
		{Symbol: "BTC", Price: 100, Volume24h: 100, Timestamp: now},
		{Symbol: "BTC", Price: 100.05, Volume24h: 140, Timestamp: now.Add(time.Minute)},
	}
}

func TestEvaluateRejectsWithoutPatterns(t *testing.T) {
	market := &fakeMarket{snaps: accumulationPair()[:1]}
	s := newTestScorer(t, market, &fakeTxStore{})

	eval, err := s.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)

	assert.True(t, eval.Rejected)
	assert.Equal(t, "no actionable pattern", eval.Reason)
}

func TestEvaluateAlignedFlowAddsFullBonus(t *testing.T) {
	market := &fakeMarket{snaps: accumulationPair()}
	// Heavy withdrawals: very bullish flow confirming the bullish patterns.
	txStore := &fakeTxStore{txs: []*models.WhaleTransaction{
		{Symbol: "BTC", AmountUSD: 30e6, Type: models.TxExchangeWithdrawal, Timestamp: time.Now()},
	}}
	s := newTestScorer(t, market, txStore)

	_, err := s.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	eval, err := s.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)

	require.False(t, eval.Rejected)
	assert.Equal(t, models.DirectionBuy, eval.Direction)
	// 90 pattern strength + 15 alignment bonus, clamped at 100.
	assert.InDelta(t, 100, eval.Confidence, 0.01)
	require.NotNil(t, eval.Flow)
	assert.Equal(t, models.SentimentVeryBullish, eval.Flow.Sentiment)
}

func TestEvaluateContradictingFlowSubtracts(t *testing.T) {
	market := &fakeMarket{snaps: accumulationPair()}
	// Heavy deposits read very bearish against the bullish patterns.
	txStore := &fakeTxStore{txs: []*models.WhaleTransaction{
		{Symbol: "BTC", AmountUSD: 30e6, Type: models.TxExchangeDeposit, Timestamp: time.Now()},
	}}
	s := newTestScorer(t, market, txStore)

	_, err := s.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	eval, err := s.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)

	require.False(t, eval.Rejected)
	assert.InDelta(t, 75, eval.Confidence, 0.01)
}

func TestEvaluateFlowFailureDegradesToPatternsOnly(t *testing.T) {
	market := &fakeMarket{snaps: accumulationPair()}
	txStore := &fakeTxStore{err: errors.New("clickhouse down")}
	s := newTestScorer(t, market, txStore)

	_, err := s.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	eval, err := s.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)

	require.False(t, eval.Rejected)
	assert.Nil(t, eval.Flow)
	assert.InDelta(t, 90, eval.Confidence, 0.01)
}

func TestEvaluateMarketError(t *testing.T) {
	market := &fakeMarket{}
	s := newTestScorer(t, market, &fakeTxStore{})

	_, err := s.Evaluate(context.Background(), "BTC")
	assert.Error(t, err)
}

func TestFlowAdjustment(t *testing.T) {
	const bonus = 15.0
	cases := []struct {
		bias      models.SignalBias
		sentiment models.FlowSentiment
		want      float64
	}{
		{models.BiasBullish, models.SentimentVeryBullish, bonus},
		{models.BiasBullish, models.SentimentBullish, bonus / 2},
		{models.BiasBullish, models.SentimentNeutral, 0},
		{models.BiasBullish, models.SentimentBearish, -bonus / 2},
		{models.BiasBullish, models.SentimentVeryBearish, -bonus},
		{models.BiasBearish, models.SentimentVeryBearish, bonus},
		{models.BiasBearish, models.SentimentBearish, bonus / 2},
		{models.BiasBearish, models.SentimentVeryBullish, -bonus},
	}
	for _, tc := range cases {
		got := flowAdjustment(tc.bias, tc.sentiment, bonus)
		assert.Equal(t, tc.want, got, "%s/%s", tc.bias, tc.sentiment)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 100.0, clamp(130))
	assert.Equal(t, 0.0, clamp(-5))
	assert.Equal(t, 42.0, clamp(42))
}
