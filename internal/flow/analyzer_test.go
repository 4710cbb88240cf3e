package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChainPulse/internal/domain/models"
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

type fakeTxStore struct {
	txs   []*models.WhaleTransaction
	err   error
	calls int
}

func (f *fakeTxStore) Store(context.Context, *models.WhaleTransaction) error        { return nil }
func (f *fakeTxStore) StoreBatch(context.Context, []*models.WhaleTransaction) error { return nil }
func (f *fakeTxStore) Health(context.Context) error                                 { return nil }
func (f *fakeTxStore) Close() error                                                 { return nil }

func (f *fakeTxStore) BySymbolSince(context.Context, string, time.Time) ([]*models.WhaleTransaction, error) {
	f.calls++
	return f.txs, f.err
}

func tx(txType models.TransactionType, usd float64) *models.WhaleTransaction {
	return &models.WhaleTransaction{
		ID:        "t",
		Symbol:    "BTC",
		AmountUSD: usd,
		Timestamp: time.Now(),
		Type:      txType,
	}
}

func newTestAnalyzer(t *testing.T, store *fakeTxStore) *Analyzer {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	return NewAnalyzer(testConfig(t), store, mem, logger.Nop(), nopMetrics{})
}

func TestSummaryDepositDominant(t *testing.T) {
	store := &fakeTxStore{txs: []*models.WhaleTransaction{
		tx(models.TxExchangeDeposit, 30e6),
		tx(models.TxExchangeWithdrawal, 10e6),
	}}
	a := newTestAnalyzer(t, store)

	s, err := a.Summary(context.Background(), "BTC", "24h")
	require.NoError(t, err)

	assert.Equal(t, 30e6, s.InflowUSD)
	assert.Equal(t, 10e6, s.OutflowUSD)
	assert.Equal(t, 20e6, s.NetFlowUSD)
	assert.InDelta(t, 0.5, s.FlowRatio(), 0.001)
	assert.Equal(t, models.FlowStrongDistribution, s.Interpretation)
	assert.Equal(t, models.SentimentVeryBearish, s.Sentiment)
	assert.Equal(t, 2, s.TransactionCount)
}

func TestSummaryWithdrawalDominant(t *testing.T) {
	store := &fakeTxStore{txs: []*models.WhaleTransaction{
		tx(models.TxExchangeWithdrawal, 30e6),
		tx(models.TxExchangeDeposit, 10e6),
	}}
	a := newTestAnalyzer(t, store)

	s, err := a.Summary(context.Background(), "BTC", "24h")
	require.NoError(t, err)

	assert.Equal(t, -20e6, s.NetFlowUSD)
	assert.Equal(t, models.FlowStrongAccumulation, s.Interpretation)
	assert.Equal(t, models.SentimentVeryBullish, s.Sentiment)
}

func TestSummaryLeanDistribution(t *testing.T) {
	store := &fakeTxStore{txs: []*models.WhaleTransaction{
		tx(models.TxExchangeDeposit, 12e6),
		tx(models.TxExchangeWithdrawal, 8e6),
	}}
	a := newTestAnalyzer(t, store)

	s, err := a.Summary(context.Background(), "BTC", "24h")
	require.NoError(t, err)

	// ratio 0.2: past the lean mark, short of the strong one.
	assert.Equal(t, models.FlowDistribution, s.Interpretation)
	assert.Equal(t, models.SentimentBearish, s.Sentiment)
}

func TestSummaryNonDirectionalFlowStaysNeutral(t *testing.T) {
	store := &fakeTxStore{txs: []*models.WhaleTransaction{
		tx(models.TxWhaleTransfer, 80e6),
		tx(models.TxUnknown, 60e6),
	}}
	a := newTestAnalyzer(t, store)

	s, err := a.Summary(context.Background(), "BTC", "24h")
	require.NoError(t, err)

	// Whale-to-whale and exchange-to-exchange moves count toward activity
	// but never toward direction.
	assert.Zero(t, s.InflowUSD)
	assert.Zero(t, s.OutflowUSD)
	assert.Zero(t, s.FlowRatio())
	assert.Equal(t, models.FlowNeutral, s.Interpretation)
	assert.Equal(t, models.SentimentNeutral, s.Sentiment)
	assert.Equal(t, 2, s.TransactionCount)
}

func TestInterpretationBoundariesAreExclusive(t *testing.T) {
	a := newTestAnalyzer(t, &fakeTxStore{})

	// A ratio sitting exactly on a threshold stays in the weaker bucket.
	cases := []struct {
		ratio     float64
		interp    models.FlowInterpretation
		sentiment models.FlowSentiment
	}{
		{-0.3, models.FlowAccumulation, models.SentimentBullish},
		{0.3, models.FlowDistribution, models.SentimentBearish},
		{-0.1, models.FlowNeutral, models.SentimentNeutral},
		{0.1, models.FlowNeutral, models.SentimentNeutral},
		{-0.4, models.FlowStrongAccumulation, models.SentimentBullish},
		{0.4, models.FlowStrongDistribution, models.SentimentBearish},
		{-0.15, models.FlowAccumulation, models.SentimentNeutral},
		{0.15, models.FlowDistribution, models.SentimentNeutral},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.interp, a.interpret(tc.ratio), "interpret(%v)", tc.ratio)
		assert.Equal(t, tc.sentiment, a.sentiment(tc.ratio), "sentiment(%v)", tc.ratio)
	}
}

func TestSummaryServedFromCache(t *testing.T) {
	store := &fakeTxStore{txs: []*models.WhaleTransaction{tx(models.TxExchangeDeposit, 10e6)}}
	a := newTestAnalyzer(t, store)

	_, err := a.Summary(context.Background(), "BTC", "24h")
	require.NoError(t, err)
	s, err := a.Summary(context.Background(), "BTC", "24h")
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, 10e6, s.InflowUSD)
}

func TestSummaryUnknownTimeframeFallsBack(t *testing.T) {
	store := &fakeTxStore{}
	a := newTestAnalyzer(t, store)

	s, err := a.Summary(context.Background(), "BTC", "banana")
	require.NoError(t, err)
	assert.Equal(t, "24h", s.Timeframe)
}

func TestSummaryStoreError(t *testing.T) {
	store := &fakeTxStore{err: errors.New("clickhouse down")}
	a := newTestAnalyzer(t, store)

	_, err := a.Summary(context.Background(), "BTC", "24h")
	assert.Error(t, err)
}
