package detector

import (
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/snapshot"
	"ChainPulse/pkg/config"
	"ChainPulse/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) RecordPattern(string, string)  {}
func (nopMetrics) RecordTransaction(string)      {}
func (nopMetrics) RecordLastPrice(string, float64) {
}
func (nopMetrics) RecordScanCycle(int, int) {}
func (nopMetrics) SetScanning(bool)         {}
func (nopMetrics) SetWinRate(float64)       {}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	require.NoError(t, defaults.Set(cfg))
	return cfg
}

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	return New(testConfig(t), snapshot.NewStore(), logger.Nop(), nopMetrics{})
}

func snap(symbol string, price, volume float64, ts time.Time) *models.TickerSnapshot {
	return &models.TickerSnapshot{Symbol: symbol, Price: price, Volume24h: volume, Timestamp: ts}
}

func TestDetectFirstSnapshotIsNeutral(t *testing.T) {
	d := newTestDetector(t)

	res := d.Detect("BTC", snap("BTC", 50000, 1e9, time.Now()))

	assert.Empty(t, res.Patterns)
	assert.Equal(t, models.BiasNeutral, res.OverallSignal)
	assert.False(t, res.ShouldTrigger)
}

func TestDetectOutOfOrderSnapshotDropped(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()

	d.Detect("BTC", snap("BTC", 50000, 1e9, now))
	res := d.Detect("BTC", snap("BTC", 60000, 2e9, now.Add(-time.Minute)))

	assert.Empty(t, res.Patterns)
	assert.Equal(t, models.BiasNeutral, res.OverallSignal)
	assert.False(t, res.ShouldTrigger)
}

func TestConfluenceBullish(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()

	d.Detect("BTC", snap("BTC", 100, 100, now))
	// +0.6% price in one second on +60% volume: all three minima cleared,
	// plus the strong-move bonuses.
	res := d.Detect("BTC", snap("BTC", 100.6, 160, now.Add(time.Second)))

	require.Len(t, res.Patterns, 1)
	p := res.Patterns[0]
	assert.Equal(t, models.PatternConfluence, p.Type)
	assert.Equal(t, models.BiasBullish, p.Signal)
	assert.InDelta(t, 90, p.Strength, 0.5)
	assert.Equal(t, models.BiasBullish, res.OverallSignal)
	assert.True(t, res.ShouldTrigger)
}

func TestConfluenceBearish(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()

	d.Detect("ETH", snap("ETH", 100, 100, now))
	res := d.Detect("ETH", snap("ETH", 99.4, 160, now.Add(time.Second)))

	require.Len(t, res.Patterns, 1)
	assert.Equal(t, models.PatternConfluence, res.Patterns[0].Type)
	assert.Equal(t, models.BiasBearish, res.OverallSignal)
}

func TestWeakConfluenceFilteredByThreshold(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()

	d.Detect("BTC", snap("BTC", 100, 100, now))
	// Clears the minima with nothing to spare: base strength 50 stays below
	// the 70 post-filter.
	res := d.Detect("BTC", snap("BTC", 100.15, 125, now.Add(400*time.Millisecond)))

	assert.Empty(t, res.Patterns)
	assert.Equal(t, models.BiasNeutral, res.OverallSignal)
	assert.False(t, res.ShouldTrigger)
}

func TestAccumulationDivergence(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()

	d.Detect("SOL", snap("SOL", 100, 100, now))
	// Volume up 40% while price barely moves.
	res := d.Detect("SOL", snap("SOL", 100.05, 140, now.Add(time.Minute)))

	require.Len(t, res.Patterns, 1)
	p := res.Patterns[0]
	assert.Equal(t, models.PatternDivergence, p.Type)
	assert.Equal(t, models.BiasBullish, p.Signal)
	assert.InDelta(t, 90, p.Strength, 0.5)
}

func TestDistributionDivergence(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()

	d.Detect("ADA", snap("ADA", 100, 100, now))
	// Price grinds up while volume contracts.
	res := d.Detect("ADA", snap("ADA", 100.2, 85, now.Add(time.Minute)))

	require.Len(t, res.Patterns, 1)
	p := res.Patterns[0]
	assert.Equal(t, models.PatternDivergence, p.Type)
	assert.Equal(t, models.BiasBearish, p.Signal)
	assert.InDelta(t, 70, p.Strength, 0.01)
}

func TestFundingDivergence(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()

	prevFunding, curFunding := 0.01, 0.004
	s1 := snap("BTC", 100, 100, now)
	s1.FundingRate = &prevFunding
	s2 := snap("BTC", 100.3, 100, now.Add(2*time.Minute))
	s2.FundingRate = &curFunding

	d.Detect("BTC", s1)
	res := d.Detect("BTC", s2)

	require.Len(t, res.Patterns, 1)
	p := res.Patterns[0]
	assert.Equal(t, models.PatternDivergence, p.Type)
	assert.Equal(t, models.BiasBullish, p.Signal)
	assert.InDelta(t, 80, p.Strength, 0.01)
}

func TestInstitutionalFlowRatioRising(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()

	prevRatio, curRatio := 1.0, 1.4
	s1 := snap("ETH", 100, 100, now)
	s1.InstitutionalFlowRatio = &prevRatio
	s2 := snap("ETH", 100.05, 100, now.Add(time.Minute))
	s2.InstitutionalFlowRatio = &curRatio

	d.Detect("ETH", s1)
	res := d.Detect("ETH", s2)

	require.Len(t, res.Patterns, 1)
	p := res.Patterns[0]
	assert.Equal(t, models.PatternInstitutional, p.Type)
	assert.Equal(t, models.BiasBullish, p.Signal)
	// 75 + min(40/4, 25)
	assert.InDelta(t, 85, p.Strength, 0.5)
}

func TestInstitutionalExtremeImbalance(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()

	d.Detect("BNB", snap("BNB", 100, 100, now))
	s := snap("BNB", 100.05, 100, now.Add(time.Minute))
	s.Depth = models.NewOrderBookDepth(85, 15) // imbalance +0.7
	res := d.Detect("BNB", s)

	require.Len(t, res.Patterns, 1)
	p := res.Patterns[0]
	assert.Equal(t, models.PatternInstitutional, p.Type)
	assert.Equal(t, models.BiasBullish, p.Signal)
	assert.InDelta(t, 85, p.Strength, 0.5)
}

func TestMomentumRequiresUnanimousHistory(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()
	vol := 100.0

	// Three accumulation detections seed a unanimous bullish history.
	d.Detect("BTC", snap("BTC", 100, vol, now))
	for i := 1; i <= 3; i++ {
		vol *= 1.4
		res := d.Detect("BTC", snap("BTC", 100, vol, now.Add(time.Duration(i)*time.Minute)))
		require.Len(t, res.Patterns, 1)
	}
	require.Equal(t, 3, d.HistoryLen("BTC"))

	// A fast upward push with flat volume fires only the momentum family.
	res := d.Detect("BTC", snap("BTC", 100.6, vol*1.05, now.Add(3*time.Minute+time.Second)))

	require.Len(t, res.Patterns, 1)
	p := res.Patterns[0]
	assert.Equal(t, models.PatternMomentum, p.Type)
	assert.Equal(t, models.BiasBullish, p.Signal)
	assert.GreaterOrEqual(t, p.Strength, 75.0)
}

func TestHistoryIsBounded(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()
	vol := 100.0

	d.Detect("BTC", snap("BTC", 100, vol, now))
	for i := 1; i <= 20; i++ {
		vol *= 1.4
		d.Detect("BTC", snap("BTC", 100, vol, now.Add(time.Duration(i)*time.Minute)))
	}

	assert.LessOrEqual(t, d.HistoryLen("BTC"), d.cfg.Detector.HistorySize)
}

func TestAggregateMixedSignalsStayNeutral(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()

	res := d.aggregate("BTC", now, []models.Pattern{
		{Type: models.PatternConfluence, Signal: models.BiasBullish, Strength: 80, Timestamp: now},
		{Type: models.PatternDivergence, Signal: models.BiasBearish, Strength: 75, Timestamp: now},
	})

	// Neither side clears the dominance factor; strength still averages high.
	assert.Equal(t, models.BiasNeutral, res.OverallSignal)
	assert.InDelta(t, 77.5, res.OverallStrength, 0.01)
	assert.True(t, res.ShouldTrigger)
	require.NotNil(t, res.Strongest)
	assert.Equal(t, models.PatternConfluence, res.Strongest.Type)
}

func TestAggregateBullishDominance(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()

	res := d.aggregate("BTC", now, []models.Pattern{
		{Type: models.PatternConfluence, Signal: models.BiasBullish, Strength: 90, Timestamp: now},
		{Type: models.PatternDivergence, Signal: models.BiasBullish, Strength: 80, Timestamp: now},
		{Type: models.PatternInstitutional, Signal: models.BiasBearish, Strength: 72, Timestamp: now},
	})

	assert.Equal(t, models.BiasBullish, res.OverallSignal)
	assert.True(t, res.ShouldTrigger)
}
