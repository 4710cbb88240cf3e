package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ChainPulse/internal/domain/models"
)

func TestComputeLevelsBuy(t *testing.T) {
	cfg := testConfig(t)
	sig := &models.Signal{Direction: models.DirectionBuy}

	computeLevels(cfg, sig, 200)

	assert.Equal(t, 200.0, sig.PriceAtCreation)
	assert.InDelta(t, 196, sig.EntryMin, 0.001)
	assert.InDelta(t, 204, sig.EntryMax, 0.001)
	assert.InDeltaSlice(t, []float64{210, 220, 230}, sig.Targets, 0.001)
	assert.InDelta(t, 190, sig.StopLoss, 0.001)
}

func TestComputeLevelsSell(t *testing.T) {
	cfg := testConfig(t)
	sig := &models.Signal{Direction: models.DirectionSell}

	computeLevels(cfg, sig, 200)

	// Targets step below the price, the stop sits above it; the entry band
	// is symmetric either way.
	assert.InDelta(t, 196, sig.EntryMin, 0.001)
	assert.InDelta(t, 204, sig.EntryMax, 0.001)
	assert.InDeltaSlice(t, []float64{190, 180, 170}, sig.Targets, 0.001)
	assert.InDelta(t, 210, sig.StopLoss, 0.001)
}

func TestRiskBands(t *testing.T) {
	cfg := testConfig(t)

	assert.Equal(t, models.RiskLow, riskFor(cfg, 95))
	assert.Equal(t, models.RiskLow, riskFor(cfg, 80))
	assert.Equal(t, models.RiskModerate, riskFor(cfg, 79.9))
	assert.Equal(t, models.RiskModerate, riskFor(cfg, 70))
	assert.Equal(t, models.RiskHigh, riskFor(cfg, 69.9))
	assert.Equal(t, models.RiskHigh, riskFor(cfg, 0))
}
