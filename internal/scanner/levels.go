package scanner

import (
	"ChainPulse/internal/domain/models"
	"ChainPulse/pkg/config"
)

// computeLevels derives the entry band, profit targets and stop loss from the
// current price. Targets step away from price in the trade direction, the
// stop sits on the opposite side, and the entry band brackets price
// symmetrically.
func computeLevels(cfg *config.Config, sig *models.Signal, price float64) {
	sc := cfg.Scanner
	band := price * sc.EntryBandPct / 100

	sig.PriceAtCreation = price
	sig.EntryMin = price - band
	sig.EntryMax = price + band

	dir := 1.0
	if sig.Direction == models.DirectionSell {
		dir = -1.0
	}

	sig.Targets = make([]float64, len(sc.TargetsPct))
	for i, pct := range sc.TargetsPct {
		sig.Targets[i] = price * (1 + dir*pct/100)
	}
	sig.StopLoss = price * (1 - dir*sc.StopPct/100)
}

// riskFor buckets confidence into a risk band.
func riskFor(cfg *config.Config, confidence float64) models.RiskLevel {
	switch {
	case confidence >= cfg.Scanner.LowRiskMin:
		return models.RiskLow
	case confidence >= cfg.Scanner.ModRiskMin:
		return models.RiskModerate
	default:
		return models.RiskHigh
	}
}
