package lifecycle

import (
	"context"
	"time"

	"ChainPulse/internal/domain/models"
)

// Stats aggregates terminal outcomes over the configured stats window.
// Expired signals count toward totals but not toward the win rate: a signal
// that never traded is not a loss.
func (t *Tracker) Stats(ctx context.Context) (*models.OutcomeStats, error) {
	since := time.Now().Add(-t.cfg.Lifecycle.StatsWindow)
	signals, err := t.store.Terminal(ctx, since)
	if err != nil {
		return nil, err
	}

	stats := &models.OutcomeStats{Total: len(signals)}
	var profitSum, lossSum float64

	for _, sig := range signals {
		switch sig.Status {
		case models.StatusSuccess:
			stats.Success++
			profitSum += sig.ProfitPct()
		case models.StatusFailed:
			stats.Failed++
			lossSum += sig.ProfitPct()
		case models.StatusExpired:
			stats.Expired++
		}
	}

	if decided := stats.Success + stats.Failed; decided > 0 {
		stats.WinRate = float64(stats.Success) / float64(decided) * 100
	}
	if stats.Success > 0 {
		stats.AvgProfitPct = profitSum / float64(stats.Success)
	}
	if stats.Failed > 0 {
		stats.AvgLossPct = lossSum / float64(stats.Failed)
	}
	return stats, nil
}
