package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChainPulse/internal/domain/models"
)

func resolve(t *testing.T, store interface {
	Insert(context.Context, *models.Signal) error
	UpdateStatus(context.Context, string, models.SignalStatus, *float64, time.Time) error
}, id, symbol string, to models.SignalStatus, exitPrice float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, buySignal(id, symbol, time.Hour)))
	var exit *float64
	if exitPrice > 0 {
		exit = &exitPrice
	}
	require.NoError(t, store.UpdateStatus(ctx, id, to, exit, time.Now()))
}

func TestStatsWinRateExcludesExpired(t *testing.T) {
	tr, store := newTestTracker(t, &fakeMarket{})

	// Creation price is 100 for every fixture, so exit prices map directly
	// to percent returns.
	resolve(t, store, "s1", "BTC", models.StatusSuccess, 106)
	resolve(t, store, "s2", "ETH", models.StatusSuccess, 110)
	resolve(t, store, "s3", "SOL", models.StatusFailed, 95)
	resolve(t, store, "s4", "ADA", models.StatusExpired, 0)

	stats, err := tr.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Success)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Expired)
	assert.InDelta(t, 66.67, stats.WinRate, 0.01)
	assert.InDelta(t, 8, stats.AvgProfitPct, 0.01)
	assert.InDelta(t, -5, stats.AvgLossPct, 0.01)
}

func TestStatsEmptyWindow(t *testing.T) {
	tr, _ := newTestTracker(t, &fakeMarket{})

	stats, err := tr.Stats(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.WinRate)
}
