package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/flow"
	internalrepo "ChainPulse/internal/repository"
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

type fakeTxStore struct{}

func (fakeTxStore) Store(context.Context, *models.WhaleTransaction) error        { return nil }
func (fakeTxStore) StoreBatch(context.Context, []*models.WhaleTransaction) error { return nil }
func (fakeTxStore) Health(context.Context) error                                 { return nil }
func (fakeTxStore) Close() error                                                 { return nil }
func (fakeTxStore) BySymbolSince(context.Context, string, time.Time) ([]*models.WhaleTransaction, error) {
	return nil, nil
}

func newTestHandler(t *testing.T) (*Handler, *internalrepo.MemorySignalStore) {
	t.Helper()
	cfg := &config.Config{}
	require.NoError(t, defaults.Set(cfg))

	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	analyzer := flow.NewAnalyzer(cfg, fakeTxStore{}, mem, logger.Nop(), nopMetrics{})
	store := internalrepo.NewMemorySignalStore()
	return NewHandler(nil, nil, analyzer, store, nil, logger.Nop()), store
}

func flowContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/flow/:symbol")
	c.SetParamNames("symbol")
	c.SetParamValues("BTC")
	return c, rec
}

func TestFlowBySymbolDefaultsTimeframe(t *testing.T) {
	h, _ := newTestHandler(t)
	c, rec := flowContext("/api/flow/BTC")

	require.NoError(t, h.FlowBySymbol(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"timeframe":"24h"`)
}

func TestFlowBySymbolAcceptsSupportedTimeframe(t *testing.T) {
	h, _ := newTestHandler(t)
	c, rec := flowContext("/api/flow/BTC?timeframe=4h")

	require.NoError(t, h.FlowBySymbol(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"timeframe":"4h"`)
}

func TestFlowBySymbolRejectsUnknownTimeframe(t *testing.T) {
	h, _ := newTestHandler(t)
	c, rec := flowContext("/api/flow/BTC?timeframe=banana")

	require.NoError(t, h.FlowBySymbol(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Timeframe")
}

func resolvedSignal(t *testing.T, store *internalrepo.MemorySignalStore, symbol string, resolvedAt time.Time) {
	t.Helper()
	ctx := context.Background()
	id := "sig-" + symbol
	require.NoError(t, store.Insert(ctx, &models.Signal{
		ID:        id,
		Symbol:    symbol,
		Direction: models.DirectionBuy,
		Status:    models.StatusActive,
		CreatedAt: resolvedAt.Add(-time.Hour),
		ExpiresAt: resolvedAt.Add(3 * time.Hour),
	}))
	exit := 105.0
	require.NoError(t, store.UpdateStatus(ctx, id, models.StatusSuccess, &exit, resolvedAt))
}

func historyContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSignalHistoryHonorsSinceAndLimit(t *testing.T) {
	h, store := newTestHandler(t)
	now := time.Now()
	resolvedSignal(t, store, "BTC", now.Add(-10*time.Minute))
	resolvedSignal(t, store, "ETH", now.Add(-20*time.Minute))
	resolvedSignal(t, store, "SOL", now.Add(-48*time.Hour))

	// The stale SOL signal falls outside the since window.
	since := strconv.FormatInt(now.Add(-time.Hour).Unix(), 10)
	c, rec := historyContext("/api/signals/history?since=" + since)
	require.NoError(t, h.SignalHistory(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Rows  []json.RawMessage `json:"rows"`
			Total int64             `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Rows, 2)
	assert.EqualValues(t, 2, resp.Data.Total)

	// A limit smaller than the window keeps the total but trims the page.
	c, rec = historyContext(fmt.Sprintf("/api/signals/history?since=%s&limit=1", since))
	require.NoError(t, h.SignalHistory(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Rows, 1)
	assert.EqualValues(t, 2, resp.Data.Total)
	assert.Contains(t, string(resp.Data.Rows[0]), "BTC")
}

func TestSignalHistoryRejectsBadLimit(t *testing.T) {
	h, _ := newTestHandler(t)

	c, rec := historyContext("/api/signals/history?limit=-3")
	require.NoError(t, h.SignalHistory(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
