package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/flow"
	"ChainPulse/pkg/config"
	pkgkafka "ChainPulse/pkg/kafka"
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

type capturingTxStore struct {
	stored []*models.WhaleTransaction
	err    error
}

func (c *capturingTxStore) Store(_ context.Context, tx *models.WhaleTransaction) error {
	if c.err != nil {
		return c.err
	}
	c.stored = append(c.stored, tx)
	return nil
}

func (c *capturingTxStore) StoreBatch(context.Context, []*models.WhaleTransaction) error { return nil }
func (c *capturingTxStore) Health(context.Context) error                                 { return nil }
func (c *capturingTxStore) Close() error                                                 { return nil }
func (c *capturingTxStore) BySymbolSince(context.Context, string, time.Time) ([]*models.WhaleTransaction, error) {
	return nil, nil
}

func newTestHandler(t *testing.T, store *capturingTxStore) *WhaleIngestHandler {
	t.Helper()
	cfg := &config.Config{}
	require.NoError(t, defaults.Set(cfg))

	dir, err := flow.NewExchangeDirectory("")
	require.NoError(t, err)
	classifier := flow.NewClassifier(cfg, dir)
	return NewWhaleIngestHandler(cfg, classifier, store, nil, logger.Nop(), nopMetrics{})
}

func TestHandleClassifiesAndStores(t *testing.T) {
	store := &capturingTxStore{}
	h := newTestHandler(t, store)

	msg := []byte(`{
		"id": "tx-1",
		"hash": "0xabc",
		"blockchain": "ethereum",
		"symbol": "ETH",
		"amount": 5000,
		"amount_usd": 12000000,
		"ts": 1730000000,
		"from": "0x1111111111111111111111111111111111111111",
		"to": "0x28c6c06298d514db089934071355e5743bf21d60"
	}`)

	require.NoError(t, h.Handle(context.Background(), msg))
	require.Len(t, store.stored, 1)

	tx := store.stored[0]
	assert.Equal(t, models.TxExchangeDeposit, tx.Type)
	assert.Equal(t, models.SignificanceHigh, tx.Significance)
	assert.Equal(t, "binance", tx.To.OwnerLabel)
	assert.Equal(t, int64(1730000000), tx.Timestamp.Unix())
}

func TestHandleNormalizesMillisecondTimestamps(t *testing.T) {
	store := &capturingTxStore{}
	h := newTestHandler(t, store)

	msg := []byte(`{"hash":"0xabc","blockchain":"ethereum","symbol":"ETH","amount_usd":6000000,"ts":1730000000000,"from":"a","to":"b"}`)

	require.NoError(t, h.Handle(context.Background(), msg))
	require.Len(t, store.stored, 1)
	assert.Equal(t, int64(1730000000), store.stored[0].Timestamp.Unix())
	// Missing id gets generated.
	assert.NotEmpty(t, store.stored[0].ID)
}

func TestHandleMalformedPayloadIsPermanent(t *testing.T) {
	h := newTestHandler(t, &capturingTxStore{})

	err := h.Handle(context.Background(), []byte("{not json"))
	require.Error(t, err)
	var perm *pkgkafka.PermanentError
	assert.ErrorAs(t, err, &perm)
}

func TestHandleInvalidPayloadIsPermanent(t *testing.T) {
	h := newTestHandler(t, &capturingTxStore{})

	// Valid JSON, missing hash and timestamp.
	err := h.Handle(context.Background(), []byte(`{"symbol":"ETH","blockchain":"ethereum","amount_usd":1}`))
	require.Error(t, err)
	var perm *pkgkafka.PermanentError
	assert.ErrorAs(t, err, &perm)
}

func TestHandleStoreFailureIsRetryable(t *testing.T) {
	store := &capturingTxStore{err: errors.New("clickhouse down")}
	h := newTestHandler(t, store)

	msg := []byte(`{"hash":"0xabc","blockchain":"ethereum","symbol":"ETH","amount_usd":6000000,"ts":1730000000,"from":"a","to":"b"}`)
	err := h.Handle(context.Background(), msg)
	require.Error(t, err)

	var perm *pkgkafka.PermanentError
	assert.False(t, errors.As(err, &perm))
}
