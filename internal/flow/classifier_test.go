package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChainPulse/internal/domain/models"
)

const (
	binanceETH = "0x28c6c06298d514db089934071355e5743bf21d60"
	kucoinETH  = "0x2b5634c42055806a59e9107ed44d43c426e58258"
	whaleAddr  = "0x1111111111111111111111111111111111111111"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	dir, err := NewExchangeDirectory("")
	require.NoError(t, err)
	return NewClassifier(testConfig(t), dir)
}

func whaleTx(from, to string, usd float64) *models.WhaleTransaction {
	return &models.WhaleTransaction{
		ID:         "tx-1",
		Blockchain: "ethereum",
		Symbol:     "ETH",
		AmountUSD:  usd,
		From:       models.TxParty{Address: from},
		To:         models.TxParty{Address: to},
	}
}

func TestClassifyDeposit(t *testing.T) {
	c := newTestClassifier(t)

	tx := whaleTx(whaleAddr, binanceETH, 12e6)
	c.Classify(tx)

	assert.Equal(t, models.TxExchangeDeposit, tx.Type)
	assert.Equal(t, models.OwnerWhale, tx.From.OwnerType)
	assert.Equal(t, models.OwnerExchange, tx.To.OwnerType)
	assert.Equal(t, "binance", tx.To.OwnerLabel)
}

func TestClassifyWithdrawal(t *testing.T) {
	c := newTestClassifier(t)

	tx := whaleTx(binanceETH, whaleAddr, 12e6)
	c.Classify(tx)

	assert.Equal(t, models.TxExchangeWithdrawal, tx.Type)
	assert.Equal(t, "binance", tx.From.OwnerLabel)
}

func TestClassifyExchangeToExchangeIsUnknown(t *testing.T) {
	c := newTestClassifier(t)

	tx := whaleTx(binanceETH, kucoinETH, 12e6)
	c.Classify(tx)

	assert.Equal(t, models.TxUnknown, tx.Type)
}

func TestClassifyWhaleToWhale(t *testing.T) {
	c := newTestClassifier(t)

	tx := whaleTx(whaleAddr, "0x2222222222222222222222222222222222222222", 12e6)
	c.Classify(tx)

	assert.Equal(t, models.TxWhaleTransfer, tx.Type)
	assert.Equal(t, models.OwnerWhale, tx.From.OwnerType)
	assert.Equal(t, models.OwnerWhale, tx.To.OwnerType)
}

func TestClassifyAddressLookupIsCaseInsensitive(t *testing.T) {
	c := newTestClassifier(t)

	tx := whaleTx(whaleAddr, "0x28C6C06298D514DB089934071355E5743BF21D60", 12e6)
	c.Classify(tx)

	assert.Equal(t, models.TxExchangeDeposit, tx.Type)
}

func TestClassifySignificanceBuckets(t *testing.T) {
	c := newTestClassifier(t)

	cases := []struct {
		usd  float64
		want models.Significance
	}{
		{60e6, models.SignificanceCritical},
		{50e6, models.SignificanceCritical},
		{20e6, models.SignificanceHigh},
		{6e6, models.SignificanceMedium},
		{1e6, models.SignificanceLow},
	}
	for _, tc := range cases {
		tx := whaleTx(whaleAddr, binanceETH, tc.usd)
		c.Classify(tx)
		assert.Equal(t, tc.want, tx.Significance, "usd=%v", tc.usd)
	}
}
