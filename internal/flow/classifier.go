package flow

import (
	"ChainPulse/internal/domain/models"
	"ChainPulse/pkg/config"
)

// Classifier tags whale transactions with their direction relative to known
// exchange wallets and buckets them by USD size.
type Classifier struct {
	cfg *config.Config
	dir *ExchangeDirectory
}

func NewClassifier(cfg *config.Config, dir *ExchangeDirectory) *Classifier {
	return &Classifier{cfg: cfg, dir: dir}
}

// Classify resolves both parties against the exchange directory and derives
// the transaction type and significance in place.
//
// A transfer out of an exchange wallet is a withdrawal (supply leaving sell
// venues), into one a deposit (supply arriving at sell venues). Transfers
// between two exchanges carry no directional information and stay unknown.
func (c *Classifier) Classify(tx *models.WhaleTransaction) {
	tx.From = c.resolveParty(tx.Blockchain, tx.From)
	tx.To = c.resolveParty(tx.Blockchain, tx.To)

	fromExchange := tx.From.OwnerType == models.OwnerExchange
	toExchange := tx.To.OwnerType == models.OwnerExchange

	switch {
	case fromExchange && toExchange:
		tx.Type = models.TxUnknown
	case fromExchange:
		tx.Type = models.TxExchangeWithdrawal
	case toExchange:
		tx.Type = models.TxExchangeDeposit
	default:
		tx.Type = models.TxWhaleTransfer
	}

	tx.Significance = c.significance(tx.AmountUSD)
}

func (c *Classifier) resolveParty(blockchain string, p models.TxParty) models.TxParty {
	if label, ok := c.dir.Lookup(blockchain, p.Address); ok {
		p.OwnerType = models.OwnerExchange
		p.OwnerLabel = label
		return p
	}
	if p.OwnerType == "" {
		p.OwnerType = models.OwnerWhale
	}
	return p
}

func (c *Classifier) significance(usd float64) models.Significance {
	f := c.cfg.Flow
	switch {
	case usd >= f.CriticalUSD:
		return models.SignificanceCritical
	case usd >= f.HighUSD:
		return models.SignificanceHigh
	case usd >= f.MediumUSD:
		return models.SignificanceMedium
	default:
		return models.SignificanceLow
	}
}
