package models

import "time"

// OwnerType classifies a wallet address owner.
type OwnerType string

const (
	OwnerExchange OwnerType = "exchange"
	OwnerWhale    OwnerType = "whale"
	OwnerUnknown  OwnerType = "unknown"
)

// TransactionType is the derived direction of a large transfer.
type TransactionType string

const (
	TxExchangeDeposit    TransactionType = "exchange_deposit"
	TxExchangeWithdrawal TransactionType = "exchange_withdrawal"
	TxWhaleTransfer      TransactionType = "whale_transfer"
	TxUnknown            TransactionType = "unknown"
)

// Significance buckets a transaction by its USD size.
type Significance string

const (
	SignificanceCritical Significance = "critical"
	SignificanceHigh     Significance = "high"
	SignificanceMedium   Significance = "medium"
	SignificanceLow      Significance = "low"
)

// TxParty is one side of a whale transaction.
type TxParty struct {
	Address    string
	OwnerLabel string
	OwnerType  OwnerType
}

// WhaleTransaction is an ingested large on-chain transfer. Immutable.
type WhaleTransaction struct {
	ID           string
	Hash         string
	Blockchain   string
	Symbol       string
	Amount       float64
	AmountUSD    float64
	Timestamp    time.Time
	From         TxParty
	To           TxParty
	Type         TransactionType
	Significance Significance
}
