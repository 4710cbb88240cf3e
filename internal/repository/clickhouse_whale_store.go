package repository

import (
	"context"
	"fmt"
	"time"

	"ChainPulse/internal/domain/models"
	"ChainPulse/pkg/clickhouse"
	"ChainPulse/pkg/logger"
)

var whaleSchema = []string{
	`CREATE TABLE IF NOT EXISTS whale_transactions (
		id           String,
		hash         String,
		blockchain   LowCardinality(String),
		symbol       LowCardinality(String),
		amount       Float64,
		amount_usd   Float64,
		ts           DateTime64(3, 'UTC'),
		from_address String,
		from_label   LowCardinality(String),
		from_owner   LowCardinality(String),
		to_address   String,
		to_label     LowCardinality(String),
		to_owner     LowCardinality(String),
		tx_type      LowCardinality(String),
		significance LowCardinality(String)
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(ts)
	ORDER BY (symbol, ts)
	TTL toDateTime(ts) + INTERVAL 90 DAY`,
}

const whaleInsert = `INSERT INTO whale_transactions
	(id, hash, blockchain, symbol, amount, amount_usd, ts,
	 from_address, from_label, from_owner,
	 to_address, to_label, to_owner,
	 tx_type, significance)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

// ClickHouseWhaleStore archives classified whale transactions. The archive is
// append-only; flow summaries read it with windowed scans over (symbol, ts).
type ClickHouseWhaleStore struct {
	client *clickhouse.Client
	logger *logger.Logger
}

// NewClickHouseWhaleStore ensures the schema and returns the store.
func NewClickHouseWhaleStore(ctx context.Context, client *clickhouse.Client, log *logger.Logger) (*ClickHouseWhaleStore, error) {
	if err := client.InitSchema(ctx, whaleSchema); err != nil {
		return nil, err
	}
	return &ClickHouseWhaleStore{client: client, logger: log.With("whale_store")}, nil
}

func (s *ClickHouseWhaleStore) Store(ctx context.Context, tx *models.WhaleTransaction) error {
	_, err := s.client.DB().ExecContext(ctx, whaleInsert, txArgs(tx)...)
	if err != nil {
		return fmt.Errorf("store transaction: %w", err)
	}
	return nil
}

// StoreBatch inserts transactions in a single statement batch.
func (s *ClickHouseWhaleStore) StoreBatch(ctx context.Context, txs []*models.WhaleTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	dbTx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := dbTx.PrepareContext(ctx, whaleInsert)
	if err != nil {
		_ = dbTx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, tx := range txs {
		if _, err := stmt.ExecContext(ctx, txArgs(tx)...); err != nil {
			_ = dbTx.Rollback()
			return fmt.Errorf("exec batch: %w", err)
		}
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (s *ClickHouseWhaleStore) BySymbolSince(ctx context.Context, symbol string, since time.Time) ([]*models.WhaleTransaction, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT id, hash, blockchain, symbol, amount, amount_usd, ts,
		       from_address, from_label, from_owner,
		       to_address, to_label, to_owner,
		       tx_type, significance
		FROM whale_transactions
		WHERE symbol = ? AND ts >= ?
		ORDER BY ts`, symbol, since)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []*models.WhaleTransaction
	for rows.Next() {
		var tx models.WhaleTransaction
		if err := rows.Scan(
			&tx.ID, &tx.Hash, &tx.Blockchain, &tx.Symbol,
			&tx.Amount, &tx.AmountUSD, &tx.Timestamp,
			&tx.From.Address, &tx.From.OwnerLabel, &tx.From.OwnerType,
			&tx.To.Address, &tx.To.OwnerLabel, &tx.To.OwnerType,
			&tx.Type, &tx.Significance,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, &tx)
	}
	return out, rows.Err()
}

func (s *ClickHouseWhaleStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseWhaleStore) Close() error {
	return s.client.Close()
}

func txArgs(tx *models.WhaleTransaction) []any {
	return []any{
		tx.ID, tx.Hash, tx.Blockchain, tx.Symbol,
		tx.Amount, tx.AmountUSD, tx.Timestamp,
		tx.From.Address, tx.From.OwnerLabel, string(tx.From.OwnerType),
		tx.To.Address, tx.To.OwnerLabel, string(tx.To.OwnerType),
		string(tx.Type), string(tx.Significance),
	}
}
