package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
	"ChainPulse/pkg/config"
	"ChainPulse/pkg/logger"
)

const signalSchema = `
CREATE TABLE IF NOT EXISTS signals (
	id                UUID PRIMARY KEY,
	symbol            TEXT NOT NULL,
	direction         TEXT NOT NULL,
	confidence        DOUBLE PRECISION NOT NULL,
	entry_min         DOUBLE PRECISION NOT NULL,
	entry_max         DOUBLE PRECISION NOT NULL,
	price_at_creation DOUBLE PRECISION NOT NULL,
	stop_loss         DOUBLE PRECISION NOT NULL,
	targets           DOUBLE PRECISION[] NOT NULL,
	risk              TEXT NOT NULL,
	status            TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL,
	expires_at        TIMESTAMPTZ NOT NULL,
	resolved_at       TIMESTAMPTZ,
	exit_price        DOUBLE PRECISION
);
CREATE UNIQUE INDEX IF NOT EXISTS signals_one_active_per_symbol
	ON signals (symbol) WHERE status = 'ACTIVE';
CREATE INDEX IF NOT EXISTS signals_status_resolved_idx
	ON signals (status, resolved_at);
`

const signalColumns = `id, symbol, direction, confidence, entry_min, entry_max,
	price_at_creation, stop_loss, targets, risk, status,
	created_at, expires_at, resolved_at, exit_price`

// PostgresSignalStore persists signals in Postgres. The partial unique index
// on (symbol) WHERE status='ACTIVE' makes at-most-one-open-signal-per-symbol
// a database invariant, not just an application check.
type PostgresSignalStore struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgresSignalStore connects, pings and ensures the schema.
func NewPostgresSignalStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*PostgresSignalStore, error) {
	pg := cfg.Postgres
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pg.User, pg.Password, pg.Host, pg.Port, pg.Database, pg.SSLMode)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = pg.MaxConns
	poolCfg.ConnConfig.ConnectTimeout = pg.Timeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pg.Timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	if _, err := pool.Exec(ctx, signalSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("signal schema: %w", err)
	}

	return &PostgresSignalStore{pool: pool, logger: log.With("signal_store")}, nil
}

func (s *PostgresSignalStore) Insert(ctx context.Context, sig *models.Signal) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO signals (`+signalColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		sig.ID, sig.Symbol, sig.Direction, sig.Confidence,
		sig.EntryMin, sig.EntryMax, sig.PriceAtCreation, sig.StopLoss,
		sig.Targets, sig.Risk, sig.Status,
		sig.CreatedAt, sig.ExpiresAt, sig.ResolvedAt, sig.ExitPrice)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrActiveSignalExists
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (s *PostgresSignalStore) ActiveBySymbol(ctx context.Context, symbol string) (*models.Signal, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+signalColumns+`
		FROM signals WHERE symbol = $1 AND status = 'ACTIVE'`, symbol)

	sig, err := scanSignal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active by symbol: %w", err)
	}
	return sig, nil
}

func (s *PostgresSignalStore) Active(ctx context.Context) ([]*models.Signal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+signalColumns+`
		FROM signals WHERE status = 'ACTIVE' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query active: %w", err)
	}
	defer rows.Close()
	return collectSignals(rows)
}

// UpdateStatus transitions an ACTIVE signal to a terminal status. The WHERE
// clause on status makes the transition a compare-and-set: a signal already
// resolved by a concurrent sweep yields ErrTerminalSignal.
func (s *PostgresSignalStore) UpdateStatus(ctx context.Context, id string, to models.SignalStatus, exitPrice *float64, resolvedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE signals SET status = $2, exit_price = $3, resolved_at = $4
		WHERE id = $1 AND status = 'ACTIVE'`,
		id, to, exitPrice, resolvedAt)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM signals WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check signal: %w", err)
	}
	if exists {
		return repository.ErrTerminalSignal
	}
	return repository.ErrSignalNotFound
}

func (s *PostgresSignalStore) Terminal(ctx context.Context, since time.Time) ([]*models.Signal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+signalColumns+`
		FROM signals
		WHERE status <> 'ACTIVE' AND resolved_at >= $1
		ORDER BY resolved_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("query terminal: %w", err)
	}
	defer rows.Close()
	return collectSignals(rows)
}

func (s *PostgresSignalStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresSignalStore) Close() error {
	s.pool.Close()
	return nil
}

func scanSignal(row pgx.Row) (*models.Signal, error) {
	var sig models.Signal
	err := row.Scan(
		&sig.ID, &sig.Symbol, &sig.Direction, &sig.Confidence,
		&sig.EntryMin, &sig.EntryMax, &sig.PriceAtCreation, &sig.StopLoss,
		&sig.Targets, &sig.Risk, &sig.Status,
		&sig.CreatedAt, &sig.ExpiresAt, &sig.ResolvedAt, &sig.ExitPrice)
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func collectSignals(rows pgx.Rows) ([]*models.Signal, error) {
	var out []*models.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}
