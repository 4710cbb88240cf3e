package repository

import (
	"context"
	"errors"
	"time"

	"ChainPulse/internal/domain/models"
)

// ErrActiveSignalExists is returned by Insert when an unexpired ACTIVE signal
// already exists for the symbol. A dedup check racing past the application
// layer must still hit this at the store.
var ErrActiveSignalExists = errors.New("active signal exists for symbol")

// ErrTerminalSignal is returned by UpdateStatus when the signal is already in
// a terminal state. This indicates a concurrency bug upstream.
var ErrTerminalSignal = errors.New("signal already terminal")

// ErrSignalNotFound is returned when a signal id does not exist.
var ErrSignalNotFound = errors.New("signal not found")

// SignalStore is the single persistence boundary for signals. Implementations
// must enforce at-most-one-ACTIVE-per-symbol.
type SignalStore interface {
	// Insert persists a new ACTIVE signal, failing with ErrActiveSignalExists
	// when an unexpired ACTIVE signal for the same symbol is present.
	Insert(ctx context.Context, sig *models.Signal) error
	// ActiveBySymbol returns the unexpired ACTIVE signal for symbol, or nil.
	ActiveBySymbol(ctx context.Context, symbol string) (*models.Signal, error)
	// Active returns all ACTIVE signals, expired ones included (the lifecycle
	// tracker owns moving those to EXPIRED).
	Active(ctx context.Context) ([]*models.Signal, error)
	// UpdateStatus transitions an ACTIVE signal to a terminal status.
	UpdateStatus(ctx context.Context, id string, to models.SignalStatus, exitPrice *float64, resolvedAt time.Time) error
	// Terminal returns signals resolved since the given time.
	Terminal(ctx context.Context, since time.Time) ([]*models.Signal, error)
	Health(ctx context.Context) error
	Close() error
}

// TransactionStore archives whale transactions and serves windowed queries.
type TransactionStore interface {
	Store(ctx context.Context, tx *models.WhaleTransaction) error
	StoreBatch(ctx context.Context, txs []*models.WhaleTransaction) error
	BySymbolSince(ctx context.Context, symbol string, since time.Time) ([]*models.WhaleTransaction, error)
	Health(ctx context.Context) error
	Close() error
}

// MarketData supplies current market state for scoring and lifecycle sweeps.
type MarketData interface {
	Snapshot(ctx context.Context, symbol string) (*models.TickerSnapshot, error)
	Price(ctx context.Context, symbol string) (float64, error)
}

// SnapshotStream is a push feed of enriched market snapshots.
type SnapshotStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.TickerSnapshot, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics is the observability sink shared by all pipeline components.
type Metrics interface {
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordPattern(family, bias string)
	RecordTransaction(txType string)
	RecordLastPrice(symbol string, price float64)
	RecordScanCycle(coinsScanned, signalsGenerated int)
	SetScanning(on bool)
	SetWinRate(pct float64)
}
