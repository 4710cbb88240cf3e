// Package snapshot holds the most recent market snapshot pair per symbol.
package snapshot

import (
	"sync"

	"ChainPulse/internal/domain/models"
)

// Pair is the current snapshot and the one immediately preceding it.
// Previous is nil until a symbol has been observed twice.
type Pair struct {
	Current  *models.TickerSnapshot
	Previous *models.TickerSnapshot
}

// Store is a two-slot ring per symbol. Writes rotate current into previous;
// per-symbol last-writer-wins is sufficient for the single-detector topology.
type Store struct {
	mu sync.RWMutex
	m  map[string]Pair
}

func NewStore() *Store {
	return &Store{m: make(map[string]Pair)}
}

// Update rotates the slots for snap's symbol and returns the resulting pair.
// A snapshot older than the stored current violates the per-symbol timestamp
// monotonicity invariant and is dropped; the stored pair is returned with
// ok=false.
func (s *Store) Update(snap *models.TickerSnapshot) (Pair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.m[snap.Symbol]
	if prev.Current != nil && snap.Timestamp.Before(prev.Current.Timestamp) {
		return prev, false
	}
	next := Pair{Current: snap, Previous: prev.Current}
	s.m[snap.Symbol] = next
	return next, true
}

// Pair returns the stored pair for symbol.
func (s *Store) Pair(symbol string) (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[symbol]
	return p, ok
}

// Latest returns the current snapshot for symbol, or nil.
func (s *Store) Latest(symbol string) *models.TickerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[symbol].Current
}

// Symbols returns all symbols with at least one stored snapshot.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.m))
	for sym := range s.m {
		out = append(out, sym)
	}
	return out
}
