package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"ChainPulse/internal/domain/models"
	"ChainPulse/internal/domain/repository"
)

// MemorySignalStore is an in-process SignalStore for development and tests.
// It enforces the same invariants as the Postgres store: one ACTIVE signal
// per symbol, terminal statuses immutable.
type MemorySignalStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.Signal
	activeB map[string]string // symbol -> active signal id
}

func NewMemorySignalStore() *MemorySignalStore {
	return &MemorySignalStore{
		byID:    make(map[string]*models.Signal),
		activeB: make(map[string]string),
	}
}

func (s *MemorySignalStore) Insert(_ context.Context, sig *models.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activeB[sig.Symbol]; ok {
		return repository.ErrActiveSignalExists
	}
	cp := *sig
	s.byID[sig.ID] = &cp
	s.activeB[sig.Symbol] = sig.ID
	return nil
}

func (s *MemorySignalStore) ActiveBySymbol(_ context.Context, symbol string) (*models.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.activeB[symbol]
	if !ok {
		return nil, nil
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemorySignalStore) Active(_ context.Context) ([]*models.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Signal, 0, len(s.activeB))
	for _, id := range s.activeB {
		cp := *s.byID[id]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemorySignalStore) UpdateStatus(_ context.Context, id string, to models.SignalStatus, exitPrice *float64, resolvedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, ok := s.byID[id]
	if !ok {
		return repository.ErrSignalNotFound
	}
	if sig.Status.Terminal() {
		return repository.ErrTerminalSignal
	}

	sig.Status = to
	sig.ExitPrice = exitPrice
	at := resolvedAt
	sig.ResolvedAt = &at
	delete(s.activeB, sig.Symbol)
	return nil
}

func (s *MemorySignalStore) Terminal(_ context.Context, since time.Time) ([]*models.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Signal
	for _, sig := range s.byID {
		if sig.Status.Terminal() && sig.ResolvedAt != nil && !sig.ResolvedAt.Before(since) {
			cp := *sig
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResolvedAt.After(*out[j].ResolvedAt) })
	return out, nil
}

func (s *MemorySignalStore) Health(context.Context) error { return nil }

func (s *MemorySignalStore) Close() error { return nil }
