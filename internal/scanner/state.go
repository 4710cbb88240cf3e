package scanner

import (
	"sync"
	"time"

	"ChainPulse/internal/domain/models"
)

// state tracks the orchestrator's in-flight guard and cycle statistics.
// TryBegin/End implement the in-process single-flight: at most one cycle runs
// at a time regardless of how it was triggered.
type state struct {
	mu               sync.Mutex
	scanning         bool
	lastScan         time.Time
	nextScan         time.Time
	coinsScanned     int
	signalsGenerated int64
}

func (s *state) TryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning {
		return false
	}
	s.scanning = true
	return true
}

func (s *state) End(coinsScanned int, newSignals int64, next time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanning = false
	s.lastScan = time.Now()
	s.nextScan = next
	s.coinsScanned = coinsScanned
	s.signalsGenerated += newSignals
}

func (s *state) Status() models.ScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.ScanStatus{
		IsScanning:       s.scanning,
		LastScanTime:     s.lastScan,
		NextScanTime:     s.nextScan,
		CoinsScanned:     s.coinsScanned,
		SignalsGenerated: s.signalsGenerated,
	}
}
