package models

import "time"

// ScanResult is the per-symbol outcome of one scan cycle.
type ScanResult struct {
	Symbol     string
	Confidence float64
	Direction  Direction
	Accepted   bool
	Reason     string  // populated for rejected/skipped symbols
	Signal     *Signal // non-nil only when a new signal was persisted
}

// ScanStatus is the observability surface of the orchestrator.
type ScanStatus struct {
	IsScanning       bool
	LastScanTime     time.Time
	NextScanTime     time.Time
	CoinsScanned     int
	SignalsGenerated int64
	WinRate          float64
}

// OutcomeStats aggregates terminal signal outcomes for confidence feedback.
type OutcomeStats struct {
	Total        int
	Success      int
	Failed       int
	Expired      int
	WinRate      float64 // success / (success+failed), percent
	AvgProfitPct float64 // mean profit of SUCCESS signals
	AvgLossPct   float64 // mean (negative) return of FAILED signals
}
