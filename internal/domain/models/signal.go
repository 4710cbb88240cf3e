package models

import "time"

// Direction is the side of a trade recommendation.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// RiskLevel buckets a signal by its confidence band.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
)

// SignalStatus is the lifecycle state of a signal.
type SignalStatus string

const (
	StatusActive  SignalStatus = "ACTIVE"
	StatusSuccess SignalStatus = "SUCCESS"
	StatusFailed  SignalStatus = "FAILED"
	StatusExpired SignalStatus = "EXPIRED"
)

// Terminal reports whether the status admits no further transitions.
func (s SignalStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusExpired
}

// Signal is a persisted, actionable trade recommendation. Created by the scan
// orchestrator; only the lifecycle tracker mutates its status afterwards.
type Signal struct {
	ID              string
	Symbol          string
	Direction       Direction
	Confidence      float64
	EntryMin        float64
	EntryMax        float64
	PriceAtCreation float64
	StopLoss        float64
	Targets         []float64 // 1..3, ordered away from entry
	Risk            RiskLevel
	Status          SignalStatus
	CreatedAt       time.Time
	ExpiresAt       time.Time
	ResolvedAt      *time.Time
	ExitPrice       *float64
}

// Expired reports whether the signal's validity window has passed.
func (s *Signal) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ProfitPct returns the signed percent move from creation price to exit.
// Zero when the signal has not resolved with an exit price.
func (s *Signal) ProfitPct() float64 {
	if s.ExitPrice == nil || s.PriceAtCreation == 0 {
		return 0
	}
	pct := (*s.ExitPrice - s.PriceAtCreation) / s.PriceAtCreation * 100
	if s.Direction == DirectionSell {
		pct = -pct
	}
	return pct
}
