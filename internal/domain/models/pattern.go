package models

import "time"

// PatternType identifies one of the four detection families.
type PatternType string

const (
	PatternConfluence    PatternType = "CONFLUENCE"
	PatternDivergence    PatternType = "DIVERGENCE"
	PatternInstitutional PatternType = "INSTITUTIONAL"
	PatternMomentum      PatternType = "MOMENTUM"
)

// SignalBias is the directional read of a pattern or a whole evaluation.
type SignalBias string

const (
	BiasBullish SignalBias = "BULLISH"
	BiasBearish SignalBias = "BEARISH"
	BiasNeutral SignalBias = "NEUTRAL"
)

// Pattern is a scored piece of evidence derived from comparing two snapshots.
// Immutable once created.
type Pattern struct {
	Type       PatternType
	Signal     SignalBias
	Strength   float64 // 0..100
	Confidence float64 // 0..100
	Components []string
	Reasoning  string
	Timestamp  time.Time
}

// DetectionResult is the outcome of one snapshot-pair evaluation for a symbol.
type DetectionResult struct {
	Symbol          string
	Patterns        []Pattern
	Strongest       *Pattern
	OverallSignal   SignalBias
	OverallStrength float64
	ShouldTrigger   bool
	EvaluatedAt     time.Time
}
