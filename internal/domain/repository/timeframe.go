package repository

import "time"

// Timeframe is a flow aggregation window.
type Timeframe string

const (
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF24h Timeframe = "24h"
	TF7d  Timeframe = "7d"
	TF30d Timeframe = "30d"
)

// IsValidTimeframe returns true if tf is a supported flow window.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1h, TF4h, TF24h, TF7d, TF30d:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default flow window.
func DefaultTimeframe() Timeframe { return TF24h }

// NormalizeTimeframe converts a raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Duration returns the wall-clock span of the window.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF24h:
		return 24 * time.Hour
	case TF7d:
		return 7 * 24 * time.Hour
	case TF30d:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
