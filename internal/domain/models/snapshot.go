package models

import "time"

// OrderBookDepth summarizes top-of-book liquidity on both sides.
type OrderBookDepth struct {
	BidDepth  float64
	AskDepth  float64
	Imbalance float64 // (bid-ask)/(bid+ask), in [-1,1]
}

// NewOrderBookDepth computes the imbalance for the given side depths.
// Zero depth on both sides yields a zero imbalance.
func NewOrderBookDepth(bid, ask float64) *OrderBookDepth {
	d := &OrderBookDepth{BidDepth: bid, AskDepth: ask}
	if total := bid + ask; total > 0 {
		d.Imbalance = (bid - ask) / total
	}
	return d
}

// TickerSnapshot is a point-in-time market record for one symbol.
// Optional enrichment fields are nil when the upstream feed did not carry them.
type TickerSnapshot struct {
	Symbol                 string
	Price                  float64
	Volume24h              float64
	Timestamp              time.Time
	Depth                  *OrderBookDepth
	FundingRate            *float64
	InstitutionalFlowRatio *float64
}

// PriceChangePct returns the percent price change from prev to s.
func (s *TickerSnapshot) PriceChangePct(prev *TickerSnapshot) float64 {
	if prev == nil || prev.Price == 0 {
		return 0
	}
	return (s.Price - prev.Price) / prev.Price * 100
}

// VolumeChangePct returns the percent 24h-volume change from prev to s.
func (s *TickerSnapshot) VolumeChangePct(prev *TickerSnapshot) float64 {
	if prev == nil || prev.Volume24h == 0 {
		return 0
	}
	return (s.Volume24h - prev.Volume24h) / prev.Volume24h * 100
}

// VelocityPctPerSec returns price change in percent per second between prev and s.
// Zero when the snapshots are not strictly ordered in time.
func (s *TickerSnapshot) VelocityPctPerSec(prev *TickerSnapshot) float64 {
	if prev == nil {
		return 0
	}
	elapsed := s.Timestamp.Sub(prev.Timestamp).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return s.PriceChangePct(prev) / elapsed
}
