package models

import "time"

// FlowInterpretation reads net exchange flow as accumulation or distribution.
type FlowInterpretation string

const (
	FlowStrongAccumulation  FlowInterpretation = "strong_accumulation"
	FlowAccumulation        FlowInterpretation = "accumulation"
	FlowNeutral             FlowInterpretation = "neutral"
	FlowDistribution        FlowInterpretation = "distribution"
	FlowStrongDistribution  FlowInterpretation = "strong_distribution"
)

// FlowSentiment maps flow onto a five-point market-direction scale.
// Deliberately the mirror image of interpretation: coins moving onto
// exchanges precede selling, so heavy inflow reads bearish.
type FlowSentiment string

const (
	SentimentVeryBullish FlowSentiment = "very_bullish"
	SentimentBullish     FlowSentiment = "bullish"
	SentimentNeutral     FlowSentiment = "neutral"
	SentimentBearish     FlowSentiment = "bearish"
	SentimentVeryBearish FlowSentiment = "very_bearish"
)

// FlowSummary aggregates exchange deposit/withdrawal activity for a symbol
// over a time window. Recomputed on demand, cached with a short TTL.
type FlowSummary struct {
	Symbol           string
	Timeframe        string
	InflowUSD        float64
	OutflowUSD       float64
	NetFlowUSD       float64
	TransactionCount int
	Interpretation   FlowInterpretation
	Sentiment        FlowSentiment
	ComputedAt       time.Time
}

// FlowRatio is netFlow normalized by total flow, in [-1,1].
// Zero when there was no exchange-directed flow at all.
func (f *FlowSummary) FlowRatio() float64 {
	total := f.InflowUSD + f.OutflowUSD
	if total == 0 {
		return 0
	}
	return f.NetFlowUSD / total
}
