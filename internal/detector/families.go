package detector

import (
	"fmt"
	"math"

	"ChainPulse/internal/domain/models"
)

// confluence fires when price change, volume change and velocity all clear
// their minima in the same direction. Base 50 plus additive bonuses.
func (d *Detector) confluence(cur *models.TickerSnapshot, del deltas) []models.Pattern {
	cfg := d.cfg.Detector

	var bias models.SignalBias
	switch {
	case del.pricePct > cfg.MinPriceChangePct &&
		del.volumePct > cfg.MinVolumeChangePct &&
		del.velocity > cfg.MinVelocityPctPerSec:
		bias = models.BiasBullish
	case del.pricePct < -cfg.MinPriceChangePct &&
		del.volumePct > cfg.MinVolumeChangePct &&
		del.velocity < -cfg.MinVelocityPctPerSec:
		bias = models.BiasBearish
	default:
		return nil
	}

	strength := 50.0
	components := []string{
		"price " + pct(del.pricePct),
		"volume " + pct(del.volumePct),
		fmt.Sprintf("velocity %+.2f%%/s", del.velocity),
	}
	if math.Abs(del.pricePct) > cfg.StrongPriceChangePct {
		strength += 15
		components = append(components, "strong price move")
	}
	if del.volumePct > cfg.StrongVolumeChangePct {
		strength += 15
		components = append(components, "strong volume expansion")
	}
	if math.Abs(del.velocity) > cfg.StrongVelocityPctPerSec {
		strength += 10
		components = append(components, "high velocity")
	}
	if del.hasDepth {
		agree := (bias == models.BiasBullish && del.imbalance > cfg.ImbalanceAgreement) ||
			(bias == models.BiasBearish && del.imbalance < -cfg.ImbalanceAgreement)
		if agree {
			strength += 10
			components = append(components, fmt.Sprintf("book imbalance %+.2f", del.imbalance))
		}
	}
	strength = clampStrength(strength)

	reason := "price, volume and velocity aligned bullish"
	if bias == models.BiasBearish {
		reason = "price, volume and velocity aligned bearish"
	}
	return []models.Pattern{{
		Type:       models.PatternConfluence,
		Signal:     bias,
		Strength:   strength,
		Confidence: strength,
		Components: components,
		Reasoning:  reason,
		Timestamp:  cur.Timestamp,
	}}
}

// divergence covers the three mismatch shapes: silent accumulation,
// low-volume distribution, and funding-rate divergence.
func (d *Detector) divergence(cur, prev *models.TickerSnapshot, del deltas) []models.Pattern {
	cfg := d.cfg.Detector
	var out []models.Pattern

	// Volume surging while price holds still reads as accumulation.
	if math.Abs(del.pricePct) < cfg.MinPriceChangePct && del.volumePct > cfg.AccumulationVolumePct {
		strength := clampStrength(70 + math.Min(del.volumePct/2, 30))
		out = append(out, models.Pattern{
			Type:       models.PatternDivergence,
			Signal:     models.BiasBullish,
			Strength:   strength,
			Confidence: strength,
			Components: []string{"price " + pct(del.pricePct), "volume " + pct(del.volumePct)},
			Reasoning:  "volume surge without price movement suggests accumulation",
			Timestamp:  cur.Timestamp,
		})
	}

	// Price grinding up on shrinking volume reads as distribution.
	if del.pricePct > cfg.DistributionPricePct && del.volumePct < cfg.DistributionVolumePct {
		out = append(out, models.Pattern{
			Type:       models.PatternDivergence,
			Signal:     models.BiasBearish,
			Strength:   70,
			Confidence: 70,
			Components: []string{"price " + pct(del.pricePct), "volume " + pct(del.volumePct)},
			Reasoning:  "price rising on falling volume suggests distribution",
			Timestamp:  cur.Timestamp,
		})
	}

	// Funding falling while price climbs traps shorts. Needs funding data on
	// both snapshots; absent fields just skip the family.
	if cur.FundingRate != nil && prev.FundingRate != nil {
		if del.pricePct > cfg.FundingDivergencePct && *cur.FundingRate < *prev.FundingRate {
			out = append(out, models.Pattern{
				Type:       models.PatternDivergence,
				Signal:     models.BiasBullish,
				Strength:   80,
				Confidence: 80,
				Components: []string{
					"price " + pct(del.pricePct),
					fmt.Sprintf("funding %.4f -> %.4f", *prev.FundingRate, *cur.FundingRate),
				},
				Reasoning: "price climbing while funding falls, shorts trapped",
				Timestamp: cur.Timestamp,
			})
		}
	}

	return out
}

// institutional reads smart-money evidence from the optional flow-ratio and
// order-book-depth fields.
func (d *Detector) institutional(cur, prev *models.TickerSnapshot, del deltas) []models.Pattern {
	cfg := d.cfg.Detector
	var out []models.Pattern

	if cur.InstitutionalFlowRatio != nil && prev.InstitutionalFlowRatio != nil && *prev.InstitutionalFlowRatio > 0 {
		ratio := *cur.InstitutionalFlowRatio
		deltaPct := (ratio - *prev.InstitutionalFlowRatio) / *prev.InstitutionalFlowRatio * 100

		switch {
		case ratio > cfg.InstitutionalHighRatio && deltaPct > cfg.InstitutionalDeltaPct:
			strength := clampStrength(75 + math.Min(deltaPct/4, 25))
			out = append(out, models.Pattern{
				Type:       models.PatternInstitutional,
				Signal:     models.BiasBullish,
				Strength:   strength,
				Confidence: strength,
				Components: []string{fmt.Sprintf("flow ratio %.2f", ratio), "ratio rising " + pct(deltaPct)},
				Reasoning:  "institutional flow ratio elevated and rising, accumulation",
				Timestamp:  cur.Timestamp,
			})
		case ratio < cfg.InstitutionalLowRatio && deltaPct < -cfg.InstitutionalDeltaPct:
			strength := clampStrength(75 + math.Min(-deltaPct/4, 25))
			out = append(out, models.Pattern{
				Type:       models.PatternInstitutional,
				Signal:     models.BiasBearish,
				Strength:   strength,
				Confidence: strength,
				Components: []string{fmt.Sprintf("flow ratio %.2f", ratio), "ratio falling " + pct(deltaPct)},
				Reasoning:  "institutional flow ratio depressed and falling, distribution",
				Timestamp:  cur.Timestamp,
			})
		}
	}

	// Extreme book imbalance stands on its own, scaled by magnitude.
	if del.hasDepth && math.Abs(del.imbalance) > cfg.ImbalanceExtreme {
		bias := models.BiasBullish
		if del.imbalance < 0 {
			bias = models.BiasBearish
		}
		span := 1 - cfg.ImbalanceExtreme
		strength := clampStrength(70 + (math.Abs(del.imbalance)-cfg.ImbalanceExtreme)/span*30)
		out = append(out, models.Pattern{
			Type:       models.PatternInstitutional,
			Signal:     bias,
			Strength:   strength,
			Confidence: strength,
			Components: []string{fmt.Sprintf("book imbalance %+.2f", del.imbalance)},
			Reasoning:  "order book heavily one-sided",
			Timestamp:  cur.Timestamp,
		})
	}

	return out
}

// momentum fires when the recent history is unanimously directional and the
// current velocity keeps pushing the same way.
func (d *Detector) momentum(symbol string, cur *models.TickerSnapshot, del deltas) []models.Pattern {
	cfg := d.cfg.Detector

	hist := d.recentHistory(symbol)
	if len(hist) < cfg.MomentumMinHistory {
		return nil
	}
	bias := hist[0].Signal
	if bias == models.BiasNeutral {
		return nil
	}
	for _, p := range hist {
		if p.Signal != bias {
			return nil
		}
	}

	accelerating := (bias == models.BiasBullish && del.velocity > cfg.MinVelocityPctPerSec) ||
		(bias == models.BiasBearish && del.velocity < -cfg.MinVelocityPctPerSec)
	if !accelerating {
		return nil
	}

	strength := clampStrength(75 + math.Min(math.Abs(del.velocity)*25, 25))
	return []models.Pattern{{
		Type:       models.PatternMomentum,
		Signal:     bias,
		Strength:   strength,
		Confidence: strength,
		Components: []string{
			fmt.Sprintf("%d consecutive %s patterns", len(hist), bias),
			fmt.Sprintf("velocity %+.2f%%/s", del.velocity),
		},
		Reasoning: "sustained one-sided history with accelerating velocity",
		Timestamp: cur.Timestamp,
	}}
}
