// Package scorer rates keyword candidates by market opportunity. Each
// subscore maps one signal onto 0-100 where higher means more room to
// differentiate; the composite is a weighted blend.
package scorer

import (
	"time"

	"github.com/sells-group/market-scan/internal/model"
)

// Weights blends the five subscores. They sum to 1.
type Weights struct {
	TitleSameness   float64 `json:"titleSameness"`
	Dominance       float64 `json:"dominance"`
	PriceBands      float64 `json:"priceBands"`
	FormatDiversity float64 `json:"formatDiversity"`
	BundleDepth     float64 `json:"bundleDepth"`
}

// DefaultWeights weighs all five signals equally.
func DefaultWeights() Weights {
	return Weights{
		TitleSameness:   0.2,
		Dominance:       0.2,
		PriceBands:      0.2,
		FormatDiversity: 0.2,
		BundleDepth:     0.2,
	}
}

// Tier buckets a composite score for quick triage.
type Tier string

const (
	TierStrong   Tier = "strong"   // composite >= 70
	TierModerate Tier = "moderate" // composite >= 40
	TierWeak     Tier = "weak"
)

// Subscores holds the per-signal components of a candidate score.
type Subscores struct {
	TitleSameness   float64 `json:"titleSamenessScore"`
	Dominance       float64 `json:"dominanceScore"`
	PriceBands      float64 `json:"priceBandsScore"`
	FormatDiversity float64 `json:"formatDiversityScore"`
	BundleDepth     float64 `json:"bundleDepthScore"`
}

// CandidateScore is the scored verdict for one keyword.
type CandidateScore struct {
	Keyword      string    `json:"keyword"`
	Composite    float64   `json:"composite"`
	Tier         Tier      `json:"tier"`
	Subscores    Subscores `json:"signals"`
	Weights      Weights   `json:"weights"`
	ListingCount int       `json:"listingCount"`
	ComputedAt   time.Time `json:"computedAt"`
}

const (
	// priceSpreadCeiling is the p75-p25 spread (in currency units) that
	// maps to a full 100 price-bands subscore.
	priceSpreadCeiling = 20.0
	// formatCategoryCount normalizes format diversity; one more than the
	// number of detected categories so a full sweep stays under 100.
	formatCategoryCount = 8.0

	strongThreshold   = 70.0
	moderateThreshold = 40.0
)

// ScoreCandidate derives a candidate score from a signal snapshot.
func ScoreCandidate(signals *model.SignalsResult, weights Weights) CandidateScore {
	sub := Subscores{
		TitleSameness:   clamp((1-signals.TitleSameness.AverageSimilarity)*100, 0, 100),
		Dominance:       clamp(100-signals.Dominance.Top3SharePercent, 0, 100),
		PriceBands:      clamp((signals.PriceBands.P75-signals.PriceBands.P25)/priceSpreadCeiling*100, 0, 100),
		FormatDiversity: clamp(float64(signals.FormatSignals.DistinctTypeCount)/formatCategoryCount*100, 0, 100),
		BundleDepth:     clamp(100-signals.BundleDepth.AvgIncludesCount*10, 0, 100),
	}

	composite := clamp(
		sub.TitleSameness*weights.TitleSameness+
			sub.Dominance*weights.Dominance+
			sub.PriceBands*weights.PriceBands+
			sub.FormatDiversity*weights.FormatDiversity+
			sub.BundleDepth*weights.BundleDepth,
		0, 100)

	return CandidateScore{
		Keyword:      signals.Keyword,
		Composite:    composite,
		Tier:         tierFor(composite),
		Subscores:    sub,
		Weights:      weights,
		ListingCount: signals.ListingCount,
		ComputedAt:   time.Now().UTC(),
	}
}

func tierFor(composite float64) Tier {
	switch {
	case composite >= strongThreshold:
		return TierStrong
	case composite >= moderateThreshold:
		return TierModerate
	default:
		return TierWeak
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
