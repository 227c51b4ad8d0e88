package llm

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/market-scan/internal/model"
)

// MockGenerator derives a plausible brief directly from the signal
// snapshot without any network calls. Deterministic for a given input,
// so tests and offline development get stable output.
type MockGenerator struct {
	// Delay simulates provider latency. Zero means no delay.
	Delay time.Duration
}

func (m *MockGenerator) GenerateBrief(ctx context.Context, req Request) (*model.DifferentiationBrief, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s := req.Signals
	kw := s.Keyword
	bands := s.PriceBands
	formats := s.FormatSignals
	top3 := s.Dominance.Top3SharePercent
	similarity := s.TitleSameness.AverageSimilarity

	canvaPct := 0
	if s.ListingCount > 0 {
		canvaPct = int(math.Round(float64(formats.Canva) / float64(s.ListingCount) * 100))
	}

	phrases := s.TitleSameness.TopPhrases
	if len(phrases) > 3 {
		phrases = phrases[:3]
	}
	topPhrasesText := "common keyword phrases"
	if len(phrases) > 0 {
		quoted := make([]string, len(phrases))
		for i, p := range phrases {
			quoted[i] = fmt.Sprintf("%q", p.Phrase)
		}
		topPhrasesText = strings.Join(quoted, ", ")
	}

	brief := &model.DifferentiationBrief{
		Version:     model.BriefVersion,
		ScanID:      req.ScanID,
		Keyword:     kw,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		MarketStandard: model.MarketStandard{
			Summary: fmt.Sprintf(
				"The %q market shows %d active listings with a median price of $%g. The market is dominated by PDF and Canva-based templates with highly similar titles, indicating low differentiation among most sellers.",
				kw, s.ListingCount, bands.Median),
			TypicalFormats:    []string{"PDF", "Canva Template", "Instant Download"},
			TypicalPriceRange: fmt.Sprintf("$%g–$%g", bands.P25, bands.P75),
		},
		Differentiators: []model.Differentiator{
			{
				ID:               "D1",
				Claim:            fmt.Sprintf("%d%% of listings use Canva only — offering a Google Docs or Notion version captures buyers who don't have Canva Pro.", canvaPct),
				SupportingSignal: "formatSignals.canva",
				Evidence:         fmt.Sprintf("%d of %d listings are Canva-based (%d%%); Google Sheets count is %d.", formats.Canva, s.ListingCount, canvaPct, formats.GoogleSheets),
			},
			{
				ID:               "D2",
				Claim:            fmt.Sprintf("Top %g%% of listings are controlled by 3 shops — a fresh shop with a new visual identity has clear shelf space.", top3),
				SupportingSignal: "dominance.top3SharePercent",
				Evidence:         fmt.Sprintf("Top 3 shops hold %g%% of top %d results.", top3, s.ListingCount),
			},
			{
				ID:               "D3",
				Claim:            fmt.Sprintf("Title sameness score is %g — repeated phrases %s appear in most titles, meaning a distinctly framed listing title gets noticed.", similarity, topPhrasesText),
				SupportingSignal: "titleSameness.averageSimilarity",
				Evidence:         fmt.Sprintf("Average cosine similarity across titles is %g; top phrase count indicates saturation.", similarity),
			},
			{
				ID:               "D4",
				Claim:            fmt.Sprintf("Price band p25–p75 is $%g–$%g — a premium bundle priced above p75 is underrepresented and signals authority.", bands.P25, bands.P75),
				SupportingSignal: "priceBands.p75",
				Evidence:         fmt.Sprintf("75th percentile is $%g; only %d listings use bundle positioning.", bands.P75, formats.BundleKitSystem),
			},
			{
				ID:               "D5",
				Claim:            fmt.Sprintf("Only %d listings explicitly label \"Instant Download\" in titles despite offering it — adding this prominently reduces buyer hesitation.", formats.InstantDownload),
				SupportingSignal: "formatSignals.instantDownload",
				Evidence:         fmt.Sprintf("%d of %d listings use \"Instant Download\" in title/tags.", formats.InstantDownload, s.ListingCount),
			},
		},
		MissingFeatures: []model.MissingFeature{
			{
				Feature:          "Editable version in a non-Canva format (Google Docs, Word, or Notion)",
				Rationale:        fmt.Sprintf("With %d Canva listings, buyers without Canva Pro are underserved. A Google Docs version costs no extra effort to produce.", formats.Canva),
				SupportingSignal: "formatSignals.googleSheets",
			},
			{
				Feature:          "Video walkthrough or setup guide included",
				Rationale:        fmt.Sprintf("No listings in the observed %d signal a tutorial video. This reduces friction for first-time buyers and justifies a price premium.", s.ListingCount),
				SupportingSignal: "titleSameness.topPhrases",
			},
			{
				Feature:          "Seasonal or niche-specific variants (e.g., luxury cabin, urban apartment)",
				Rationale:        fmt.Sprintf("Top phrases show generic positioning. A niche variant (e.g., mountain cabin, pet-friendly) is absent from the %d observed titles.", s.ListingCount),
				SupportingSignal: "titleSameness.topPhrases",
			},
		},
		BuyerFrictions: frictionsFromReviews(req.ReviewsByListing),
		WinningBuildSpec: model.WinningBuildSpec{
			CoreProblemSolved: fmt.Sprintf("Buyers need a professional-looking %s that works in multiple editors, looks fresh, and installs in under 5 minutes.", kw),
			MustHaveFeatures: []string{
				"Available in Canva AND Google Docs (two separate files)",
				"Instant download with setup instructions PDF",
				"At least one niche-specific variant (e.g., luxury, pet-friendly)",
				"Video tutorial link included in delivery",
			},
			MustAvoid: []string{
				"Generic title mimicking top sellers",
				"Single-format delivery (Canva only)",
				"Pricing below median without a clear reason",
			},
		},
		PremiumLadder: []model.PremiumTier{
			{
				Tier:  "good",
				Label: "Single Template",
				Features: []string{
					"One editable Canva template",
					"PDF export included",
					"Instant download",
				},
				SuggestedPriceRange: fmt.Sprintf("$%d–$%d", round(bands.P25), round(bands.Median)),
			},
			{
				Tier:  "better",
				Label: "Dual-Format Pack",
				Features: []string{
					"Canva + Google Docs versions",
					"Two design variants",
					"Setup guide PDF",
					"Instant download",
				},
				SuggestedPriceRange: fmt.Sprintf("$%d–$%d", round(bands.Median), round(bands.P75)),
			},
			{
				Tier:  "best",
				Label: "Complete Host System",
				Features: []string{
					"Canva + Google Docs + Notion versions",
					"5+ design variants including niche styles",
					"Video walkthrough (Loom)",
					"House rules, check-in guide, local guide templates",
					"Lifetime updates",
				},
				SuggestedPriceRange: fmt.Sprintf("$%d–$%d", round(bands.P75), round(bands.Max)),
			},
		},
		ListingAngle: model.ListingAngle{
			Headline:    fmt.Sprintf("The %s that works in Canva AND Google Docs", kw),
			Subheadline: "Two formats, zero friction — set up in under 5 minutes",
			ImageCallouts: []string{
				"Works in Canva + Google Docs",
				"Instant Download | Setup Guide Included",
				"Editable in any device, no subscription needed",
				"5-minute setup with video walkthrough",
			},
		},
		RiskFlags: []model.RiskFlag{
			{
				Flag:       fmt.Sprintf("High title sameness (%g) — listing may be buried if title is generic", similarity),
				Severity:   severityByThreshold(similarity, 0.7, 0),
				Mitigation: "Use a distinctive title framing that avoids the top repeated phrases.",
			},
			{
				Flag:       fmt.Sprintf("Top 3 shops hold %g%% of results — new entrant needs strong visual differentiation", top3),
				Severity:   severityByThreshold(top3, 50, 30),
				Mitigation: "Invest in thumbnail design that visually differs from the dominant shops.",
			},
			{
				Flag:       fmt.Sprintf("Format diversity: %d distinct types found — multi-format listing is an opportunity", formats.DistinctTypeCount),
				Severity:   "green",
				Mitigation: "Offer at least 2 format types (e.g., Canva + Google Docs) to capture wider audience.",
			},
		},
	}
	return brief, nil
}

// frictionsFromReviews distils at most one friction per complaint theme
// from the supplied review texts. Theme matching is keyword-based; it is
// intentionally crude but gives the mock realistic shape when reviews
// are enabled.
func frictionsFromReviews(reviews map[int64][]string) []model.BuyerFriction {
	frictions := []model.BuyerFriction{}
	themes := []struct {
		friction string
		severity string
		keywords []string
	}{
		{"Buyers struggle with editing or customizing the template", "high", []string{"hard to edit", "couldn't edit", "confusing", "complicated"}},
		{"Delivery or download problems after purchase", "medium", []string{"download", "couldn't access", "never received"}},
		{"Product did not match the listing photos", "medium", []string{"looks different", "not as pictured", "misleading"}},
	}
	listingIDs := make([]int64, 0, len(reviews))
	for id := range reviews {
		listingIDs = append(listingIDs, id)
	}
	sort.Slice(listingIDs, func(i, j int) bool { return listingIDs[i] < listingIDs[j] })

	for _, theme := range themes {
		var sources []string
		for _, id := range listingIDs {
			for _, text := range reviews[id] {
				lower := strings.ToLower(text)
				for _, k := range theme.keywords {
					if strings.Contains(lower, k) {
						sources = append(sources, text)
					}
				}
			}
		}
		if len(sources) > 0 {
			if len(sources) > 3 {
				sources = sources[:3]
			}
			frictions = append(frictions, model.BuyerFriction{
				Friction:      theme.friction,
				Severity:      theme.severity,
				SourceReviews: sources,
			})
		}
	}
	return frictions
}

func severityByThreshold(value, red, yellow float64) string {
	switch {
	case value > red:
		return "red"
	case value > yellow:
		return "yellow"
	default:
		return "green"
	}
}

func round(v float64) int { return int(math.Round(v)) }
