package qa

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-scan/internal/model"
)

// cleanBrief returns a brief that passes every gate against testSignals().
func cleanBrief() *model.DifferentiationBrief {
	brief := &model.DifferentiationBrief{
		Version: model.BriefVersion,
		ScanID:  "scan-1",
		Keyword: "wedding planner printable",
		MarketStandard: model.MarketStandard{
			Summary:           "Median price sits at $12 across 50 listings with heavy PDF delivery.",
			TypicalFormats:    []string{"PDF", "Canva"},
			TypicalPriceRange: "$8–$18",
		},
		WinningBuildSpec: model.WinningBuildSpec{
			CoreProblemSolved: "Buyers need a planner that works without Canva Pro.",
			MustHaveFeatures:  []string{"Google Docs version"},
			MustAvoid:         []string{"Single-format delivery"},
		},
		ListingAngle: model.ListingAngle{
			Headline:    "Planner for couples who hate spreadsheets",
			Subheadline: "Editable in three tools",
		},
	}
	for i := 1; i <= 5; i++ {
		brief.Differentiators = append(brief.Differentiators, model.Differentiator{
			ID:               fmt.Sprintf("D%d", i),
			Claim:            fmt.Sprintf("Claim %d cites a measured concentration of 42 percent.", i),
			SupportingSignal: "dominance.top3SharePercent",
			Evidence:         "Top 3 shops hold 42% of sampled listings.",
		})
	}
	for i := 1; i <= 3; i++ {
		brief.MissingFeatures = append(brief.MissingFeatures, model.MissingFeature{
			Feature:          fmt.Sprintf("Feature %d", i),
			Rationale:        "Absent from every sampled title.",
			SupportingSignal: "titleSameness.topPhrases",
		})
	}
	return brief
}

func testSignals() *model.SignalsResult {
	return &model.SignalsResult{
		TitleSameness: model.TitleSameness{AverageSimilarity: 0.68},
		Dominance:     model.Dominance{Top3SharePercent: 42, IsConcentrated: true},
		ListingCount:  50,
		Keyword:       "wedding planner printable",
	}
}

func TestPipeline_CleanBriefPasses(t *testing.T) {
	result := NewPipeline().Run(cleanBrief(), testSignals(), 1)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Issues)
	assert.Equal(t, 1, result.Attempt)
	assert.False(t, result.CheckedAt.IsZero())
}

func TestPipeline_CompositionLaw(t *testing.T) {
	// passed is false iff at least one issue has error severity.
	brief := cleanBrief()
	brief.Differentiators[0].SupportingSignal = "nonexistent.field"

	result := NewPipeline().Run(brief, testSignals(), 1)
	assert.True(t, result.Passed, "warnings alone must not fail the brief")
	assert.NotEmpty(t, result.Issues)

	brief.ListingAngle.Headline = "An amazing planner"
	result = NewPipeline().Run(brief, testSignals(), 2)
	assert.False(t, result.Passed)
	assert.Equal(t, 2, result.Attempt)
}

func TestSpecificity_FourDifferentiatorsFail(t *testing.T) {
	brief := cleanBrief()
	brief.Differentiators = brief.Differentiators[:4]

	issues := SpecificityGate{}.Check(brief, testSignals())
	require.Len(t, issues, 1)
	assert.Equal(t, model.SeverityError, issues[0].Severity)
	assert.Equal(t, "differentiators", issues[0].Location)
}

func TestSpecificity_FivePass(t *testing.T) {
	assert.Empty(t, SpecificityGate{}.Check(cleanBrief(), testSignals()))
}

func TestSpecificity_TooFewMissingFeatures(t *testing.T) {
	brief := cleanBrief()
	brief.MissingFeatures = brief.MissingFeatures[:2]

	issues := SpecificityGate{}.Check(brief, testSignals())
	require.Len(t, issues, 1)
	assert.Equal(t, "missingFeatures", issues[0].Location)
}

func TestGenericPhrase_OneIssuePerField(t *testing.T) {
	brief := cleanBrief()
	brief.MarketStandard.Summary = "A unique and amazing one-of-a-kind market."

	issues := GenericPhraseGate{}.Check(brief, testSignals())
	require.Len(t, issues, 1)
	assert.Equal(t, model.SeverityError, issues[0].Severity)
	assert.Equal(t, "marketStandard.summary", issues[0].Location)
}

func TestGenericPhrase_CaseInsensitive(t *testing.T) {
	brief := cleanBrief()
	brief.ListingAngle.Headline = "Simply INCREDIBLE results"

	issues := GenericPhraseGate{}.Check(brief, testSignals())
	require.Len(t, issues, 1)
}

func TestForbiddenClaim_RevenueAssertion(t *testing.T) {
	brief := cleanBrief()
	brief.Differentiators[2].Evidence = "Top sellers earn $4000 monthly revenue from this niche."

	issues := ForbiddenClaimGate{}.Check(brief, testSignals())
	require.Len(t, issues, 1)
	assert.Equal(t, model.SeverityError, issues[0].Severity)
	assert.Equal(t, "differentiators[2].evidence", issues[0].Location)
}

func TestForbiddenClaim_SalesCount(t *testing.T) {
	brief := cleanBrief()
	brief.MarketStandard.Summary = "The leading shop recorded 1200 sales last quarter."

	issues := ForbiddenClaimGate{}.Check(brief, testSignals())
	require.Len(t, issues, 1)
}

func TestGrounding_NeverEmitsErrors(t *testing.T) {
	brief := cleanBrief()
	brief.Differentiators[0].SupportingSignal = "malformed"
	brief.Differentiators[1].SupportingSignal = "ghost.field"
	brief.Differentiators[2].SupportingSignal = "dominance.ghostSub"
	brief.Differentiators[3].SupportingSignal = "listingCount.sub"

	issues := GroundingGate{}.Check(brief, testSignals())
	require.Len(t, issues, 4)
	for _, issue := range issues {
		assert.Equal(t, model.SeverityWarning, issue.Severity)
	}
}

func TestGrounding_ResolvablePathClean(t *testing.T) {
	assert.Empty(t, GroundingGate{}.Check(cleanBrief(), testSignals()))
}

func TestEndToEnd_GroundedConcreteClaim(t *testing.T) {
	// A brief whose only differentiator cites dominance.top3SharePercent
	// with a concrete number passes style, grounding, and forbidden-claim
	// gates; it still fails specificity with fewer than 5 differentiators.
	brief := cleanBrief()
	brief.Differentiators = []model.Differentiator{{
		ID:               "D1",
		Claim:            "Top 3 shops hold 42% of listings; a new shop has clear shelf space.",
		SupportingSignal: "dominance.top3SharePercent",
		Evidence:         "dominance.top3SharePercent = 42",
	}}

	assert.Empty(t, GenericPhraseGate{}.Check(brief, testSignals()))
	assert.Empty(t, GroundingGate{}.Check(brief, testSignals()))
	assert.Empty(t, ForbiddenClaimGate{}.Check(brief, testSignals()))

	result := NewPipeline().Run(brief, testSignals(), 1)
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.ErrorCount())
}

func TestCollectStrings_PathsAndOrder(t *testing.T) {
	brief := &model.DifferentiationBrief{
		Keyword: "budget tracker",
		Differentiators: []model.Differentiator{
			{ID: "D1", Claim: "c1"},
			{ID: "D2", Claim: "c2"},
		},
	}
	fields := collectStrings(brief)

	paths := make(map[string]string, len(fields))
	for _, f := range fields {
		paths[f.Path] = f.Value
	}
	assert.Equal(t, "budget tracker", paths["keyword"])
	assert.Equal(t, "c1", paths["differentiators[0].claim"])
	assert.Equal(t, "c2", paths["differentiators[1].claim"])
}
