package scorer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-scan/internal/model"
)

func snapshot(similarity, top3Share, p25, p75 float64, distinctTypes int, avgIncludes float64) *model.SignalsResult {
	return &model.SignalsResult{
		Keyword:       "test keyword",
		ListingCount:  50,
		TitleSameness: model.TitleSameness{AverageSimilarity: similarity},
		Dominance:     model.Dominance{Top3SharePercent: top3Share},
		PriceBands:    model.PriceBands{P25: p25, P75: p75},
		FormatSignals: model.FormatSignals{DistinctTypeCount: distinctTypes},
		BundleDepth:   model.BundleDepth{AvgIncludesCount: avgIncludes},
	}
}

func TestScoreCandidate_OpenMarketScoresHigh(t *testing.T) {
	// Diverse titles, fragmented shops, wide price spread, many formats,
	// shallow bundles: ideal entry conditions.
	s := snapshot(0.1, 10, 5, 30, 6, 2)

	score := ScoreCandidate(s, DefaultWeights())

	assert.InDelta(t, 90, score.Subscores.TitleSameness, 0.001)
	assert.InDelta(t, 90, score.Subscores.Dominance, 0.001)
	assert.InDelta(t, 100, score.Subscores.PriceBands, 0.001)
	assert.InDelta(t, 75, score.Subscores.FormatDiversity, 0.001)
	assert.InDelta(t, 80, score.Subscores.BundleDepth, 0.001)
	assert.InDelta(t, 87, score.Composite, 0.001)
	assert.Equal(t, TierStrong, score.Tier)
	assert.Equal(t, "test keyword", score.Keyword)
	assert.Equal(t, 50, score.ListingCount)
}

func TestScoreCandidate_SaturatedMarketScoresLow(t *testing.T) {
	// Uniform titles, three shops own the results, flat prices, single
	// format, deep bundles.
	s := snapshot(0.95, 80, 10, 12, 1, 15)

	score := ScoreCandidate(s, DefaultWeights())

	assert.InDelta(t, 5, score.Subscores.TitleSameness, 0.001)
	assert.InDelta(t, 20, score.Subscores.Dominance, 0.001)
	assert.InDelta(t, 10, score.Subscores.PriceBands, 0.001)
	assert.InDelta(t, 12.5, score.Subscores.FormatDiversity, 0.001)
	assert.InDelta(t, 0, score.Subscores.BundleDepth, 0.001)
	assert.Equal(t, TierWeak, score.Tier)
	assert.Less(t, score.Composite, 40.0)
}

func TestScoreCandidate_SubscoresAreClamped(t *testing.T) {
	// Top-3 share over 100 and a giant price spread must not escape 0-100.
	s := snapshot(0, 120, 0, 500, 12, 0)

	score := ScoreCandidate(s, DefaultWeights())

	assert.Equal(t, 0.0, score.Subscores.Dominance)
	assert.Equal(t, 100.0, score.Subscores.PriceBands)
	assert.Equal(t, 100.0, score.Subscores.FormatDiversity)
	assert.LessOrEqual(t, score.Composite, 100.0)
	assert.GreaterOrEqual(t, score.Composite, 0.0)
}

func TestScoreCandidate_TierBoundaries(t *testing.T) {
	assert.Equal(t, TierStrong, tierFor(70))
	assert.Equal(t, TierModerate, tierFor(69.99))
	assert.Equal(t, TierModerate, tierFor(40))
	assert.Equal(t, TierWeak, tierFor(39.99))
}

func TestLoadSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seeds:\n  - wedding planner\n  - Budget Tracker\n"), 0o644))

	seeds, err := LoadSeeds(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"wedding planner", "Budget Tracker"}, seeds)
}

func TestLoadSeeds_EmptyFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seeds: []\n"), 0o644))

	_, err := LoadSeeds(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no seeds")
}

func TestExpandSeeds(t *testing.T) {
	out := ExpandSeeds([]string{"  Wedding   Planner "})

	require.Len(t, out, 20)
	assert.Equal(t, "wedding planner", out[0])
	assert.Contains(t, out, "wedding planner printable")
	assert.Contains(t, out, "printable wedding planner")
	assert.Contains(t, out, "canva wedding planner")
}

func TestExpandSeeds_Deduplicates(t *testing.T) {
	out := ExpandSeeds([]string{"budget", "Budget", "  budget "})
	assert.Len(t, out, 20)
}

func TestExpandSeeds_CapsTotal(t *testing.T) {
	seeds := make([]string, 50)
	for i := range seeds {
		seeds[i] = NormalizeKeyword("seed " + string(rune('a'+i%26)) + " " + string(rune('a'+i/26)))
	}
	out := ExpandSeeds(seeds)
	assert.LessOrEqual(t, len(out), seedExpansionCap)
}
