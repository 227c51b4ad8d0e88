package signals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-scan/internal/model"
)

func TestCompute_AssemblesFullSnapshot(t *testing.T) {
	listings := []model.Listing{
		taggedListing(1, "Editable Canva wedding planner includes 10 pages"),
		taggedListing(2, "Wedding planner printable PDF instant download"),
		taggedListing(3, "Wedding planner bundle Google Sheets"),
	}

	result, err := Compute(context.Background(), listings, "wedding planner", Options{BucketWidth: DefaultBucketWidth})
	require.NoError(t, err)

	assert.Equal(t, "wedding planner", result.Keyword)
	assert.Equal(t, 3, result.ListingCount)
	assert.False(t, result.ComputedAt.IsZero())
	assert.NotEmpty(t, result.PriceBands.Buckets)
	assert.Equal(t, 1, result.FormatSignals.Canva)
	assert.Equal(t, 10, result.BundleDepth.MaxIncludesCount)
	assert.NotEmpty(t, result.Dominance.TopShops)
}

func TestCompute_ZeroListings(t *testing.T) {
	result, err := Compute(context.Background(), nil, "empty niche", Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.ListingCount)
	assert.Zero(t, result.TitleSameness.AverageSimilarity)
	assert.Zero(t, result.Dominance.Top3SharePercent)
	assert.Zero(t, result.FormatSignals.DistinctTypeCount)
	assert.Zero(t, result.BundleDepth.MaxIncludesCount)
	assert.Equal(t, "N/A", result.PriceBands.ModeBucket)
}
