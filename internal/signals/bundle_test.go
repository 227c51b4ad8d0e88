package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/market-scan/internal/model"
)

func TestBundleDepth_MatchesIncludesPattern(t *testing.T) {
	listings := []model.Listing{
		makeListing(1, "Planner bundle includes 12 templates"),
		makeListing(2, "Mega kit include 30 pages plus bonus"),
		makeListing(3, "Simple checklist no extras"),
	}
	result := ComputeBundleDepth(listings)

	assert.Equal(t, 21.0, result.AvgIncludesCount)
	assert.Equal(t, 30, result.MaxIncludesCount)
	assert.Equal(t, []string{"includes 12 templates", "include 30 pages"}, result.Examples)
}

func TestBundleDepth_CapsExamplesAtFive(t *testing.T) {
	var listings []model.Listing
	for i := range 8 {
		listings = append(listings, makeListing(int64(i), "Pack includes 3 items"))
	}
	result := ComputeBundleDepth(listings)
	assert.Len(t, result.Examples, 5)
	assert.Equal(t, 3.0, result.AvgIncludesCount)
}

func TestBundleDepth_AverageRoundedToOneDecimal(t *testing.T) {
	listings := []model.Listing{
		makeListing(1, "includes 1 page"),
		makeListing(2, "includes 2 pages"),
		makeListing(3, "includes 4 pages"),
	}
	result := ComputeBundleDepth(listings)
	assert.Equal(t, 2.3, result.AvgIncludesCount)
}

func TestBundleDepth_NoMatches(t *testing.T) {
	result := ComputeBundleDepth([]model.Listing{makeListing(1, "Plain planner")})
	assert.Zero(t, result.AvgIncludesCount)
	assert.Zero(t, result.MaxIncludesCount)
	assert.Empty(t, result.Examples)
}
