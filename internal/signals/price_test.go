package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/market-scan/internal/model"
)

func priceListing(id int64, dollars float64) model.Listing {
	return model.Listing{
		ListingID: id,
		ShopID:    1,
		Title:     "Test",
		Price:     model.Price{Amount: int64(dollars * 100), Divisor: 100, CurrencyCode: "USD"},
		State:     model.ListingStateActive,
	}
}

func TestPercentile_OddLength(t *testing.T) {
	assert.Equal(t, 5.0, Percentile([]float64{1, 3, 5, 7, 9}, 50))
}

func TestPercentile_EvenLengthInterpolates(t *testing.T) {
	assert.Equal(t, 5.0, Percentile([]float64{2, 4, 6, 8}, 50))
}

func TestPercentile_Empty(t *testing.T) {
	assert.Zero(t, Percentile(nil, 50))
}

func TestPriceBands_KnownQuartiles(t *testing.T) {
	var listings []model.Listing
	for i, p := range []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100} {
		listings = append(listings, priceListing(int64(i), p))
	}
	result := ComputePriceBands(listings, DefaultBucketWidth)
	assert.InDelta(t, 32.5, result.P25, 0.1)
	assert.InDelta(t, 77.5, result.P75, 0.1)
	assert.InDelta(t, 55.0, result.Median, 0.1)
}

func TestPriceBands_OrderingInvariant(t *testing.T) {
	cases := [][]float64{
		{5},
		{5, 5, 5, 5},
		{1, 2, 3, 4, 100},
		{9.99, 24.5, 3, 17, 42, 8},
	}
	for _, prices := range cases {
		var listings []model.Listing
		for i, p := range prices {
			listings = append(listings, priceListing(int64(i), p))
		}
		result := ComputePriceBands(listings, DefaultBucketWidth)
		assert.LessOrEqual(t, result.P25, result.Median, "prices %v", prices)
		assert.LessOrEqual(t, result.Median, result.P75, "prices %v", prices)
	}
}

func TestPriceBands_SingleListing(t *testing.T) {
	result := ComputePriceBands([]model.Listing{priceListing(1, 25)}, DefaultBucketWidth)
	assert.Equal(t, 25.0, result.Min)
	assert.Equal(t, 25.0, result.Max)
	assert.Equal(t, 25.0, result.P25)
	assert.Equal(t, 25.0, result.Median)
	assert.Equal(t, 25.0, result.P75)
}

func TestPriceBands_ModeBucket(t *testing.T) {
	var listings []model.Listing
	var id int64
	add := func(n int, price float64) {
		for range n {
			id++
			listings = append(listings, priceListing(id, price))
		}
	}
	add(5, 7)
	add(3, 15)
	add(2, 25)

	result := ComputePriceBands(listings, DefaultBucketWidth)
	assert.Equal(t, "$5–$10", result.ModeBucket)
}

func TestPriceBands_BucketSharesSumToOne(t *testing.T) {
	var listings []model.Listing
	for i, p := range []float64{3.5, 7, 12.99, 25, 25, 38, 61.25} {
		listings = append(listings, priceListing(int64(i), p))
	}
	result := ComputePriceBands(listings, DefaultBucketWidth)

	total := 0.0
	for _, b := range result.Buckets {
		total += b.Share
	}
	assert.InDelta(t, 1.0, total, 0.01)
}

func TestPriceBands_BoundaryPriceFallsInsideBuckets(t *testing.T) {
	// A price exactly on a bucket boundary must still be counted.
	result := ComputePriceBands([]model.Listing{priceListing(1, 25)}, DefaultBucketWidth)

	counted := 0
	for _, b := range result.Buckets {
		counted += b.Count
	}
	assert.Equal(t, 1, counted)
}

func TestPriceBands_Empty(t *testing.T) {
	result := ComputePriceBands(nil, DefaultBucketWidth)
	assert.Equal(t, "N/A", result.ModeBucket)
	assert.Empty(t, result.Buckets)
	assert.Zero(t, result.Median)
}
