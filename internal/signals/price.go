package signals

import (
	"fmt"
	"math"
	"sort"

	"github.com/sells-group/market-scan/internal/model"
)

// DefaultBucketWidth is the price bucket width in currency units.
const DefaultBucketWidth = 5.0

// boundaryEpsilon nudges the bucket ceiling so a price landing exactly on
// the max boundary still falls inside the last bucket.
const boundaryEpsilon = 1e-9

// ComputePriceBands builds the price distribution for a listing set:
// min/max/mean, interpolated percentiles, and fixed-width buckets from 0
// up past the maximum price. Empty input yields a zeroed result.
func ComputePriceBands(listings []model.Listing, bucketWidth float64) model.PriceBands {
	if len(listings) == 0 {
		return model.PriceBands{ModeBucket: "N/A", Buckets: []model.PriceBucket{}}
	}
	if bucketWidth <= 0 {
		bucketWidth = DefaultBucketWidth
	}

	prices := make([]float64, len(listings))
	for i, l := range listings {
		prices[i] = l.Price.Value()
	}
	sort.Float64s(prices)

	maxPrice := prices[len(prices)-1]
	bucketMax := math.Ceil((maxPrice+boundaryEpsilon)/bucketWidth) * bucketWidth

	var buckets []model.PriceBucket
	for start := 0.0; start < bucketMax; start += bucketWidth {
		end := start + bucketWidth
		count := 0
		for _, p := range prices {
			if p >= start && p < end {
				count++
			}
		}
		buckets = append(buckets, model.PriceBucket{
			Label: fmt.Sprintf("$%g–$%g", start, end),
			Min:   start,
			Max:   end,
			Count: count,
			Share: Round(float64(count)/float64(len(listings)), 3),
		})
	}

	mode := buckets[0]
	for _, b := range buckets[1:] {
		if b.Count > mode.Count {
			mode = b
		}
	}

	return model.PriceBands{
		Min:        Round(prices[0], 2),
		Max:        Round(maxPrice, 2),
		Median:     Round(Percentile(prices, 50), 2),
		P25:        Round(Percentile(prices, 25), 2),
		P75:        Round(Percentile(prices, 75), 2),
		Mean:       Round(Mean(prices), 2),
		ModeBucket: mode.Label,
		Buckets:    buckets,
	}
}
