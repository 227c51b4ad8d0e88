package signals

import "math"

// Percentile computes the p-th percentile of an ascending-sorted slice
// using linear interpolation between order statistics.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	index := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	frac := index - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums))
}

// Round rounds to the given number of decimal places.
func Round(n float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(n*factor) / factor
}
