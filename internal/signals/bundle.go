package signals

import (
	"regexp"
	"strconv"

	"github.com/sells-group/market-scan/internal/model"
)

var includesPattern = regexp.MustCompile(`(?i)includes?\s+(\d+)\s+\w+`)

const maxBundleExamples = 5

// ComputeBundleDepth scans titles for "includes <N> <word>" claims and
// summarizes the matched counts.
func ComputeBundleDepth(listings []model.Listing) model.BundleDepth {
	var counts []float64
	examples := []string{}

	for _, l := range listings {
		for _, m := range includesPattern.FindAllStringSubmatch(l.Title, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			counts = append(counts, float64(n))
			if len(examples) < maxBundleExamples {
				examples = append(examples, m[0])
			}
		}
	}

	if len(counts) == 0 {
		return model.BundleDepth{Examples: []string{}}
	}

	maxCount := 0
	for _, c := range counts {
		if int(c) > maxCount {
			maxCount = int(c)
		}
	}

	return model.BundleDepth{
		AvgIncludesCount: Round(Mean(counts), 1),
		MaxIncludesCount: maxCount,
		Examples:         examples,
	}
}
