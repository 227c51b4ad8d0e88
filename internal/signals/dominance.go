package signals

import (
	"sort"
	"strconv"

	"github.com/sells-group/market-scan/internal/model"
)

// concentrationThresholdPct: above this combined top-3 share the market is
// flagged as concentrated.
const concentrationThresholdPct = 40.0

// ComputeDominance groups listings by shop and reports the combined share
// of the three largest shops.
func ComputeDominance(listings []model.Listing) model.Dominance {
	if len(listings) == 0 {
		return model.Dominance{TopShops: []model.ShopShare{}}
	}

	counts := make(map[string]int)
	for _, l := range listings {
		counts[strconv.FormatInt(l.ShopID, 10)]++
	}

	shops := make([]model.ShopShare, 0, len(counts))
	for id, n := range counts {
		shops = append(shops, model.ShopShare{
			ShopID:       id,
			ListingCount: n,
			SharePercent: Round(float64(n)/float64(len(listings))*100, 1),
		})
	}
	sort.Slice(shops, func(i, j int) bool {
		if shops[i].ListingCount != shops[j].ListingCount {
			return shops[i].ListingCount > shops[j].ListingCount
		}
		return shops[i].ShopID < shops[j].ShopID
	})

	if len(shops) > 3 {
		shops = shops[:3]
	}
	top3Total := 0
	for _, s := range shops {
		top3Total += s.ListingCount
	}
	top3Share := Round(float64(top3Total)/float64(len(listings))*100, 1)

	return model.Dominance{
		TopShops:         shops,
		Top3SharePercent: top3Share,
		IsConcentrated:   top3Share > concentrationThresholdPct,
	}
}
