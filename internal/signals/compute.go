// Package signals derives market-structure measurements from a sampled
// set of marketplace listings: price distribution, title similarity,
// seller concentration, delivery formats, and bundle depth.
package signals

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/market-scan/internal/model"
)

// Options configures signal computation.
type Options struct {
	BucketWidth float64
}

// Compute runs all five signal reducers concurrently and assembles one
// immutable snapshot. The reducers are pure over the listing slice, so
// they share no state; the errgroup is a join — a partial snapshot is
// never returned. The caller bounds the input size (≤100 listings).
func Compute(ctx context.Context, listings []model.Listing, keyword string, opts Options) (*model.SignalsResult, error) {
	result := &model.SignalsResult{
		ListingCount: len(listings),
		Keyword:      keyword,
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.PriceBands = ComputePriceBands(listings, opts.BucketWidth)
		return nil
	})
	g.Go(func() error {
		result.TitleSameness = ComputeTitleSameness(listings)
		return nil
	})
	g.Go(func() error {
		result.Dominance = ComputeDominance(listings)
		return nil
	})
	g.Go(func() error {
		result.FormatSignals = ComputeFormatSignals(listings)
		return nil
	})
	g.Go(func() error {
		result.BundleDepth = ComputeBundleDepth(listings)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.ComputedAt = time.Now().UTC()
	return result, nil
}
