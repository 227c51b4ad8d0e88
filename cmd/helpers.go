package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-scan/internal/scan"
	"github.com/sells-group/market-scan/internal/store"
	"github.com/sells-group/market-scan/pkg/etsy"
	"github.com/sells-group/market-scan/pkg/llm"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "market-scan.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initEtsy() etsy.Client {
	opts := []etsy.Option{}
	if cfg.Etsy.BaseURL != "" {
		opts = append(opts, etsy.WithBaseURL(cfg.Etsy.BaseURL))
	}
	if cfg.Etsy.RatePerSec > 0 {
		opts = append(opts, etsy.WithRateLimit(cfg.Etsy.RatePerSec))
	}
	if cfg.Etsy.MaxRetries > 0 {
		opts = append(opts, etsy.WithMaxRetries(cfg.Etsy.MaxRetries))
	}
	return etsy.NewClient(cfg.Etsy.Key, cfg.Etsy.AccessToken, opts...)
}

func initGenerator() (llm.Generator, error) {
	switch cfg.Anthropic.Provider {
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("anthropic API key is required (MARKETSCAN_ANTHROPIC_KEY)")
		}
		return llm.NewAnthropicGenerator(cfg.Anthropic.Key, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), nil
	case "mock", "":
		return &llm.MockGenerator{}, nil
	default:
		return nil, eris.Errorf("unsupported brief provider: %s", cfg.Anthropic.Provider)
	}
}

func newOrchestrator(st store.Store) (*scan.Orchestrator, error) {
	gen, err := initGenerator()
	if err != nil {
		return nil, err
	}

	return scan.New(st, initEtsy(), gen, scan.NewBroadcaster(), scan.Config{
		SampleSize:        cfg.Scan.SampleSize,
		MaxReviewListings: cfg.Scan.MaxReviewListings,
		ReviewsPerListing: cfg.Scan.ReviewsPerListing,
		CacheTTL:          time.Duration(cfg.Scan.CacheTTLHours) * time.Hour,
		BucketWidth:       cfg.Signals.BucketWidth,
	}), nil
}
