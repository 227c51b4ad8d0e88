// Package scan drives a keyword scan through its lifecycle: fetch
// listings, compute signals, generate a brief, QA it, and persist each
// phase. State transitions are owned exclusively by the orchestrator;
// progress is broadcast best-effort to live subscribers.
package scan

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/market-scan/internal/model"
	"github.com/sells-group/market-scan/internal/qa"
	"github.com/sells-group/market-scan/internal/signals"
	"github.com/sells-group/market-scan/internal/store"
	"github.com/sells-group/market-scan/pkg/etsy"
	"github.com/sells-group/market-scan/pkg/llm"
)

const (
	defaultSampleSize        = 50
	defaultMaxReviewListings = 10
	defaultReviewsPerListing = 10
	defaultCacheTTL          = 24 * time.Hour

	reviewFetchConcurrency = 4
)

// Config tunes the orchestrator. Zero values fall back to defaults.
type Config struct {
	SampleSize        int
	MaxReviewListings int
	ReviewsPerListing int
	CacheTTL          time.Duration
	BucketWidth       float64
}

// Orchestrator runs scans end to end. Safe for concurrent use; each
// scan is an independent unit of work.
type Orchestrator struct {
	store       store.Store
	etsy        etsy.Client
	generator   llm.Generator
	gates       *qa.Pipeline
	broadcaster *Broadcaster
	cfg         Config
}

func New(st store.Store, etsyClient etsy.Client, gen llm.Generator, broadcaster *Broadcaster, cfg Config) *Orchestrator {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = defaultSampleSize
	}
	if cfg.MaxReviewListings <= 0 {
		cfg.MaxReviewListings = defaultMaxReviewListings
	}
	if cfg.ReviewsPerListing <= 0 {
		cfg.ReviewsPerListing = defaultReviewsPerListing
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	return &Orchestrator{
		store:       st,
		etsy:        etsyClient,
		generator:   gen,
		gates:       qa.NewPipeline(),
		broadcaster: broadcaster,
		cfg:         cfg,
	}
}

// Broadcaster exposes the progress topic for subscribers (SSE handlers).
func (o *Orchestrator) Broadcaster() *Broadcaster {
	return o.broadcaster
}

// Run drives one scan to a terminal state. A provider or persistence
// failure transitions the scan to error with the message preserved
// verbatim, and is also returned to the caller.
func (o *Orchestrator) Run(ctx context.Context, sc *model.Scan) error {
	log := zap.L().With(zap.String("scan_id", sc.ID), zap.String("keyword", sc.Keyword))
	log.Info("scan: starting")

	fail := func(err error) error {
		msg := err.Error()
		if markErr := o.store.MarkScanError(ctx, sc.ID, msg); markErr != nil {
			log.Warn("scan: failed to persist error state", zap.Error(markErr))
		}
		o.emit(sc.ID, model.ProgressEvent{Phase: model.ScanStatusError, Message: msg, Progress: 0})
		log.Error("scan: failed", zap.Error(err))
		return err
	}

	setStatus := func(status model.ScanStatus) error {
		return o.store.UpdateScanStatus(ctx, sc.ID, status)
	}

	// Phase 1: fetching
	if err := setStatus(model.ScanStatusFetching); err != nil {
		return fail(err)
	}
	o.emit(sc.ID, model.ProgressEvent{Phase: model.ScanStatusFetching, Message: "Connecting to listing source...", Progress: 0})

	sampleSize := sc.Options.SampleSize
	if sampleSize <= 0 {
		sampleSize = o.cfg.SampleSize
	}

	var warnings []string
	listings, fromCache, err := o.fetchListings(ctx, sc.Keyword, sampleSize, sc.Options.ForceRefresh)
	if err != nil {
		return fail(err)
	}

	switch {
	case len(listings) == 0:
		warnings = append(warnings, fmt.Sprintf("No listings found for %q. Try a broader keyword.", sc.Keyword))
		o.emit(sc.ID, model.ProgressEvent{Phase: model.ScanStatusFetching, Message: "No listings found", Progress: 100, Warnings: warnings})
	case len(listings) < sampleSize/2:
		warnings = append(warnings, fmt.Sprintf("Only %d listings returned (requested %d). Signal quality may be lower.", len(listings), sampleSize))
	}

	// One event per listing, progress proportional over 0-80% of the
	// fetching phase.
	for i := range listings {
		o.emit(sc.ID, model.ProgressEvent{
			Phase:        model.ScanStatusFetching,
			Message:      fmt.Sprintf("Fetched %d/%d listings...", i+1, len(listings)),
			Progress:     int(math.Round(float64(i+1) / float64(len(listings)) * 80)),
			ListingCount: i + 1,
		})
	}

	if err := o.store.SaveScanListings(ctx, sc.ID, listings); err != nil {
		return fail(err)
	}

	source := "listing source"
	if fromCache {
		source = "cache"
	}
	o.emit(sc.ID, model.ProgressEvent{
		Phase:        model.ScanStatusFetching,
		Message:      fmt.Sprintf("Fetched %d listings from %s", len(listings), source),
		Progress:     80,
		ListingCount: len(listings),
	})

	var reviewsByListing map[int64][]string
	if sc.Options.IncludeReviews && len(listings) > 0 {
		o.emit(sc.ID, model.ProgressEvent{Phase: model.ScanStatusFetching, Message: "Fetching reviews for top listings...", Progress: 85})

		var failed bool
		reviewsByListing, failed = o.fetchReviews(ctx, listings)
		if failed {
			warnings = append(warnings, "Review fetching unavailable for some listings. Buyer Frictions section will have limited data.")
		}
	}

	o.emit(sc.ID, model.ProgressEvent{
		Phase:        model.ScanStatusFetching,
		Message:      "All listings cached",
		Progress:     100,
		ListingCount: len(listings),
	})

	// Phase 2: analyzing
	if err := setStatus(model.ScanStatusAnalyzing); err != nil {
		return fail(err)
	}
	o.emit(sc.ID, model.ProgressEvent{Phase: model.ScanStatusAnalyzing, Message: "Computing market signals...", Progress: 0})

	sigs, err := signals.Compute(ctx, listings, sc.Keyword, signals.Options{BucketWidth: o.cfg.BucketWidth})
	if err != nil {
		return fail(err)
	}
	if err := o.store.SaveSignals(ctx, sc.ID, sigs); err != nil {
		return fail(err)
	}
	o.emit(sc.ID, model.ProgressEvent{Phase: model.ScanStatusAnalyzing, Message: "Signals computed", Progress: 100})

	// Phase 3: drafting
	if err := setStatus(model.ScanStatusDrafting); err != nil {
		return fail(err)
	}
	o.emit(sc.ID, model.ProgressEvent{Phase: model.ScanStatusDrafting, Message: "Generating differentiation brief...", Progress: 0})

	req := llm.Request{
		Signals:          sigs,
		ScanID:           sc.ID,
		Options:          sc.Options,
		ReviewsByListing: reviewsByListing,
	}

	brief, err := o.generator.GenerateBrief(ctx, req)
	if err != nil {
		return fail(err)
	}
	o.emit(sc.ID, model.ProgressEvent{Phase: model.ScanStatusDrafting, Message: "Brief generated, running quality checks...", Progress: 50})

	qaResult := o.gates.Run(brief, sigs, 1)

	// One automatic regeneration on QA failure. A throw on the retry is
	// demoted to a warning and the first attempt's artifact stands.
	if !qaResult.Passed {
		issueMessages := make([]string, len(qaResult.Issues))
		for i, issue := range qaResult.Issues {
			issueMessages[i] = issue.Message
		}
		o.emit(sc.ID, model.ProgressEvent{
			Phase:    model.ScanStatusDrafting,
			Message:  fmt.Sprintf("QA check failed (%d errors). Regenerating...", qaResult.ErrorCount()),
			Progress: 60,
			Warnings: issueMessages,
		})

		retryReq := req
		retryReq.PreviousIssues = qaResult.Issues

		retryBrief, retryErr := o.generator.GenerateBrief(ctx, retryReq)
		if retryErr != nil {
			warnings = append(warnings, fmt.Sprintf("Brief regeneration failed: %s", retryErr.Error()))
			log.Warn("scan: regeneration failed", zap.Error(retryErr))
		} else {
			brief = retryBrief
			qaResult = o.gates.Run(brief, sigs, 2)
		}
	}

	finalStatus := model.ScanStatusNeedsReview
	if qaResult.Passed {
		finalStatus = model.ScanStatusComplete
	}

	if err := o.store.SaveBrief(ctx, store.BriefRecord{
		ScanID:  sc.ID,
		Attempt: qaResult.Attempt,
		Brief:   brief,
		QA:      &qaResult,
	}); err != nil {
		return fail(err)
	}
	if err := setStatus(finalStatus); err != nil {
		return fail(err)
	}

	finalWarnings := warnings
	message := "Brief ready"
	if finalStatus == model.ScanStatusNeedsReview {
		message = "Brief needs review — QA issues found"
		for _, issue := range qaResult.Issues {
			finalWarnings = append(finalWarnings, fmt.Sprintf("[%s] %s", strings.ToUpper(string(issue.Severity)), issue.Message))
		}
	}
	o.emit(sc.ID, model.ProgressEvent{
		Phase:    finalStatus,
		Message:  message,
		Progress: 100,
		Warnings: finalWarnings,
	})

	log.Info("scan: finished",
		zap.String("status", string(finalStatus)),
		zap.Int("listings", len(listings)),
		zap.Int("qa_attempt", qaResult.Attempt),
		zap.Int("qa_errors", qaResult.ErrorCount()),
	)
	return nil
}

// fetchListings serves from the keyword cache when allowed, falling
// back to a live search that refills the cache.
func (o *Orchestrator) fetchListings(ctx context.Context, keyword string, sampleSize int, forceRefresh bool) ([]model.Listing, bool, error) {
	if !forceRefresh {
		cached, err := o.store.GetCachedListings(ctx, keyword)
		if err != nil {
			return nil, false, err
		}
		if len(cached) >= sampleSize {
			return cached[:sampleSize], true, nil
		}
	}

	result, err := o.etsy.SearchListings(ctx, keyword, sampleSize, 0)
	if err != nil {
		return nil, false, err
	}

	if len(result.Listings) > 0 {
		if cacheErr := o.store.SetCachedListings(ctx, keyword, result.Listings, o.cfg.CacheTTL); cacheErr != nil {
			zap.L().Warn("scan: failed to cache listings", zap.String("keyword", keyword), zap.Error(cacheErr))
		}
	}
	return result.Listings, false, nil
}

// fetchReviews collects review text for the top listings. Individual
// fetch failures are isolated; they surface as a single warning.
func (o *Orchestrator) fetchReviews(ctx context.Context, listings []model.Listing) (map[int64][]string, bool) {
	top := listings
	if len(top) > o.cfg.MaxReviewListings {
		top = top[:o.cfg.MaxReviewListings]
	}

	var mu sync.Mutex
	reviewsByListing := make(map[int64][]string)
	anyFailed := false

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(reviewFetchConcurrency)

	for _, listing := range top {
		g.Go(func() error {
			reviews, err := o.etsy.GetReviews(gCtx, listing.ListingID, o.cfg.ReviewsPerListing)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				anyFailed = true
				return nil
			}
			if len(reviews) > 0 {
				texts := make([]string, len(reviews))
				for i, r := range reviews {
					texts[i] = r.Review
				}
				reviewsByListing[listing.ListingID] = texts
			}
			return nil
		})
	}
	_ = g.Wait()

	return reviewsByListing, anyFailed
}

func (o *Orchestrator) emit(scanID string, ev model.ProgressEvent) {
	if o.broadcaster != nil {
		o.broadcaster.Publish(scanID, ev)
	}
}
