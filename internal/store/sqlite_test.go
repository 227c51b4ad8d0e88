package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-scan/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleListings() []model.Listing {
	return []model.Listing{
		{
			ListingID: 101,
			ShopID:    7,
			Title:     "Airbnb Welcome Book Template Canva",
			Price:     model.Price{Amount: 1299, Divisor: 100, CurrencyCode: "USD"},
			Quantity:  999,
			Favorers:  250,
			Tags:      []string{"welcome book", "airbnb"},
			State:     model.ListingStateActive,
		},
		{
			ListingID: 102,
			ShopID:    8,
			Title:     "Guest Guide Bundle Includes 12 Pages",
			Price:     model.Price{Amount: 1999, Divisor: 100, CurrencyCode: "USD"},
			Quantity:  50,
			Favorers:  90,
			Tags:      []string{"guest guide"},
			State:     model.ListingStateActive,
		},
	}
}

// --- Scans ---

func TestSQLite_Scan_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateScan(ctx, "airbnb welcome book", model.ScanOptions{SampleSize: 50, IncludeReviews: true})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, model.ScanStatusQueued, created.Status)

	got, err := st.GetScan(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "airbnb welcome book", got.Keyword)
	assert.Equal(t, 50, got.Options.SampleSize)
	assert.True(t, got.Options.IncludeReviews)
}

func TestSQLite_Scan_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetScan(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_Scan_UpdateStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateScan(ctx, "kw", model.ScanOptions{SampleSize: 10})
	require.NoError(t, err)

	require.NoError(t, st.UpdateScanStatus(ctx, created.ID, model.ScanStatusFetching))

	got, err := st.GetScan(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusFetching, got.Status)
}

func TestSQLite_Scan_UpdateStatusMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateScanStatus(context.Background(), "nope", model.ScanStatusFetching)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan not found")
}

func TestSQLite_Scan_MarkError(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateScan(ctx, "kw", model.ScanOptions{})
	require.NoError(t, err)

	require.NoError(t, st.MarkScanError(ctx, created.ID, "etsy: status 500"))

	got, err := st.GetScan(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusError, got.Status)
	assert.Equal(t, "etsy: status 500", got.ErrorMessage)
}

func TestSQLite_Scan_ListFiltered(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateScan(ctx, "keyword a", model.ScanOptions{})
	require.NoError(t, err)
	_, err = st.CreateScan(ctx, "keyword b", model.ScanOptions{})
	require.NoError(t, err)

	require.NoError(t, st.UpdateScanStatus(ctx, a.ID, model.ScanStatusComplete))

	scans, err := st.ListScans(ctx, ScanFilter{Status: model.ScanStatusComplete})
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, a.ID, scans[0].ID)

	scans, err = st.ListScans(ctx, ScanFilter{Keyword: "keyword b"})
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, "keyword b", scans[0].Keyword)

	scans, err = st.ListScans(ctx, ScanFilter{})
	require.NoError(t, err)
	assert.Len(t, scans, 2)
}

// --- Scan listings ---

func TestSQLite_ScanListings_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateScan(ctx, "kw", model.ScanOptions{})
	require.NoError(t, err)

	require.NoError(t, st.SaveScanListings(ctx, created.ID, sampleListings()))

	got, err := st.GetScanListings(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(101), got[0].ListingID)
	assert.Equal(t, "Guest Guide Bundle Includes 12 Pages", got[1].Title)
	assert.InDelta(t, 12.99, got[0].Price.Value(), 0.001)
}

func TestSQLite_ScanListings_SaveIsIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateScan(ctx, "kw", model.ScanOptions{})
	require.NoError(t, err)

	require.NoError(t, st.SaveScanListings(ctx, created.ID, sampleListings()))
	require.NoError(t, st.SaveScanListings(ctx, created.ID, sampleListings()[:1]))

	got, err := st.GetScanListings(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// --- Signals ---

func TestSQLite_Signals_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateScan(ctx, "kw", model.ScanOptions{})
	require.NoError(t, err)

	signals := &model.SignalsResult{
		Keyword:      "kw",
		ListingCount: 2,
		PriceBands:   model.PriceBands{Median: 12.99, ModeBucket: "$10–$15"},
		ComputedAt:   time.Now().UTC(),
	}
	require.NoError(t, st.SaveSignals(ctx, created.ID, signals))

	got, err := st.GetSignals(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ListingCount)
	assert.Equal(t, "$10–$15", got.PriceBands.ModeBucket)
}

func TestSQLite_Signals_UpsertOverwrites(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateScan(ctx, "kw", model.ScanOptions{})
	require.NoError(t, err)

	first := &model.SignalsResult{ListingCount: 10, ComputedAt: time.Now().UTC()}
	require.NoError(t, st.SaveSignals(ctx, created.ID, first))

	second := &model.SignalsResult{ListingCount: 25, ComputedAt: time.Now().UTC()}
	require.NoError(t, st.SaveSignals(ctx, created.ID, second))

	got, err := st.GetSignals(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, got.ListingCount)
}

func TestSQLite_Signals_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetSignals(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// --- Briefs ---

func TestSQLite_Brief_LatestWinsAcrossAttempts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateScan(ctx, "kw", model.ScanOptions{})
	require.NoError(t, err)

	first := BriefRecord{
		ScanID:  created.ID,
		Attempt: 1,
		Brief:   &model.DifferentiationBrief{Version: "1.0", Keyword: "kw"},
		QA:      &model.QAResult{Passed: false, Attempt: 1},
	}
	require.NoError(t, st.SaveBrief(ctx, first))

	second := BriefRecord{
		ScanID:  created.ID,
		Attempt: 2,
		Brief:   &model.DifferentiationBrief{Version: "1.0", Keyword: "kw"},
		QA:      &model.QAResult{Passed: true, Attempt: 2},
	}
	require.NoError(t, st.SaveBrief(ctx, second))

	got, err := st.GetLatestBrief(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Attempt)
	assert.True(t, got.QA.Passed)
}

func TestSQLite_Brief_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetLatestBrief(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// --- Decisions ---

func TestSQLite_Decision_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateScan(ctx, "kw", model.ScanOptions{})
	require.NoError(t, err)

	require.NoError(t, st.SaveDecision(ctx, model.Decision{
		ScanID:   created.ID,
		Decision: model.DecisionHold,
		Notes:    "waiting on review data",
	}))
	require.NoError(t, st.SaveDecision(ctx, model.Decision{
		ScanID:   created.ID,
		Decision: model.DecisionBuild,
		Notes:    "clear format gap",
	}))

	got, err := st.GetDecision(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.DecisionBuild, got.Decision)
	assert.Equal(t, "clear format gap", got.Notes)
	assert.False(t, got.DecidedAt.IsZero())
}

func TestSQLite_Decision_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetDecision(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// --- Listing cache ---

func TestSQLite_ListingCache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedListings(ctx, "kw", sampleListings(), time.Hour))

	got, err := st.GetCachedListings(ctx, "kw")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(101), got[0].ListingID)
}

func TestSQLite_ListingCache_Expired(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedListings(ctx, "kw", sampleListings(), -time.Hour))

	got, err := st.GetCachedListings(ctx, "kw")
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := st.DeleteExpiredListings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLite_ListingCache_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedListings(ctx, "kw", sampleListings(), time.Hour))
	require.NoError(t, st.SetCachedListings(ctx, "kw", sampleListings()[:1], time.Hour))

	got, err := st.GetCachedListings(ctx, "kw")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
