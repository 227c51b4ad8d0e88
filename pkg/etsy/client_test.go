package etsy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-scan/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", "test-token",
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRateLimit(1000),
	)
}

func TestSearchListings_Success(t *testing.T) {
	want := model.SearchResult{
		Count: 2,
		Listings: []model.Listing{
			{ListingID: 11, ShopID: 5, Title: "Budget tracker Google Sheets"},
			{ListingID: 12, ShopID: 6, Title: "Budget planner PDF"},
		},
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/application/listings/active", r.URL.Path)
		assert.Equal(t, "budget tracker", r.URL.Query().Get("keywords"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(want)
	})

	got, err := client.SearchListings(context.Background(), "budget tracker", 25, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Listings, 2)
	assert.Equal(t, int64(11), got.Listings[0].ListingID)
}

func TestSearchListings_CapsLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(model.SearchResult{})
	})

	_, err := client.SearchListings(context.Background(), "anything", 500, 0)
	require.NoError(t, err)
}

func TestSearchListings_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(model.SearchResult{Count: 1})
	})

	got, err := client.SearchListings(context.Background(), "planner", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearchListings_HardErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	})

	_, err := client.SearchListings(context.Background(), "planner", 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetReviews_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/application/listings/42/reviews", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"count": 1,
			"results": []model.Review{
				{ListingID: 42, Rating: 4, Review: "Great template, hard to edit on mobile."},
			},
		})
	})

	reviews, err := client.GetReviews(context.Background(), 42, 10)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 4, reviews[0].Rating)
}

func TestGetReviews_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := client.GetReviews(context.Background(), 42, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode reviews")
}
