// Package etsy provides a client for the Etsy Open API v3 endpoints used
// by the scan pipeline: active-listing search and listing reviews.
package etsy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/market-scan/internal/model"
)

// Client defines the listing-source operations used by the scan pipeline.
type Client interface {
	// SearchListings returns up to limit active listings for a keyword.
	SearchListings(ctx context.Context, keyword string, limit, offset int) (*model.SearchResult, error)
	// GetReviews returns up to limit reviews for a listing.
	GetReviews(ctx context.Context, listingID int64, limit int) ([]model.Review, error)
}

// Option configures the Etsy client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(baseURL string) Option {
	return func(c *httpClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default requests-per-second limit.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSec), int(perSec)+1)
	}
}

// WithMaxRetries sets the retry budget for 429/503 responses.
func WithMaxRetries(n int) Option {
	return func(c *httpClient) {
		c.maxRetries = n
	}
}

type httpClient struct {
	apiKey      string
	accessToken string
	baseURL     string
	http        *http.Client
	limiter     *rate.Limiter
	maxRetries  int
}

// NewClient creates an Etsy API client.
func NewClient(apiKey, accessToken string, opts ...Option) Client {
	c := &httpClient{
		apiKey:      apiKey,
		accessToken: accessToken,
		baseURL:     "https://openapi.etsy.com/v3",
		http:        &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(5, 6),
		maxRetries:  3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const maxSearchLimit = 100

func (c *httpClient) SearchListings(ctx context.Context, keyword string, limit, offset int) (*model.SearchResult, error) {
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	params := url.Values{
		"keywords":   {keyword},
		"limit":      {strconv.Itoa(limit)},
		"offset":     {strconv.Itoa(offset)},
		"sort_on":    {"score"},
		"sort_order": {"desc"},
		"includes":   {"images,tags"},
	}
	endpoint := fmt.Sprintf("%s/application/listings/active?%s", c.baseURL, params.Encode())

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, eris.Wrapf(err, "etsy: search %q", keyword)
	}

	var result model.SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrapf(err, "etsy: decode search response for %q", keyword)
	}
	return &result, nil
}

func (c *httpClient) GetReviews(ctx context.Context, listingID int64, limit int) ([]model.Review, error) {
	endpoint := fmt.Sprintf("%s/application/listings/%d/reviews?limit=%d", c.baseURL, listingID, limit)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, eris.Wrapf(err, "etsy: reviews for listing %d", listingID)
	}

	var result struct {
		Count   int            `json:"count"`
		Results []model.Review `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrapf(err, "etsy: decode reviews for listing %d", listingID)
	}
	return result.Results, nil
}

// get performs one rate-limited GET with retry on 429 and 503. Other
// non-2xx statuses are hard errors and are not retried.
func (c *httpClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "etsy: rate limiter")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, eris.Wrap(err, "etsy: build request")
		}
		req.Header.Set("x-api-key", c.apiKey)
		if c.accessToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.accessToken)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "etsy: request")
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, eris.Wrap(readErr, "etsy: read body")
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) && attempt <= c.maxRetries:
			delay := retryDelay(resp, attempt)
			zap.L().Warn("etsy: transient response, backing off",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "etsy: backoff interrupted")
			}
		default:
			return nil, eris.Errorf("etsy: status %d: %s", resp.StatusCode, truncate(body, 200))
		}
	}
}

func retryDelay(resp *http.Response, attempt int) time.Duration {
	if after := resp.Header.Get("Retry-After"); after != "" {
		if secs, err := strconv.Atoi(after); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(attempt) * time.Second
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
