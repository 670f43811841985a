// Package tripadvisor enriches places with rating data from the TripAdvisor
// Content API. The free tier has a small monthly call budget, so lookups are
// cached for days in a local SQLite store and counted against a quota; an
// exhausted quota degrades to unenriched results rather than failing.
package tripadvisor

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Client looks up TripAdvisor details for places.
type Client interface {
	// Details resolves one place. A place TripAdvisor does not know is
	// reported via Found=false, not an error.
	Details(ctx context.Context, place Place) (*Details, error)

	// EnrichAll resolves many places concurrently. The result is
	// index-aligned with the input; individual failures yield unenriched
	// entries.
	EnrichAll(ctx context.Context, places []Place) ([]Details, error)
}

// Place identifies a place to look up.
type Place struct {
	Name string
	Lat  float64
	Lon  float64
}

// Details holds the enrichment output for a place.
type Details struct {
	LocationID string  `json:"location_id"`
	Rating     float64 `json:"rating"`
	NumReviews int     `json:"num_reviews"`
	PriceLevel string  `json:"price_level"`
	URL        string  `json:"url"`
	Found      bool    `json:"found"`
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client, replacing the default retrying
// one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(base string) Option {
	return func(c *client) {
		c.baseURL = base
	}
}

// WithStore enables the SQLite details cache and quota ledger.
func WithStore(store *Store) Option {
	return func(c *client) {
		c.store = store
	}
}

// WithMonthlyQuota sets the API call budget per calendar month. Zero means
// unlimited.
func WithMonthlyQuota(calls int) Option {
	return func(c *client) {
		c.monthlyQuota = calls
	}
}

// WithCacheTTL sets how long cached details stay fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *client) {
		c.cacheTTL = ttl
	}
}

// WithConcurrency bounds how many lookups EnrichAll runs at once.
func WithConcurrency(n int) Option {
	return func(c *client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

type client struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	store        *Store
	monthlyQuota int
	cacheTTL     time.Duration
	concurrency  int
}

const (
	defaultBaseURL  = "https://api.content.tripadvisor.com/api/v1"
	defaultCacheTTL = 7 * 24 * time.Hour
	defaultQuota    = 5000
)

// NewClient creates a Client. HTTP transport failures are retried with
// backoff by default.
func NewClient(apiKey string, opts ...Option) Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil

	c := &client{
		httpClient:   rc.StandardClient(),
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		monthlyQuota: defaultQuota,
		cacheTTL:     defaultCacheTTL,
		concurrency:  4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
