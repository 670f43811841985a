// Package overpass queries the Overpass API for OSM elements matching a tag
// filter inside a polygon.
package overpass

import (
	"context"
	"net/http"
	"time"

	"github.com/twpayne/go-geom"
	"golang.org/x/time/rate"
)

// Client queries OSM elements.
type Client interface {
	// Features returns the elements matching every tag in the filter whose
	// location falls inside the geographic polygon.
	Features(ctx context.Context, area geom.T, tags map[string]string) ([]POI, error)
}

// POI is one matched OSM element. Ways and relations are reduced to a single
// representative point.
type POI struct {
	ID   string // e.g. "node/123456"
	Name string
	Lat  float64
	Lon  float64
	Tags map[string]string
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithBaseURL points the client at a different Overpass instance.
func WithBaseURL(base string) Option {
	return func(c *client) {
		c.baseURL = base
	}
}

// WithQueryTimeout sets the server-side query timeout.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *client) {
		c.queryTimeout = d
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type client struct {
	httpClient   *http.Client
	baseURL      string
	queryTimeout time.Duration
	limiter      *rate.Limiter
}

const defaultBaseURL = "https://overpass-api.de/api/interpreter"

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		baseURL:      defaultBaseURL,
		queryTimeout: 30 * time.Second,
		limiter:      rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
