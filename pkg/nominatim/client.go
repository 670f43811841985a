// Package nominatim resolves free-form place text to coordinates via the OSM
// Nominatim search API. Results are cached in-process and requests are rate
// limited to the public-instance policy of one request per second.
package nominatim

import (
	"context"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Client resolves place queries.
type Client interface {
	// Search resolves a single free-form place query.
	Search(ctx context.Context, query string) (*Place, error)
}

// Place holds the resolution output for a query.
type Place struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Matched     bool
}

// Option configures the resolver.
type Option func(*resolver)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *resolver) {
		r.httpClient = hc
	}
}

// WithBaseURL points the resolver at a different Nominatim instance.
func WithBaseURL(base string) Option {
	return func(r *resolver) {
		r.baseURL = base
	}
}

// WithUserAgent sets the User-Agent header. The public instance rejects
// requests without an identifying agent.
func WithUserAgent(ua string) Option {
	return func(r *resolver) {
		r.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(r *resolver) {
		r.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithCacheTTL sets how long resolved places are cached. Zero disables the
// cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *resolver) {
		if ttl <= 0 {
			r.cache = nil
			return
		}
		r.cache = gocache.New(ttl, 2*ttl)
	}
}

type resolver struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	cache      *gocache.Cache
}

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "location-analyzer/1.0"
	defaultCacheTTL  = time.Hour
)

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) Client {
	r := &resolver{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		limiter:    rate.NewLimiter(1, 1), // public instance policy: 1 req/s
		cache:      gocache.New(defaultCacheTTL, 2*defaultCacheTTL),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
