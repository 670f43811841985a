package tripadvisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrQuotaExceeded means the monthly API budget is spent. Callers should
// degrade to unenriched results.
var ErrQuotaExceeded = eris.New("tripadvisor: monthly api quota exceeded")

// callsPerLookup is how many API calls one uncached lookup costs: a search
// plus a details fetch.
const callsPerLookup = 2

// Details resolves one place, consulting the cache and quota ledger first.
func (c *client) Details(ctx context.Context, place Place) (*Details, error) {
	key := lookupKey(place)
	if c.store != nil {
		if cached, ok, err := c.store.Get(ctx, key); err == nil && ok {
			return cached, nil
		} else if err != nil {
			zap.L().Warn("tripadvisor cache read failed", zap.Error(err))
		}
	}

	if err := c.checkQuota(ctx); err != nil {
		return nil, err
	}

	locationID, err := c.search(ctx, place)
	if err != nil {
		return nil, err
	}

	var details *Details
	if locationID == "" {
		details = &Details{Found: false}
	} else {
		details, err = c.fetchDetails(ctx, locationID)
		if err != nil {
			return nil, err
		}
	}

	if c.store != nil {
		month := time.Now().UTC().Format("2006-01")
		if err := c.store.AddQuota(ctx, month, callsPerLookup); err != nil {
			zap.L().Warn("tripadvisor quota write failed", zap.Error(err))
		}
		if err := c.store.Put(ctx, key, *details, c.cacheTTL); err != nil {
			zap.L().Warn("tripadvisor cache write failed", zap.Error(err))
		}
	}
	return details, nil
}

// EnrichAll resolves places with bounded concurrency. Per-place failures are
// logged and yield unenriched entries; only a cancelled context aborts the
// whole batch.
func (c *client) EnrichAll(ctx context.Context, places []Place) ([]Details, error) {
	out := make([]Details, len(places))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, place := range places {
		g.Go(func() error {
			d, err := c.Details(ctx, place)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if !eris.Is(err, ErrQuotaExceeded) {
					zap.L().Warn("tripadvisor lookup failed",
						zap.String("place", place.Name), zap.Error(err))
				}
				return nil
			}
			out[i] = *d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) checkQuota(ctx context.Context) error {
	if c.store == nil || c.monthlyQuota <= 0 {
		return nil
	}
	month := time.Now().UTC().Format("2006-01")
	used, err := c.store.QuotaUsed(ctx, month)
	if err != nil {
		return err
	}
	if used+callsPerLookup > c.monthlyQuota {
		return eris.Wrapf(ErrQuotaExceeded, "%d/%d calls used", used, c.monthlyQuota)
	}
	return nil
}

type searchResponse struct {
	Data []struct {
		LocationID string `json:"location_id"`
	} `json:"data"`
}

// search finds the nearest matching location ID, or "" when there is none.
func (c *client) search(ctx context.Context, place Place) (string, error) {
	params := url.Values{
		"key":         {c.apiKey},
		"searchQuery": {place.Name},
		"latLong":     {fmt.Sprintf("%.6f,%.6f", place.Lat, place.Lon)},
		"radius":      {"1"},
		"radiusUnit":  {"mi"},
	}
	body, err := c.get(ctx, c.baseURL+"/location/search?"+params.Encode())
	if err != nil {
		return "", err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", eris.Wrap(err, "tripadvisor: parse search response")
	}
	if len(parsed.Data) == 0 {
		return "", nil
	}
	return parsed.Data[0].LocationID, nil
}

// detailsResponse mirrors the Content API details payload; numeric fields
// come back as strings.
type detailsResponse struct {
	LocationID string `json:"location_id"`
	Rating     string `json:"rating"`
	NumReviews string `json:"num_reviews"`
	PriceLevel string `json:"price_level"`
	WebURL     string `json:"web_url"`
}

func (c *client) fetchDetails(ctx context.Context, locationID string) (*Details, error) {
	params := url.Values{"key": {c.apiKey}}
	body, err := c.get(ctx, c.baseURL+"/location/"+url.PathEscape(locationID)+"/details?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var parsed detailsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "tripadvisor: parse details response")
	}

	d := &Details{
		LocationID: parsed.LocationID,
		PriceLevel: parsed.PriceLevel,
		URL:        parsed.WebURL,
		Found:      true,
	}
	if parsed.Rating != "" {
		if rating, err := strconv.ParseFloat(parsed.Rating, 64); err == nil {
			d.Rating = rating
		}
	}
	if parsed.NumReviews != "" {
		if n, err := strconv.Atoi(parsed.NumReviews); err == nil {
			d.NumReviews = n
		}
	}
	return d, nil
}

func (c *client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "tripadvisor: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "tripadvisor: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("tripadvisor: returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// lookupKey identifies a place for caching: normalized name plus coordinates
// rounded to ~11 m.
func lookupKey(place Place) string {
	name := strings.ToLower(strings.Join(strings.Fields(place.Name), " "))
	return fmt.Sprintf("%s|%.4f|%.4f", name, place.Lat, place.Lon)
}
