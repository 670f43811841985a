package nominatim

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// searchResult is one element of the Nominatim search response. Coordinates
// come back as strings.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search resolves a query, trying the raw text first. Bare queries without a
// comma often name a US city or landmark but miss the country, so an
// unmatched bare query is retried once with a ", USA" suffix. An unmatched
// query is not an error.
func (r *resolver) Search(ctx context.Context, query string) (*Place, error) {
	key := cacheKey(query)
	if r.cache != nil {
		if hit, ok := r.cache.Get(key); ok {
			place := hit.(Place)
			return &place, nil
		}
	}

	place, err := r.searchOnce(ctx, query)
	if err != nil {
		return nil, err
	}
	if !place.Matched && !strings.Contains(query, ",") {
		place, err = r.searchOnce(ctx, query+", USA")
		if err != nil {
			return nil, err
		}
	}

	if r.cache != nil {
		r.cache.SetDefault(key, *place)
	}
	return place, nil
}

func (r *resolver) searchOnce(ctx context.Context, query string) (*Place, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit")
	}

	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}
	reqURL := r.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("nominatim: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: read body")
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, eris.Wrap(err, "nominatim: parse response")
	}
	if len(results) == 0 {
		return &Place{Matched: false}, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: parse lat")
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: parse lon")
	}
	return &Place{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: results[0].DisplayName,
		Matched:     true,
	}, nil
}

// foldTransformer strips combining diacritical marks so "Montréal" and
// "Montreal" share a cache entry.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func cacheKey(query string) string {
	folded, _, err := transform.String(foldTransformer, query)
	if err != nil {
		folded = query
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}
