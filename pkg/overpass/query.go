package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Features runs one Overpass query for nodes and ways matching the tag filter
// inside the polygon. Results are sorted by element ID so identical queries
// return identical slices.
func (c *client) Features(ctx context.Context, area geom.T, tags map[string]string) ([]POI, error) {
	if len(tags) == 0 {
		return nil, eris.New("overpass: empty tag filter")
	}
	polys := polyFilters(area)
	if len(polys) == 0 {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limit")
	}

	query := buildQuery(polys, tags, int(c.queryTimeout.Seconds()))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL,
		strings.NewReader(url.Values{"data": {query}}.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("overpass: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read body")
	}

	var parsed overpassResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "overpass: parse response")
	}

	pois := make([]POI, 0, len(parsed.Elements))
	for _, el := range parsed.Elements {
		lat, lon, ok := el.position()
		if !ok {
			continue
		}
		pois = append(pois, POI{
			ID:   el.Type + "/" + strconv.FormatInt(el.ID, 10),
			Name: el.Tags["name"],
			Lat:  lat,
			Lon:  lon,
			Tags: el.Tags,
		})
	}
	sort.Slice(pois, func(i, j int) bool { return pois[i].ID < pois[j].ID })
	return pois, nil
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string  `json:"type"`
	ID     int64   `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

// position reduces an element to one representative point: nodes carry their
// own coordinates, ways and relations the server-computed center.
func (el overpassElement) position() (lat, lon float64, ok bool) {
	if el.Type == "node" {
		return el.Lat, el.Lon, true
	}
	if el.Center != nil {
		return el.Center.Lat, el.Center.Lon, true
	}
	return 0, 0, false
}

// buildQuery renders the Overpass QL document. Tag keys are sorted so the
// query text is deterministic.
func buildQuery(polys []string, tags map[string]string, timeoutSec int) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var filter strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&filter, "[%q=%q]", k, tags[k])
	}

	var q strings.Builder
	fmt.Fprintf(&q, "[out:json][timeout:%d];\n(\n", timeoutSec)
	for _, poly := range polys {
		fmt.Fprintf(&q, "  node%s(poly:%q);\n", filter.String(), poly)
		fmt.Fprintf(&q, "  way%s(poly:%q);\n", filter.String(), poly)
	}
	q.WriteString(");\nout center;\n")
	return q.String()
}

// polyFilters renders each exterior ring of the area as an Overpass poly
// filter string ("lat lon lat lon ..."). Holes are ignored: the caller clips
// results against the exact area afterwards anyway.
func polyFilters(area geom.T) []string {
	var rings [][]float64
	switch g := area.(type) {
	case *geom.Polygon:
		if g.NumLinearRings() > 0 {
			rings = append(rings, g.LinearRing(0).FlatCoords())
		}
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			p := g.Polygon(i)
			if p.NumLinearRings() > 0 {
				rings = append(rings, p.LinearRing(0).FlatCoords())
			}
		}
	}

	out := make([]string, 0, len(rings))
	for _, flat := range rings {
		if len(flat) < 8 { // under 4 coordinate pairs is degenerate
			continue
		}
		var b strings.Builder
		for i := 0; i+1 < len(flat); i += 2 {
			if i > 0 {
				b.WriteByte(' ')
			}
			// Overpass wants "lat lon" pairs; coords are stored lon-first.
			fmt.Fprintf(&b, "%.7f %.7f", flat[i+1], flat[i])
		}
		out = append(out, b.String())
	}
	return out
}
