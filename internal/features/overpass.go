package features

import (
	"context"
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/atashie/locationAnalyzer/internal/model"
	"github.com/atashie/locationAnalyzer/pkg/overpass"
)

// OverpassProvider adapts an overpass.Client into a Provider, normalizing raw
// OSM tags into feature attributes.
type OverpassProvider struct {
	client overpass.Client
}

// NewOverpassProvider wraps an Overpass client.
func NewOverpassProvider(client overpass.Client) *OverpassProvider {
	return &OverpassProvider{client: client}
}

// Query fetches matching elements and normalizes them.
func (p *OverpassProvider) Query(ctx context.Context, area geom.T, tags map[string]string) ([]model.Feature, error) {
	pois, err := p.client.Features(ctx, area, tags)
	if err != nil {
		return nil, err
	}
	out := make([]model.Feature, 0, len(pois))
	for _, poi := range pois {
		out = append(out, normalize(poi))
	}
	return out, nil
}

func normalize(poi overpass.POI) model.Feature {
	name := cleanAttr(poi.Name)
	if name == "" {
		name = "Unnamed"
	}
	return model.Feature{
		ID:           poi.ID,
		Name:         name,
		Lon:          poi.Lon,
		Lat:          poi.Lat,
		Address:      buildAddress(poi.Tags),
		Phone:        cleanAttr(firstTag(poi.Tags, "phone", "contact:phone")),
		Website:      cleanAttr(firstTag(poi.Tags, "website", "contact:website")),
		OpeningHours: cleanAttr(poi.Tags["opening_hours"]),
	}
}

// sentinel strings some mappers use instead of omitting a tag.
var sentinelAttrs = map[string]struct{}{
	"n/a": {}, "na": {}, "none": {}, "unknown": {}, "-": {},
}

func cleanAttr(s string) string {
	s = strings.TrimSpace(s)
	if _, bad := sentinelAttrs[strings.ToLower(s)]; bad {
		return ""
	}
	return s
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}

func buildAddress(tags map[string]string) string {
	street := strings.TrimSpace(cleanAttr(tags["addr:housenumber"]) + " " + cleanAttr(tags["addr:street"]))
	parts := make([]string, 0, 2)
	if street != "" {
		parts = append(parts, street)
	}
	if city := cleanAttr(tags["addr:city"]); city != "" {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
}
