// Package features supplies the engine's POI sources: an Overpass-backed
// provider for live OSM data, a PostGIS-backed provider for preloaded
// extracts, and a Redis read-through cache that can wrap either.
package features

import (
	"context"

	"github.com/twpayne/go-geom"

	"github.com/atashie/locationAnalyzer/internal/model"
)

// Provider returns the features matching a tag filter inside a geographic
// polygon.
type Provider interface {
	Query(ctx context.Context, area geom.T, tags map[string]string) ([]model.Feature, error)
}
