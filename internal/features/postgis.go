package features

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/atashie/locationAnalyzer/internal/model"
)

// Querier is the subset of pgxpool.Pool the PostGIS provider needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostGISProvider serves features from a preloaded poi table. It is the
// offline alternative to Overpass for regions with a local extract.
type PostGISProvider struct {
	pool Querier
}

// NewPostGISProvider wraps a pgx pool.
func NewPostGISProvider(pool Querier) *PostGISProvider {
	return &PostGISProvider{pool: pool}
}

const poiQuery = `
SELECT osm_id, name, ST_X(geom), ST_Y(geom), address, phone, website, opening_hours
FROM poi
WHERE tags @> $1::jsonb
  AND ST_Intersects(geom, ST_SetSRID(ST_GeomFromGeoJSON($2), 4326))
ORDER BY osm_id`

// Query returns the features whose tags contain the filter and whose point
// falls inside the polygon. Ordering by osm_id keeps results deterministic.
func (p *PostGISProvider) Query(ctx context.Context, area geom.T, tags map[string]string) ([]model.Feature, error) {
	if len(tags) == 0 {
		return nil, eris.New("features: empty tag filter")
	}

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, eris.Wrap(err, "features: marshal tag filter")
	}
	areaJSON, err := geojson.Marshal(area)
	if err != nil {
		return nil, eris.Wrap(err, "features: marshal query area")
	}

	rows, err := p.pool.Query(ctx, poiQuery, string(tagsJSON), string(areaJSON))
	if err != nil {
		return nil, eris.Wrap(err, "features: poi query")
	}
	defer rows.Close()

	var out []model.Feature
	for rows.Next() {
		var f model.Feature
		if err := rows.Scan(&f.ID, &f.Name, &f.Lon, &f.Lat, &f.Address, &f.Phone, &f.Website, &f.OpeningHours); err != nil {
			return nil, eris.Wrap(err, "features: scan poi row")
		}
		if f.Name == "" {
			f.Name = "Unnamed"
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "features: read poi rows")
	}
	return out, nil
}
