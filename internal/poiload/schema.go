// Package poiload loads OSM POI shapefile extracts into the PostGIS poi
// table that the offline feature provider queries.
package poiload

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the loader needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

const schemaMigration = `
CREATE TABLE IF NOT EXISTS poi (
	osm_id        TEXT PRIMARY KEY,
	name          TEXT NOT NULL DEFAULT '',
	tags          JSONB NOT NULL,
	address       TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	website       TEXT NOT NULL DEFAULT '',
	opening_hours TEXT NOT NULL DEFAULT '',
	geom          geometry(Point, 4326) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poi_geom ON poi USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_poi_tags ON poi USING GIN (tags);
`

// Migrate creates the poi table and its indexes.
func Migrate(ctx context.Context, pool Pool) error {
	_, err := pool.Exec(ctx, schemaMigration)
	return eris.Wrap(err, "poiload: migrate")
}
