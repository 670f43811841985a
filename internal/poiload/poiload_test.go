package poiload

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jonas-p/go-shp"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePointShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pois.shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("OSM_ID", 20),
		shp.StringField("FCLASS", 20),
		shp.StringField("NAME", 50),
		shp.StringField("PHONE", 20),
	}))

	n := w.Write(&shp.Point{X: -78.9, Y: 36.0})
	w.WriteAttribute(int(n), 0, "123456")
	w.WriteAttribute(int(n), 1, "cafe")
	w.WriteAttribute(int(n), 2, "Corner Cafe")
	w.WriteAttribute(int(n), 3, "555-1234")

	n = w.Write(&shp.Point{X: -78.8, Y: 36.1})
	w.WriteAttribute(int(n), 0, "") // no osm_id: skipped
	w.WriteAttribute(int(n), 1, "cafe")

	n = w.Write(&shp.Point{X: -78.7, Y: 36.2})
	w.WriteAttribute(int(n), 0, "789")
	w.WriteAttribute(int(n), 1, "supermarket")
	w.WriteAttribute(int(n), 2, "Big Grocer")

	w.Close()
	return path
}

func TestParseShapefile_Points(t *testing.T) {
	rows, err := ParseShapefile(writePointShapefile(t))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "node/123456", first[0])
	assert.Equal(t, "Corner Cafe", first[1])
	assert.JSONEq(t, `{"amenity":"cafe"}`, first[2].(string))
	assert.Equal(t, "555-1234", first[4])
	assert.NotEmpty(t, first[7].([]byte)) // EWKB geometry

	second := rows[1]
	assert.Equal(t, "node/789", second[0])
	assert.JSONEq(t, `{"shop":"supermarket"}`, second[2].(string))
}

func TestTagsFor(t *testing.T) {
	assert.Equal(t, map[string]string{"amenity": "cafe"}, tagsFor("cafe"))
	assert.Equal(t, map[string]string{"shop": "supermarket"}, tagsFor("Supermarket"))
	assert.Equal(t, map[string]string{"leisure": "park"}, tagsFor("park"))
	assert.Equal(t, map[string]string{"highway": "bus_stop"}, tagsFor("bus_stop"))
	assert.Nil(t, tagsFor(""))
}

func TestNormalizeOSMID(t *testing.T) {
	assert.Equal(t, "node/42", normalizeOSMID("42"))
	assert.Equal(t, "way/42", normalizeOSMID("way/42"))
}

func TestShapePoint_PolygonCentroid(t *testing.T) {
	poly := &shp.Polygon{
		NumParts:  1,
		NumPoints: 5,
		Parts:     []int32{0},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}, {X: 0, Y: 0},
		},
	}
	lon, lat, ok := shapePoint(poly)
	require.True(t, ok)
	assert.InDelta(t, 1.0, lon, 1e-9)
	assert.InDelta(t, 1.0, lat, 1e-9)
}

func TestBulkLoad_Batches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"poi"}, columns).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"poi"}, columns).WillReturnResult(1)

	rows := [][]any{
		{"node/1", "", "{}", "", "", "", "", []byte{1}},
		{"node/2", "", "{}", "", "", "", "", []byte{1}},
		{"node/3", "", "{}", "", "", "", "", []byte{1}},
	}
	n, err := BulkLoad(context.Background(), mock, rows, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkLoad_Empty(t *testing.T) {
	n, err := BulkLoad(context.Background(), nil, nil, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS poi").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}
