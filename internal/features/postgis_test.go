package features

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var poiColumns = []string{"osm_id", "name", "st_x", "st_y", "address", "phone", "website", "opening_hours"}

func TestPostGISProvider_Query(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT osm_id, name").
		WithArgs(`{"amenity":"cafe"}`, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(poiColumns).
			AddRow("node/1", "Corner Cafe", -78.9, 36.0, "120 Main St", "555", "https://x", "Mo-Su").
			AddRow("node/2", "", -78.8, 36.1, "", "", "", ""))

	p := NewPostGISProvider(mock)
	got, err := p.Query(context.Background(), testArea(), map[string]string{"amenity": "cafe"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "node/1", got[0].ID)
	assert.Equal(t, "Corner Cafe", got[0].Name)
	assert.InDelta(t, -78.9, got[0].Lon, 1e-9)
	assert.InDelta(t, 36.0, got[0].Lat, 1e-9)

	assert.Equal(t, "Unnamed", got[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostGISProvider_EmptyTagFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := NewPostGISProvider(mock)
	_, err = p.Query(context.Background(), testArea(), nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostGISProvider_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT osm_id, name").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	p := NewPostGISProvider(mock)
	_, err = p.Query(context.Background(), testArea(), map[string]string{"amenity": "cafe"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poi query")
}
