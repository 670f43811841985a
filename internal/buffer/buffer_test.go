package buffer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/atashie/locationAnalyzer/internal/geo"
	"github.com/atashie/locationAnalyzer/internal/model"
)

func testFrame(t *testing.T) geo.PlanarFrame {
	t.Helper()
	f, err := geo.EstimatePlanarFrame(-78.8986, 35.9940)
	require.NoError(t, err)
	return f
}

func TestSimple_SinglePoint(t *testing.T) {
	b := New(testFrame(t))

	out, err := b.Simple([]geom.Coord{{-78.8986, 35.9940}}, 2.0)
	require.NoError(t, err)

	area, err := geo.AreaSqMiles(out, testFrame(t))
	require.NoError(t, err)
	expected := math.Pi * 4
	assert.InDelta(t, expected, area, expected*0.02)
}

func TestSimple_OverlappingPointsMerge(t *testing.T) {
	b := New(testFrame(t))

	// Two points ~0.7 miles apart with 1-mile buffers overlap heavily:
	// union area must be well below two full disks.
	out, err := b.Simple([]geom.Coord{
		{-78.8986, 35.9940},
		{-78.8986, 36.0040},
	}, 1.0)
	require.NoError(t, err)

	area, err := geo.AreaSqMiles(out, testFrame(t))
	require.NoError(t, err)
	assert.Greater(t, area, math.Pi)
	assert.Less(t, area, 2*math.Pi)
}

func TestSimple_NoPoints(t *testing.T) {
	b := New(testFrame(t))
	_, err := b.Simple(nil, 1.0)
	require.Error(t, err)
}

func TestSimple_InvalidRadius(t *testing.T) {
	b := New(testFrame(t))
	_, err := b.Simple([]geom.Coord{{-78.9, 36.0}}, 0)
	require.Error(t, err)
}

func TestOrganic_VertexRadiusBound(t *testing.T) {
	// Every sampled vertex radius must lie within R*(1-I)..R*(1+I).
	for mode, intensity := range modeIntensities {
		for _, rMeters := range []float64{500.0, 2500.0, 12000.0} {
			flatBounds(t, mode, intensity, rMeters)
		}
	}
}

func flatBounds(t *testing.T, mode model.Mode, intensity, r float64) {
	t.Helper()
	for i := 0; i < organicVertices; i++ {
		theta := 2 * math.Pi * float64(i) / organicVertices
		scaled := radialVariation(theta) * (intensity / referenceIntensity)
		if scaled > intensity {
			scaled = intensity
		} else if scaled < -intensity {
			scaled = -intensity
		}
		radius := r * (1 + scaled)
		assert.GreaterOrEqual(t, radius, r*(1-intensity)-1e-9, "mode=%s theta=%v", mode, theta)
		assert.LessOrEqual(t, radius, r*(1+intensity)+1e-9, "mode=%s theta=%v", mode, theta)
	}
}

func TestOrganic_Deterministic(t *testing.T) {
	b := New(testFrame(t))
	pts := []geom.Coord{{-78.8986, 35.9940}}

	first, err := b.Organic(pts, 1.5, model.ModeDrive)
	require.NoError(t, err)
	second, err := b.Organic(pts, 1.5, model.ModeDrive)
	require.NoError(t, err)

	assert.Equal(t, first.FlatCoords(), second.FlatCoords())
}

func TestOrganic_ModeChangesShape(t *testing.T) {
	b := New(testFrame(t))
	pts := []geom.Coord{{-78.8986, 35.9940}}

	walk, err := b.Organic(pts, 1.5, model.ModeWalk)
	require.NoError(t, err)
	drive, err := b.Organic(pts, 1.5, model.ModeDrive)
	require.NoError(t, err)

	assert.NotEqual(t, walk.FlatCoords(), drive.FlatCoords())
}

func TestOrganic_AreaNearCircle(t *testing.T) {
	// The organic shape wobbles around the base radius, so its area should
	// stay in the same ballpark as the plain circle.
	b := New(testFrame(t))

	out, err := b.Organic([]geom.Coord{{-78.8986, 35.9940}}, 2.0, model.ModeWalk)
	require.NoError(t, err)

	area, err := geo.AreaSqMiles(out, testFrame(t))
	require.NoError(t, err)
	circle := math.Pi * 4
	assert.InDelta(t, circle, area, circle*0.20)
}
