package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func square(x, y, half float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		x - half, y - half,
		x + half, y - half,
		x + half, y + half,
		x - half, y + half,
		x - half, y - half,
	}, []int{10})
}

func TestDisk(t *testing.T) {
	d := Disk(geom.Coord{0, 0}, 100)

	// Every vertex sits on the circle.
	flat := d.FlatCoords()
	for i := 0; i+1 < len(flat); i += 2 {
		assert.InDelta(t, 100, math.Hypot(flat[i], flat[i+1]), 1e-9)
	}

	// Ring is closed.
	n := len(flat)
	assert.Equal(t, flat[0], flat[n-2])
	assert.Equal(t, flat[1], flat[n-1])

	// Area close to pi*r^2 for a 64-gon.
	assert.InDelta(t, math.Pi*100*100, PlanarArea(d), math.Pi*100*100*0.01)
}

func TestIntersect_Overlap(t *testing.T) {
	a := square(0, 0, 10)
	b := square(10, 0, 10)

	out, err := Intersect(a, b)
	require.NoError(t, err)

	// Overlap is a 10x20 rectangle.
	assert.InDelta(t, 200, PlanarArea(out), 1e-6)
}

func TestIntersect_Disjoint(t *testing.T) {
	a := square(0, 0, 5)
	b := square(100, 100, 5)

	out, err := Intersect(a, b)
	require.NoError(t, err)
	assert.True(t, IsEmpty(out))
	assert.Zero(t, PlanarArea(out))
}

func TestUnion_Disjoint(t *testing.T) {
	a := square(0, 0, 5)
	b := square(100, 100, 5)

	out, err := Union(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 200, PlanarArea(out), 1e-6)
}

func TestDifference(t *testing.T) {
	outer := square(0, 0, 10)
	inner := square(0, 0, 5)

	out, err := Difference(outer, inner)
	require.NoError(t, err)
	assert.InDelta(t, 400-100, PlanarArea(out), 1e-6)
}

func TestDilate_GrowsArea(t *testing.T) {
	s := square(0, 0, 10)

	out, err := Dilate(s, 5)
	require.NoError(t, err)

	// 20x20 square dilated by 5: 30x30 minus rounded corners,
	// area = 400 + 4*20*5 + pi*25.
	expected := 400 + 400 + math.Pi*25
	assert.InDelta(t, expected, PlanarArea(out), expected*0.01)
}

func TestErode_ShrinksArea(t *testing.T) {
	s := square(0, 0, 10)

	out, err := Erode(s, 5)
	require.NoError(t, err)

	// 20x20 square eroded by 5 leaves a 10x10 core.
	assert.InDelta(t, 100, PlanarArea(out), 100*0.02)
}

func TestErode_EliminatesThinFeatures(t *testing.T) {
	thin := geom.NewPolygonFlat(geom.XY, []float64{
		0, 0, 100, 0, 100, 4, 0, 4, 0, 0,
	}, []int{10})

	out, err := Erode(thin, 5)
	require.NoError(t, err)
	assert.Zero(t, PlanarArea(out))
}

func TestCentroid(t *testing.T) {
	s := square(30, -20, 10)
	c := Centroid(s)
	assert.InDelta(t, 30, c[0], 1e-9)
	assert.InDelta(t, -20, c[1], 1e-9)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(geom.NewMultiPolygon(geom.XY)))
	assert.False(t, IsEmpty(square(0, 0, 1)))
}
