package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// AreaSqMiles projects a geographic geometry into the given planar frame and
// returns its area in square miles. Pure and deterministic.
func AreaSqMiles(g geom.T, f PlanarFrame) (float64, error) {
	if IsEmpty(g) {
		return 0, nil
	}
	projected, err := Project(g, f)
	if err != nil {
		return 0, err
	}
	return PlanarArea(projected) / SqMetersPerSqMile, nil
}

// PlanarArea returns the area of a planar polygonal geometry in square units.
// The absolute value makes the result independent of ring orientation.
func PlanarArea(g geom.T) float64 {
	switch t := g.(type) {
	case *geom.Polygon:
		return math.Abs(t.Area())
	case *geom.MultiPolygon:
		return math.Abs(t.Area())
	default:
		return 0
	}
}
