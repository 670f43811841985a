package search

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/atashie/locationAnalyzer/internal/geo"
)

// DefaultMaxExpansionMiles caps how far a POI query area may grow beyond the
// current candidate area. Features further out than a criterion's own reach
// cannot contribute anyway, and unbounded growth makes provider queries
// expensive.
const DefaultMaxExpansionMiles = 5.0

// expandQueryArea grows the current candidate area outward by the criterion's
// effective reach (capped at maxMiles) and clips the result to the initial
// search boundary. POI queries run against the expanded area so that features
// just outside the current area, but within reach of it, are still found.
func expandQueryArea(st *State, effectiveMiles, maxMiles float64) (geom.T, error) {
	if geo.IsEmpty(st.Area) {
		return st.Area, nil
	}

	miles := math.Min(effectiveMiles, maxMiles)
	projected, err := geo.Project(st.Area, st.Frame)
	if err != nil {
		return nil, err
	}
	dilated, err := geo.Dilate(projected, miles*geo.MetersPerMile)
	if err != nil {
		return nil, err
	}
	grown, err := geo.Unproject(dilated, st.Frame)
	if err != nil {
		return nil, err
	}
	return geo.Intersect(grown, st.Boundary)
}
