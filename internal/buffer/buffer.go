// Package buffer builds criterion geometries around source points in the
// session's planar frame: plain circular disks for straight-line criteria and
// deterministic anisotropic polygons for travel-time criteria.
package buffer

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/atashie/locationAnalyzer/internal/geo"
	"github.com/atashie/locationAnalyzer/internal/model"
)

// Builder constructs buffer geometries in a fixed planar frame. Inputs and
// outputs are geographic (lon/lat); all radius math happens projected.
type Builder struct {
	frame geo.PlanarFrame
}

// New creates a Builder bound to the session's planar frame.
func New(frame geo.PlanarFrame) *Builder {
	return &Builder{frame: frame}
}

// Simple returns the union of circular disks of radiusMiles around each
// source point, unprojected back to the geographic frame.
func (b *Builder) Simple(points []geom.Coord, radiusMiles float64) (geom.T, error) {
	if len(points) == 0 {
		return nil, eris.New("buffer: no source points")
	}
	if radiusMiles <= 0 {
		return nil, eris.Errorf("buffer: radius must be positive, got %v", radiusMiles)
	}

	r := radiusMiles * geo.MetersPerMile
	disks := make([]geom.T, 0, len(points))
	for _, pt := range points {
		center, err := geo.ProjectCoord(pt, b.frame)
		if err != nil {
			return nil, err
		}
		disks = append(disks, geo.Disk(center, r))
	}

	merged, err := geo.Union(disks...)
	if err != nil {
		return nil, err
	}
	return geo.Unproject(merged, b.frame)
}

// Organic returns the union of anisotropic travel-time buffers of the given
// effective radius around each source point, unprojected back to the
// geographic frame. The shape is deterministic for identical inputs.
func (b *Builder) Organic(points []geom.Coord, radiusMiles float64, mode model.Mode) (geom.T, error) {
	if len(points) == 0 {
		return nil, eris.New("buffer: no source points")
	}
	if radiusMiles <= 0 {
		return nil, eris.Errorf("buffer: radius must be positive, got %v", radiusMiles)
	}

	r := radiusMiles * geo.MetersPerMile
	shapes := make([]geom.T, 0, len(points))
	for _, pt := range points {
		center, err := geo.ProjectCoord(pt, b.frame)
		if err != nil {
			return nil, err
		}
		shape, err := organicShape(center, r, mode)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, shape)
	}

	merged, err := geo.Union(shapes...)
	if err != nil {
		return nil, err
	}
	return geo.Unproject(merged, b.frame)
}
