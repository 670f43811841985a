package geo

import (
	"math"

	"github.com/engelsjk/polygol"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// diskSegments is the vertex count used when approximating a circle.
const diskSegments = 64

// Union returns the union of the given polygonal geometries as a MultiPolygon.
func Union(gs ...geom.T) (geom.T, error) {
	if len(gs) == 0 {
		return emptyMultiPolygon(), nil
	}
	first := toPolygol(gs[0])
	rest := make([]polygol.Geom, 0, len(gs)-1)
	for _, g := range gs[1:] {
		rest = append(rest, toPolygol(g))
	}
	out, err := polygol.Union(first, rest...)
	if err != nil {
		return nil, eris.Wrap(err, "geo: union")
	}
	return fromPolygol(out), nil
}

// Intersect returns a ∩ b as a MultiPolygon. An empty result is valid.
func Intersect(a, b geom.T) (geom.T, error) {
	out, err := polygol.Intersection(toPolygol(a), toPolygol(b))
	if err != nil {
		return nil, eris.Wrap(err, "geo: intersection")
	}
	return fromPolygol(out), nil
}

// Difference returns a \ b as a MultiPolygon.
func Difference(a, b geom.T) (geom.T, error) {
	out, err := polygol.Difference(toPolygol(a), toPolygol(b))
	if err != nil {
		return nil, eris.Wrap(err, "geo: difference")
	}
	return fromPolygol(out), nil
}

// Disk returns a closed polygon approximating a circle of radius r (planar
// units) around center. r must be positive.
func Disk(center geom.Coord, r float64) *geom.Polygon {
	flat := make([]float64, 0, (diskSegments+1)*2)
	for i := 0; i <= diskSegments; i++ {
		theta := 2 * math.Pi * float64(i%diskSegments) / diskSegments
		flat = append(flat, center[0]+r*math.Cos(theta), center[1]+r*math.Sin(theta))
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// Dilate grows a planar polygonal geometry outward by dist, approximating the
// Minkowski sum with a disk: the geometry is unioned with a capsule along
// every ring edge.
func Dilate(g geom.T, dist float64) (geom.T, error) {
	if dist <= 0 {
		return g, nil
	}
	caps := boundaryCapsules(g, dist)
	if len(caps) == 0 {
		return g, nil
	}
	return Union(append([]geom.T{g}, caps...)...)
}

// Erode shrinks a planar polygonal geometry inward by dist by subtracting the
// dilated boundary. Thin features narrower than 2*dist disappear.
func Erode(g geom.T, dist float64) (geom.T, error) {
	if dist <= 0 {
		return g, nil
	}
	caps := boundaryCapsules(g, dist)
	if len(caps) == 0 {
		return g, nil
	}
	band, err := Union(caps...)
	if err != nil {
		return nil, err
	}
	return Difference(g, band)
}

// boundaryCapsules builds a capsule (edge rectangle plus end disks) for every
// ring edge of g.
func boundaryCapsules(g geom.T, dist float64) []geom.T {
	var caps []geom.T
	for _, ring := range rings(g) {
		for i := 0; i+3 < len(ring); i += 2 {
			x1, y1 := ring[i], ring[i+1]
			x2, y2 := ring[i+2], ring[i+3]
			caps = append(caps, Disk(geom.Coord{x1, y1}, dist))
			dx, dy := x2-x1, y2-y1
			length := math.Hypot(dx, dy)
			if length == 0 {
				continue
			}
			// Unit normal to the edge.
			nx, ny := -dy/length*dist, dx/length*dist
			rect := geom.NewPolygonFlat(geom.XY, []float64{
				x1 + nx, y1 + ny,
				x2 + nx, y2 + ny,
				x2 - nx, y2 - ny,
				x1 - nx, y1 - ny,
				x1 + nx, y1 + ny,
			}, []int{10})
			caps = append(caps, rect)
		}
		// Close the loop: disk at the last distinct vertex.
		if len(ring) >= 2 {
			caps = append(caps, Disk(geom.Coord{ring[len(ring)-2], ring[len(ring)-1]}, dist))
		}
	}
	return caps
}

// rings returns each linear ring of g as a flat coordinate slice.
func rings(g geom.T) [][]float64 {
	var out [][]float64
	switch t := g.(type) {
	case *geom.Polygon:
		for i := 0; i < t.NumLinearRings(); i++ {
			out = append(out, t.LinearRing(i).FlatCoords())
		}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			p := t.Polygon(i)
			for j := 0; j < p.NumLinearRings(); j++ {
				out = append(out, p.LinearRing(j).FlatCoords())
			}
		}
	}
	return out
}

// toPolygol converts a polygonal go-geom geometry to polygol's multipolygon
// representation. Non-polygonal input yields an empty geometry.
func toPolygol(g geom.T) polygol.Geom {
	var mp polygol.Geom
	switch t := g.(type) {
	case *geom.Polygon:
		mp = append(mp, polygonRings(t))
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			mp = append(mp, polygonRings(t.Polygon(i)))
		}
	}
	if mp == nil {
		mp = polygol.Geom{}
	}
	return mp
}

func polygonRings(p *geom.Polygon) [][][]float64 {
	poly := make([][][]float64, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		flat := p.LinearRing(i).FlatCoords()
		ring := make([][]float64, 0, len(flat)/2)
		for j := 0; j+1 < len(flat); j += 2 {
			ring = append(ring, []float64{flat[j], flat[j+1]})
		}
		poly = append(poly, ring)
	}
	return poly
}

// fromPolygol converts a polygol multipolygon back to a go-geom MultiPolygon.
func fromPolygol(mp polygol.Geom) *geom.MultiPolygon {
	out := geom.NewMultiPolygon(geom.XY)
	for _, poly := range mp {
		p := geom.NewPolygon(geom.XY)
		for _, ring := range poly {
			flat := make([]float64, 0, len(ring)*2)
			for _, pt := range ring {
				if len(pt) < 2 {
					continue
				}
				flat = append(flat, pt[0], pt[1])
			}
			if len(flat) < 8 { // fewer than 4 points cannot close a ring
				continue
			}
			// polygol may omit the closing vertex; go-geom rings are closed.
			if flat[0] != flat[len(flat)-2] || flat[1] != flat[len(flat)-1] {
				flat = append(flat, flat[0], flat[1])
			}
			_ = p.Push(geom.NewLinearRingFlat(geom.XY, flat))
		}
		if p.NumLinearRings() > 0 {
			_ = out.Push(p)
		}
	}
	return out
}

func emptyMultiPolygon() *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY)
}

// IsEmpty reports whether g has no polygonal content.
func IsEmpty(g geom.T) bool {
	if g == nil {
		return true
	}
	switch t := g.(type) {
	case *geom.Polygon:
		return t.NumLinearRings() == 0 || len(t.FlatCoords()) == 0
	case *geom.MultiPolygon:
		return t.NumPolygons() == 0 || len(t.FlatCoords()) == 0
	}
	return len(g.FlatCoords()) == 0
}

// Centroid returns the area-weighted centroid of a polygonal geometry. For
// degenerate (zero-area) input it falls back to the vertex average.
func Centroid(g geom.T) geom.Coord {
	var cx, cy, area float64
	for _, ring := range rings(g) {
		for i := 0; i+3 < len(ring); i += 2 {
			x1, y1 := ring[i], ring[i+1]
			x2, y2 := ring[i+2], ring[i+3]
			cross := x1*y2 - x2*y1
			area += cross
			cx += (x1 + x2) * cross
			cy += (y1 + y2) * cross
		}
	}
	if area != 0 {
		area /= 2
		return geom.Coord{cx / (6 * area), cy / (6 * area)}
	}

	var sx, sy float64
	var n int
	flat := g.FlatCoords()
	stride := g.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		sx += flat[i]
		sy += flat[i+1]
		n++
	}
	if n == 0 {
		return geom.Coord{0, 0}
	}
	return geom.Coord{sx / float64(n), sy / float64(n)}
}
