// Package geo provides the planar-frame math for the search engine: UTM frame
// selection, vertex-wise projection of go-geom geometries, area measurement,
// and polygon set operations backed by polygol.
//
// All metric distance and area math happens in a single UTM frame chosen once
// per session from the center point. Sessions whose radius crosses into a
// neighboring UTM zone keep using the center's frame; this is an accepted
// approximation.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

const (
	// MetersPerMile converts statute miles to meters.
	MetersPerMile = 1609.34

	// SqMetersPerSqMile converts square meters to square miles.
	SqMetersPerSqMile = 2589988.11
)

// ErrInvalidCoordinate marks NaN or out-of-range geographic coordinates.
var ErrInvalidCoordinate = eris.New("geo: invalid coordinate")

// PlanarFrame identifies the local UTM projection used for metric math.
type PlanarFrame struct {
	EPSG     int
	Zone     int
	Northern bool
}

// EstimatePlanarFrame picks the UTM frame containing the given point:
// EPSG 32600+zone in the northern hemisphere, 32700+zone in the southern.
func EstimatePlanarFrame(lon, lat float64) (PlanarFrame, error) {
	if err := validateLonLat(lon, lat); err != nil {
		return PlanarFrame{}, err
	}
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone > 60 {
		zone = 60 // lon == 180 falls into zone 60
	}
	f := PlanarFrame{Zone: zone, Northern: lat >= 0}
	if f.Northern {
		f.EPSG = 32600 + zone
	} else {
		f.EPSG = 32700 + zone
	}
	return f, nil
}

// centralMeridian returns the frame's central meridian in radians.
func (f PlanarFrame) centralMeridian() float64 {
	return float64((f.Zone-1)*6-180+3) * math.Pi / 180
}

// WGS84 ellipsoid and UTM constants.
const (
	wgs84A       = 6378137.0
	wgs84E2      = 0.00669437999014
	utmK0        = 0.9996
	utmFalseE    = 500000.0
	utmFalseN    = 10000000.0
	degToRad     = math.Pi / 180
	radToDeg     = 180 / math.Pi
	wgs84EPrime2 = wgs84E2 / (1 - wgs84E2)
)

// Project converts a geographic (lon/lat) geometry into the frame's planar
// easting/northing coordinates, vertex by vertex.
func Project(g geom.T, f PlanarFrame) (geom.T, error) {
	return transform(g, func(lon, lat float64) (float64, float64, error) {
		return projectPoint(lon, lat, f)
	})
}

// Unproject converts a planar geometry in the given frame back to lon/lat.
func Unproject(g geom.T, f PlanarFrame) (geom.T, error) {
	return transform(g, func(e, n float64) (float64, float64, error) {
		return unprojectPoint(e, n, f)
	})
}

// ProjectCoord converts a single geographic coordinate to the planar frame.
func ProjectCoord(c geom.Coord, f PlanarFrame) (geom.Coord, error) {
	e, n, err := projectPoint(c[0], c[1], f)
	if err != nil {
		return nil, err
	}
	return geom.Coord{e, n}, nil
}

// projectPoint implements the standard transverse Mercator forward series
// (Snyder 1987, eq. 8-9..8-15) with the frame's central meridian.
func projectPoint(lon, lat float64, f PlanarFrame) (easting, northing float64, err error) {
	if err := validateLonLat(lon, lat); err != nil {
		return 0, 0, err
	}

	phi := lat * degToRad
	lam := lon * degToRad
	lam0 := f.centralMeridian()

	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	tanPhi := sinPhi / cosPhi

	nu := wgs84A / math.Sqrt(1-wgs84E2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := wgs84EPrime2 * cosPhi * cosPhi
	a := cosPhi * normalizeLonDelta(lam-lam0)

	m := meridianArc(phi)

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	easting = utmK0*nu*(a+(1-t+c)*a3/6+(5-18*t+t*t+72*c-58*wgs84EPrime2)*a5/120) + utmFalseE
	northing = utmK0 * (m + nu*tanPhi*(a2/2+(5-t+9*c+4*c*c)*a4/24+(61-58*t+t*t+600*c-330*wgs84EPrime2)*a6/720))
	if !f.Northern {
		northing += utmFalseN
	}
	return easting, northing, nil
}

// unprojectPoint implements the transverse Mercator inverse series.
func unprojectPoint(easting, northing float64, f PlanarFrame) (lon, lat float64, err error) {
	if math.IsNaN(easting) || math.IsNaN(northing) {
		return 0, 0, eris.Wrapf(ErrInvalidCoordinate, "easting=%v northing=%v", easting, northing)
	}

	x := easting - utmFalseE
	y := northing
	if !f.Northern {
		y -= utmFalseN
	}

	e2 := wgs84E2
	m := y / utmK0
	mu := m / (wgs84A * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1, cosPhi1 := math.Sin(phi1), math.Cos(phi1)
	tanPhi1 := sinPhi1 / cosPhi1

	c1 := wgs84EPrime2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	n1 := wgs84A / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := wgs84A * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := x / (n1 * utmK0)

	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	phi := phi1 - (n1*tanPhi1/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*wgs84EPrime2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*wgs84EPrime2-3*c1*c1)*d6/720)
	lam := (d - (1+2*t1+c1)*d3/6 + (5-2*c1+28*t1-3*c1*c1+8*wgs84EPrime2+24*t1*t1)*d5/120) / cosPhi1

	lat = phi * radToDeg
	lon = (f.centralMeridian() + lam) * radToDeg
	return lon, lat, nil
}

// meridianArc returns the meridional arc length from the equator to latitude phi.
func meridianArc(phi float64) float64 {
	e2 := wgs84E2
	e4 := e2 * e2
	e6 := e4 * e2
	return wgs84A * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

// normalizeLonDelta wraps a longitude difference into (-pi, pi].
func normalizeLonDelta(d float64) float64 {
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// transform rebuilds g with every vertex mapped through fn.
func transform(g geom.T, fn func(x, y float64) (float64, float64, error)) (geom.T, error) {
	if g == nil {
		return nil, eris.New("geo: nil geometry")
	}
	stride := g.Stride()
	src := g.FlatCoords()
	flat := make([]float64, len(src))
	copy(flat, src)
	for i := 0; i+1 < len(flat); i += stride {
		x, y, err := fn(flat[i], flat[i+1])
		if err != nil {
			return nil, err
		}
		flat[i], flat[i+1] = x, y
	}

	switch t := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(t.Layout(), flat), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(t.Layout(), flat), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(t.Layout(), flat), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(t.Layout(), flat, t.Ends()), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(t.Layout(), flat, t.Endss()), nil
	default:
		return nil, eris.Errorf("geo: unsupported geometry type %T", g)
	}
}

func validateLonLat(lon, lat float64) error {
	if math.IsNaN(lon) || math.IsNaN(lat) || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return eris.Wrapf(ErrInvalidCoordinate, "lon=%v lat=%v", lon, lat)
	}
	return nil
}
