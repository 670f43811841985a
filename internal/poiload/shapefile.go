package poiload

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	geoops "github.com/atashie/locationAnalyzer/internal/geo"
)

// columns is the COPY column order.
var columns = []string{"osm_id", "name", "tags", "address", "phone", "website", "opening_hours", "geom"}

// fclassKeys maps the feature-class values found in common OSM shapefile
// extracts to the tag key they belong under. Anything unlisted defaults to
// amenity.
var fclassKeys = map[string]string{
	"supermarket": "shop", "convenience": "shop", "mall": "shop",
	"doityourself": "shop", "bakery": "shop", "butcher": "shop",
	"park": "leisure", "playground": "leisure", "fitness_centre": "leisure",
	"pitch": "leisure", "sports_centre": "leisure",
	"bus_stop": "highway",
	"station":  "public_transport",
	"hotel":    "tourism", "museum": "tourism", "attraction": "tourism",
}

// tagsFor converts a shapefile feature class into an OSM tag filter document.
func tagsFor(fclass string) map[string]string {
	fclass = strings.ToLower(strings.TrimSpace(fclass))
	if fclass == "" {
		return nil
	}
	key, ok := fclassKeys[fclass]
	if !ok {
		key = "amenity"
	}
	return map[string]string{key: fclass}
}

// ParseShapefile reads a POI shapefile and returns rows matching columns.
// Point features keep their coordinates; polygon footprints are reduced to
// their centroid. Features without an osm_id or a usable geometry are
// skipped.
func ParseShapefile(path string) ([][]any, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "poiload: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	// Attribute reads from the record most recently returned by Next.
	attr := func(name string) string {
		idx, ok := fieldIdx[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	}

	var rows [][]any
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		osmID := attr("osm_id")
		if osmID == "" {
			skipped++
			continue
		}

		lon, lat, ok := shapePoint(shape)
		if !ok {
			skipped++
			continue
		}

		tags := tagsFor(attr("fclass"))
		if tags == nil {
			skipped++
			continue
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			skipped++
			continue
		}

		wkb, err := encodePoint(lon, lat)
		if err != nil {
			skipped++
			continue
		}

		rows = append(rows, []any{
			normalizeOSMID(osmID),
			attr("name"),
			string(tagsJSON),
			attr("address"),
			attr("phone"),
			attr("website"),
			attr("opening_ho"), // DBF truncates field names to 10 chars
			wkb,
		})
	}

	if skipped > 0 {
		zap.L().Debug("poiload: skipped shapefile records", zap.Int("skipped", skipped))
	}
	return rows, nil
}

// shapePoint reduces a shapefile geometry to one lon/lat point.
func shapePoint(shape shp.Shape) (lon, lat float64, ok bool) {
	switch s := shape.(type) {
	case *shp.Point:
		return s.X, s.Y, true
	case *shp.Polygon:
		g := polygonGeom(s)
		if g == nil {
			return 0, 0, false
		}
		c := geoops.Centroid(g)
		return c[0], c[1], true
	default:
		return 0, 0, false
	}
}

// polygonGeom converts a shapefile polygon's rings to a geom.Polygon.
func polygonGeom(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}
	flat := make([]float64, 0, len(p.Points)*2)
	ends := make([]int, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ends = append(ends, len(flat))
	}
	if len(flat) < 8 {
		return nil
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends)
}

func encodePoint(lon, lat float64) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "poiload: encode point")
	}
	return data, nil
}

// normalizeOSMID prefixes bare numeric IDs the way the Overpass provider
// formats them, so both providers agree on feature identity.
func normalizeOSMID(id string) string {
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return "node/" + id
	}
	return id
}
