package buffer

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/atashie/locationAnalyzer/internal/geo"
	"github.com/atashie/locationAnalyzer/internal/model"
)

// organicVertices is the number of boundary samples of the anisotropic shape.
const organicVertices = 36

// smoothingFraction of the base radius used for the dilate-then-erode pass
// that rounds off vertex artifacts.
const smoothingFraction = 0.01

// referenceIntensity normalizes the harmonic amplitudes, which were tuned at
// the bike intensity.
const referenceIntensity = 0.20

// modeIntensities controls how far each mode's reachability shape deviates
// from a circle. Driving deviates most: road networks are sparser and more
// directional than footpaths.
var modeIntensities = map[model.Mode]float64{
	model.ModeWalk:  0.15,
	model.ModeBike:  0.20,
	model.ModeDrive: 0.25,
}

// intensityFor returns the radial deviation intensity for a travel mode,
// defaulting to the reference intensity for anything unrecognized.
func intensityFor(mode model.Mode) float64 {
	if i, ok := modeIntensities[mode]; ok {
		return i
	}
	return referenceIntensity
}

// radialVariation is the fixed sine-harmonic field that gives the buffer its
// organic outline. No randomness: identical inputs must always produce
// identical shapes.
func radialVariation(theta float64) float64 {
	return 0.12*math.Sin(2*theta+0.3) +
		0.08*math.Sin(4*theta+1.2) +
		0.05*math.Sin(3*theta+2.1) +
		0.04*math.Sin(5*theta+0.7)
}

// organicShape builds one smoothed anisotropic polygon of base radius r
// (planar meters) around a projected center point. The scaled variation is
// clamped to the mode intensity so every vertex radius stays within
// r*(1-I)..r*(1+I).
func organicShape(center geom.Coord, r float64, mode model.Mode) (geom.T, error) {
	intensity := intensityFor(mode)

	flat := make([]float64, 0, (organicVertices+1)*2)
	for i := 0; i <= organicVertices; i++ {
		theta := 2 * math.Pi * float64(i%organicVertices) / organicVertices
		scaled := radialVariation(theta) * (intensity / referenceIntensity)
		if scaled > intensity {
			scaled = intensity
		} else if scaled < -intensity {
			scaled = -intensity
		}
		radius := r * (1 + scaled)
		flat = append(flat, center[0]+radius*math.Cos(theta), center[1]+radius*math.Sin(theta))
	}
	raw := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})

	// Dilate-then-erode by the same amount removes sharp vertex artifacts
	// while preserving the overall outline.
	smoothing := smoothingFraction * r
	dilated, err := geo.Dilate(raw, smoothing)
	if err != nil {
		return nil, err
	}
	return geo.Erode(dilated, smoothing)
}
