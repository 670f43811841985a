// Package model holds the domain types shared across the analysis engine:
// criteria, features, and per-criterion results.
package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Mode is how a criterion's reach is measured.
type Mode string

const (
	// ModeDistance measures straight-line distance in miles.
	ModeDistance Mode = "distance"
	// ModeWalk, ModeBike and ModeDrive measure travel time in minutes.
	ModeWalk  Mode = "walk"
	ModeBike  Mode = "bike"
	ModeDrive Mode = "drive"
)

// travelProfile holds the per-mode constants used to turn minutes into an
// effective straight-line radius. Speed is in mph; the adjustment divides the
// nominal speed*time distance because real paths are not straight.
type travelProfile struct {
	SpeedMPH   float64
	Adjustment float64
}

var travelProfiles = map[Mode]travelProfile{
	ModeWalk:  {SpeedMPH: 3.0, Adjustment: 1.2},
	ModeBike:  {SpeedMPH: 12.0, Adjustment: 1.3},
	ModeDrive: {SpeedMPH: 30.0, Adjustment: 1.5},
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	if m == ModeDistance {
		return true
	}
	_, ok := travelProfiles[m]
	return ok
}

// Rank orders modes by nominal reach: distance < walk < bike < drive.
func (m Mode) Rank() int {
	switch m {
	case ModeDistance:
		return 0
	case ModeWalk:
		return 1
	case ModeBike:
		return 2
	case ModeDrive:
		return 3
	default:
		return 4
	}
}

// CriterionKind distinguishes POI-type searches from specific named locations.
type CriterionKind string

const (
	KindPOIType  CriterionKind = "poi"
	KindLocation CriterionKind = "location"
)

// Criterion is one proximity constraint requested by the caller.
type Criterion struct {
	Kind     CriterionKind
	POIType  map[string]string // OSM tag filter; set iff Kind == KindPOIType
	Location string            // free-form place string; set iff Kind == KindLocation
	Mode     Mode
	Value    float64 // miles (distance mode) or minutes (travel modes)
	Name     string  // display name; defaulted if empty
}

// Validate checks the criterion invariants: exactly one of POIType/Location
// set, a known mode, and a positive value.
func (c Criterion) Validate() error {
	switch c.Kind {
	case KindPOIType:
		if len(c.POIType) == 0 {
			return eris.New("criterion: poi criterion requires a tag filter")
		}
		if c.Location != "" {
			return eris.New("criterion: poi criterion must not set a location")
		}
	case KindLocation:
		if strings.TrimSpace(c.Location) == "" {
			return eris.New("criterion: location criterion requires a location")
		}
		if len(c.POIType) != 0 {
			return eris.New("criterion: location criterion must not set a tag filter")
		}
	default:
		return eris.Errorf("criterion: unknown kind %q", c.Kind)
	}
	if !c.Mode.Valid() {
		return eris.Errorf("criterion: unknown mode %q", c.Mode)
	}
	if c.Value <= 0 {
		return eris.Errorf("criterion: value must be positive, got %v", c.Value)
	}
	return nil
}

// EffectiveRadiusMiles is the straight-line-equivalent reach of the
// criterion. Distance criteria use their value directly; travel-time criteria
// convert minutes via mode speed, then divide by the path-deviation
// adjustment.
func (c Criterion) EffectiveRadiusMiles() float64 {
	if c.Mode == ModeDistance {
		return c.Value
	}
	p, ok := travelProfiles[c.Mode]
	if !ok {
		return c.Value
	}
	return (c.Value / 60) * p.SpeedMPH / p.Adjustment
}

// DisplayName returns the criterion's name, defaulting to something readable.
func (c Criterion) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Kind == KindLocation {
		name := c.Location
		if len(name) > 30 {
			name = name[:30]
		}
		return name
	}
	parts := make([]string, 0, len(c.POIType))
	for k, v := range c.POIType {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

// Description returns the human-readable reach description recorded on the
// criterion's result.
func (c Criterion) Description() string {
	if c.Mode == ModeDistance {
		return fmt.Sprintf("Within %g miles (straight-line)", c.Value)
	}
	return fmt.Sprintf("%s: %d min", c.Mode, int(c.Value))
}

// CriterionResult records one applied criterion. Results are immutable and
// appended in application order.
type CriterionResult struct {
	Name        string
	Description string
	Geometry    geom.T // geographic frame
	AreaSqMiles float64
	Order       int
	Features    []Feature // source features the buffer grew from
}
