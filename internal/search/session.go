// Package search runs a progressive filtering session: a geocoded center and
// radius define the initial candidate area, and each applied criterion
// intersects it down. State is an explicit value threaded through Apply, so a
// failed step leaves the previous state untouched.
package search

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/atashie/locationAnalyzer/internal/buffer"
	"github.com/atashie/locationAnalyzer/internal/geo"
	"github.com/atashie/locationAnalyzer/internal/model"
	"github.com/atashie/locationAnalyzer/internal/rank"
)

// DefaultMaxCriteria bounds how many criteria a single session accepts.
const DefaultMaxCriteria = 8

// GeocodeResult is a resolved place. Matched=false means the provider
// answered but found nothing; that is not an error.
type GeocodeResult struct {
	Lon         float64
	Lat         float64
	DisplayName string
	Matched     bool
}

// Geocoder resolves free-form place text to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*GeocodeResult, error)
}

// FeatureProvider returns the features matching a tag filter inside a
// geographic polygon.
type FeatureProvider interface {
	Query(ctx context.Context, area geom.T, tags map[string]string) ([]model.Feature, error)
}

// IsochroneProvider computes a real travel-time reachability polygon. It is
// optional; when absent or failing, the engine falls back to deterministic
// anisotropic buffers.
type IsochroneProvider interface {
	Isochrone(ctx context.Context, lon, lat, minutes float64, mode model.Mode) (geom.T, error)
}

// Engine applies criteria against injected providers. It holds no session
// state of its own and is safe for concurrent sessions.
type Engine struct {
	geocoder          Geocoder
	features          FeatureProvider
	isochrones        IsochroneProvider
	maxExpansionMiles float64
	maxCriteria       int
}

// Option configures an Engine.
type Option func(*Engine)

// WithIsochrones enables real travel-time polygons for travel-mode criteria.
func WithIsochrones(p IsochroneProvider) Option {
	return func(e *Engine) { e.isochrones = p }
}

// WithMaxExpansionMiles overrides the query-area expansion cap.
func WithMaxExpansionMiles(miles float64) Option {
	return func(e *Engine) { e.maxExpansionMiles = miles }
}

// WithMaxCriteria overrides the per-session criteria limit.
func WithMaxCriteria(n int) Option {
	return func(e *Engine) { e.maxCriteria = n }
}

// NewEngine creates an Engine with the given providers.
func NewEngine(geocoder Geocoder, features FeatureProvider, opts ...Option) *Engine {
	e := &Engine{
		geocoder:          geocoder,
		features:          features,
		maxExpansionMiles: DefaultMaxExpansionMiles,
		maxCriteria:       DefaultMaxCriteria,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State is one session's explicit state. Apply never mutates its input state;
// it returns a new one, so callers keep a usable state even when a step
// fails.
type State struct {
	Center      geom.Coord
	CenterName  string
	RadiusMiles float64
	Frame       geo.PlanarFrame
	Boundary    geom.T // initial circular search boundary, geographic
	Area        geom.T // current candidate area, geographic
	Applied     []model.CriterionResult
	Skipped     []string
}

func (s *State) clone() *State {
	next := *s
	next.Applied = append([]model.CriterionResult(nil), s.Applied...)
	next.Skipped = append([]string(nil), s.Skipped...)
	return &next
}

// Init geocodes the session center and builds the initial circular candidate
// area. A center that cannot be resolved is a client error (ErrGeocode).
func (e *Engine) Init(ctx context.Context, center string, radiusMiles float64) (*State, error) {
	if radiusMiles <= 0 {
		return nil, eris.Wrapf(ErrValidation, "search radius must be positive, got %v", radiusMiles)
	}

	resolved, err := e.geocoder.Geocode(ctx, center)
	if err != nil {
		return nil, eris.Wrapf(ErrGeocode, "resolve %q: %v", center, err)
	}
	if !resolved.Matched {
		return nil, eris.Wrapf(ErrGeocode, "no match for %q", center)
	}

	frame, err := geo.EstimatePlanarFrame(resolved.Lon, resolved.Lat)
	if err != nil {
		return nil, err
	}
	centerCoord := geom.Coord{resolved.Lon, resolved.Lat}
	boundary, err := buffer.New(frame).Simple([]geom.Coord{centerCoord}, radiusMiles)
	if err != nil {
		return nil, err
	}

	zap.L().Info("session initialized",
		zap.String("center", resolved.DisplayName),
		zap.Float64("lon", resolved.Lon),
		zap.Float64("lat", resolved.Lat),
		zap.Int("epsg", frame.EPSG),
		zap.Float64("radius_miles", radiusMiles))

	return &State{
		Center:      centerCoord,
		CenterName:  resolved.DisplayName,
		RadiusMiles: radiusMiles,
		Frame:       frame,
		Boundary:    boundary,
		Area:        boundary,
	}, nil
}

// Apply intersects the current candidate area with one criterion's buffer and
// returns the new state. Criteria that yield no source points (unresolved
// location, failed or empty feature query) are skipped: recorded on the state
// and the area left unchanged. Malformed criteria return ErrValidation.
func (e *Engine) Apply(ctx context.Context, st *State, c model.Criterion) (*State, error) {
	if err := c.Validate(); err != nil {
		return st, eris.Wrapf(ErrValidation, "criterion %q: %v", c.DisplayName(), err)
	}

	sources, ok, err := e.sourceFeatures(ctx, st, c)
	if err != nil {
		return st, err
	}
	if !ok {
		next := st.clone()
		next.Skipped = append(next.Skipped, c.DisplayName())
		return next, nil
	}

	points := make([]geom.Coord, len(sources))
	for i, f := range sources {
		points[i] = geom.Coord{f.Lon, f.Lat}
	}
	buf, err := e.buildBuffer(ctx, st, c, points)
	if err != nil {
		return st, err
	}
	narrowed, err := geo.Intersect(st.Area, buf)
	if err != nil {
		return st, err
	}
	area, err := geo.AreaSqMiles(narrowed, st.Frame)
	if err != nil {
		return st, err
	}

	zap.L().Info("criterion applied",
		zap.String("criterion", c.DisplayName()),
		zap.Int("source_points", len(points)),
		zap.Float64("area_sq_miles", area))

	next := st.clone()
	next.Area = narrowed
	next.Applied = append(next.Applied, model.CriterionResult{
		Name:        c.DisplayName(),
		Description: c.Description(),
		Geometry:    narrowed,
		AreaSqMiles: area,
		Order:       len(next.Applied) + 1,
		Features:    sources,
	})
	return next, nil
}

// sourceFeatures resolves a criterion to the features its buffer grows from.
// ok=false means the criterion should be skipped.
func (e *Engine) sourceFeatures(ctx context.Context, st *State, c model.Criterion) ([]model.Feature, bool, error) {
	switch c.Kind {
	case model.KindLocation:
		resolved, err := e.geocoder.Geocode(ctx, c.Location)
		if err != nil {
			zap.L().Warn("criterion location lookup failed, skipping",
				zap.String("criterion", c.DisplayName()), zap.Error(err))
			return nil, false, nil
		}
		if !resolved.Matched {
			zap.L().Warn("criterion location not found, skipping",
				zap.String("criterion", c.DisplayName()))
			return nil, false, nil
		}
		return []model.Feature{{
			ID:   "location",
			Name: resolved.DisplayName,
			Lon:  resolved.Lon,
			Lat:  resolved.Lat,
		}}, true, nil

	default:
		queryArea, err := expandQueryArea(st, c.EffectiveRadiusMiles(), e.maxExpansionMiles)
		if err != nil {
			return nil, false, err
		}
		features, err := e.features.Query(ctx, queryArea, c.POIType)
		if err != nil {
			zap.L().Warn("feature query failed, skipping criterion",
				zap.String("criterion", c.DisplayName()), zap.Error(err))
			return nil, false, nil
		}
		if len(features) == 0 {
			zap.L().Warn("no features found, skipping criterion",
				zap.String("criterion", c.DisplayName()))
			return nil, false, nil
		}
		return features, true, nil
	}
}

// buildBuffer constructs the criterion's reach polygon around its source
// points. Travel-mode criteria prefer real isochrones when a provider is
// configured, falling back to anisotropic buffers on any failure.
func (e *Engine) buildBuffer(ctx context.Context, st *State, c model.Criterion, points []geom.Coord) (geom.T, error) {
	b := buffer.New(st.Frame)
	if c.Mode == model.ModeDistance {
		return b.Simple(points, c.Value)
	}

	if e.isochrones != nil {
		buf, err := e.isochroneBuffer(ctx, c, points)
		if err == nil {
			return buf, nil
		}
		zap.L().Warn("isochrone lookup failed, falling back to estimated buffer",
			zap.String("criterion", c.DisplayName()), zap.Error(err))
	}
	return b.Organic(points, c.EffectiveRadiusMiles(), c.Mode)
}

func (e *Engine) isochroneBuffer(ctx context.Context, c model.Criterion, points []geom.Coord) (geom.T, error) {
	shapes := make([]geom.T, 0, len(points))
	for _, pt := range points {
		iso, err := e.isochrones.Isochrone(ctx, pt[0], pt[1], c.Value, c.Mode)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, iso)
	}
	return geo.Union(shapes...)
}

// Result summarizes a finished session.
type Result struct {
	CenterName         string
	Center             geom.Coord
	RadiusMiles        float64
	InitialAreaSqMiles float64
	FinalAreaSqMiles   float64
	ReductionPercent   float64
	Geometry           geom.T // final candidate area, geographic
	Criteria           []model.CriterionResult
	Skipped            []string
}

// Summarize computes the session result from its final state.
func (e *Engine) Summarize(st *State) (*Result, error) {
	initial, err := geo.AreaSqMiles(st.Boundary, st.Frame)
	if err != nil {
		return nil, err
	}
	final, err := geo.AreaSqMiles(st.Area, st.Frame)
	if err != nil {
		return nil, err
	}
	reduction := 0.0
	if initial > 0 {
		reduction = (1 - final/initial) * 100
	}
	return &Result{
		CenterName:         st.CenterName,
		Center:             st.Center,
		RadiusMiles:        st.RadiusMiles,
		InitialAreaSqMiles: initial,
		FinalAreaSqMiles:   final,
		ReductionPercent:   reduction,
		Geometry:           st.Area,
		Criteria:           st.Applied,
		Skipped:            st.Skipped,
	}, nil
}

// Run executes a whole session: init, rank, apply each criterion in order,
// summarize.
func (e *Engine) Run(ctx context.Context, center string, radiusMiles float64, criteria []model.Criterion) (*Result, error) {
	if len(criteria) > e.maxCriteria {
		return nil, eris.Wrapf(ErrValidation, "too many criteria: %d (max %d)", len(criteria), e.maxCriteria)
	}
	for _, c := range criteria {
		if err := c.Validate(); err != nil {
			return nil, eris.Wrapf(ErrValidation, "criterion %q: %v", c.DisplayName(), err)
		}
	}

	st, err := e.Init(ctx, center, radiusMiles)
	if err != nil {
		return nil, err
	}
	for _, c := range rank.Order(criteria) {
		st, err = e.Apply(ctx, st, c)
		if err != nil {
			return nil, err
		}
	}
	return e.Summarize(st)
}
