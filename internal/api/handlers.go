package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/atashie/locationAnalyzer/internal/geo"
	"github.com/atashie/locationAnalyzer/internal/model"
	"github.com/atashie/locationAnalyzer/internal/search"
	"github.com/atashie/locationAnalyzer/pkg/tripadvisor"
)

type handlers struct {
	deps Deps
}

type analyzeRequest struct {
	Location    string             `json:"location"`
	RadiusMiles float64            `json:"radius_miles"`
	Criteria    []criterionRequest `json:"criteria"`
	Enrich      bool               `json:"enrich"`
}

// criterionRequest accepts either a named poi_type from the catalog, a raw
// OSM tag filter, or a specific location string.
type criterionRequest struct {
	Name     string            `json:"name"`
	POIType  string            `json:"poi_type"`
	Tags     map[string]string `json:"tags"`
	Location string            `json:"location"`
	Mode     string            `json:"mode"`
	Value    float64           `json:"value"`
}

type analyzeResponse struct {
	CenterName         string            `json:"center_name"`
	Center             [2]float64        `json:"center"` // lon, lat
	MapCenter          [2]float64        `json:"map_center"`
	RadiusMiles        float64           `json:"radius_miles"`
	InitialAreaSqMiles float64           `json:"initial_area_sq_miles"`
	FinalAreaSqMiles   float64           `json:"final_area_sq_miles"`
	ReductionPercent   float64           `json:"reduction_percent"`
	Geometry           json.RawMessage   `json:"geometry"`
	Criteria           []criterionResult `json:"criteria"`
	Skipped            []string          `json:"skipped,omitempty"`
}

type criterionResult struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	AreaSqMiles float64           `json:"area_sq_miles"`
	Order       int               `json:"order"`
	Features    []featureResponse `json:"features,omitempty"`
}

type featureResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Lon          float64 `json:"lon"`
	Lat          float64 `json:"lat"`
	Address      string  `json:"address,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Website      string  `json:"website,omitempty"`
	OpeningHours string  `json:"opening_hours,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	NumReviews   int     `json:"num_reviews,omitempty"`
	ReviewURL    string  `json:"review_url,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) poiTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"poi_types": h.deps.Catalog.Names()})
}

func (h *handlers) validateLocation(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	resolved, err := h.deps.Geocoder.Geocode(r.Context(), query)
	if err != nil {
		zap.L().Error("validate-location geocode failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "geocoding service unavailable")
		return
	}
	if !resolved.Matched {
		writeJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"found":        true,
		"lon":          resolved.Lon,
		"lat":          resolved.Lat,
		"display_name": resolved.DisplayName,
	})
}

func (h *handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Location) == "" {
		writeError(w, http.StatusBadRequest, "location is required")
		return
	}
	limits := h.deps.Limits
	if req.RadiusMiles < limits.MinRadiusMiles || req.RadiusMiles > limits.MaxRadiusMiles {
		writeError(w, http.StatusBadRequest, "radius_miles out of range")
		return
	}
	if len(req.Criteria) == 0 {
		writeError(w, http.StatusBadRequest, "at least one criterion is required")
		return
	}
	if len(req.Criteria) > limits.MaxCriteria {
		writeError(w, http.StatusBadRequest, "too many criteria")
		return
	}

	criteria := make([]model.Criterion, 0, len(req.Criteria))
	for _, cr := range req.Criteria {
		c, err := h.toCriterion(cr)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		criteria = append(criteria, c)
	}

	result, err := h.deps.Engine.Run(r.Context(), req.Location, req.RadiusMiles, criteria)
	if err != nil {
		if search.IsClientError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	resp, err := h.toResponse(r, result, req.Enrich)
	if err != nil {
		zap.L().Error("encode analysis result failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// toCriterion converts a request criterion, resolving catalog names.
func (h *handlers) toCriterion(cr criterionRequest) (model.Criterion, error) {
	c := model.Criterion{
		Name:  cr.Name,
		Mode:  model.Mode(cr.Mode),
		Value: cr.Value,
	}
	switch {
	case cr.Location != "":
		c.Kind = model.KindLocation
		c.Location = cr.Location
	case cr.POIType != "":
		tags, err := h.deps.Catalog.Resolve(cr.POIType)
		if err != nil {
			return model.Criterion{}, err
		}
		c.Kind = model.KindPOIType
		c.POIType = tags
		if c.Name == "" {
			c.Name = cr.POIType
		}
	default:
		c.Kind = model.KindPOIType
		c.POIType = cr.Tags
	}
	return c, c.Validate()
}

func (h *handlers) toResponse(r *http.Request, result *search.Result, enrich bool) (*analyzeResponse, error) {
	geometry, err := geojson.Marshal(result.Geometry)
	if err != nil {
		return nil, err
	}

	mapCenter := [2]float64{result.Center[0], result.Center[1]}
	if !geo.IsEmpty(result.Geometry) {
		c := geo.Centroid(result.Geometry)
		mapCenter = [2]float64{c[0], c[1]}
	}

	resp := &analyzeResponse{
		CenterName:         result.CenterName,
		Center:             [2]float64{result.Center[0], result.Center[1]},
		MapCenter:          mapCenter,
		RadiusMiles:        result.RadiusMiles,
		InitialAreaSqMiles: result.InitialAreaSqMiles,
		FinalAreaSqMiles:   result.FinalAreaSqMiles,
		ReductionPercent:   result.ReductionPercent,
		Geometry:           geometry,
		Skipped:            result.Skipped,
	}
	for _, cr := range result.Criteria {
		resp.Criteria = append(resp.Criteria, criterionResult{
			Name:        cr.Name,
			Description: cr.Description,
			AreaSqMiles: cr.AreaSqMiles,
			Order:       cr.Order,
			Features:    h.toFeatures(r, cr.Features, enrich),
		})
	}
	return resp, nil
}

func (h *handlers) toFeatures(r *http.Request, features []model.Feature, enrich bool) []featureResponse {
	out := make([]featureResponse, len(features))
	for i, f := range features {
		out[i] = featureResponse{
			ID:           f.ID,
			Name:         f.Name,
			Lon:          f.Lon,
			Lat:          f.Lat,
			Address:      f.Address,
			Phone:        f.Phone,
			Website:      f.Website,
			OpeningHours: f.OpeningHours,
		}
	}
	if !enrich || h.deps.Enricher == nil {
		return out
	}

	places := make([]tripadvisor.Place, len(features))
	for i, f := range features {
		places[i] = tripadvisor.Place{Name: f.Name, Lat: f.Lat, Lon: f.Lon}
	}
	details, err := h.deps.Enricher.EnrichAll(r.Context(), places)
	if err != nil {
		zap.L().Warn("enrichment failed", zap.Error(err))
		return out
	}
	for i, d := range details {
		if !d.Found {
			continue
		}
		out[i].Rating = d.Rating
		out[i].NumReviews = d.NumReviews
		out[i].ReviewURL = d.URL
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
