package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/atashie/locationAnalyzer/internal/catalog"
	"github.com/atashie/locationAnalyzer/internal/config"
	"github.com/atashie/locationAnalyzer/internal/model"
	"github.com/atashie/locationAnalyzer/internal/search"
	"github.com/atashie/locationAnalyzer/pkg/tripadvisor"
)

type stubGeocoder struct {
	places map[string]*search.GeocodeResult
}

func (s *stubGeocoder) Geocode(_ context.Context, query string) (*search.GeocodeResult, error) {
	if r, ok := s.places[query]; ok {
		return r, nil
	}
	return &search.GeocodeResult{}, nil
}

type stubFeatures struct {
	features []model.Feature
}

func (s *stubFeatures) Query(_ context.Context, _ geom.T, _ map[string]string) ([]model.Feature, error) {
	return s.features, nil
}

type stubEnricher struct{}

func (stubEnricher) Details(_ context.Context, _ tripadvisor.Place) (*tripadvisor.Details, error) {
	return &tripadvisor.Details{Found: true, Rating: 4.2}, nil
}

func (stubEnricher) EnrichAll(_ context.Context, places []tripadvisor.Place) ([]tripadvisor.Details, error) {
	out := make([]tripadvisor.Details, len(places))
	for i := range out {
		out[i] = tripadvisor.Details{Found: true, Rating: 4.2, NumReviews: 10, URL: "https://ta.example"}
	}
	return out, nil
}

func testRouter(t *testing.T, enricher tripadvisor.Client) http.Handler {
	t.Helper()
	geocoder := &stubGeocoder{places: map[string]*search.GeocodeResult{
		"Durham, NC": {Lon: -78.8986, Lat: 35.9940, DisplayName: "Durham, North Carolina", Matched: true},
	}}
	features := &stubFeatures{features: []model.Feature{
		{ID: "node/1", Name: "Corner Cafe", Lon: -78.89, Lat: 35.99},
	}}
	return NewRouter(Deps{
		Engine:   search.NewEngine(geocoder, features),
		Geocoder: geocoder,
		Catalog:  catalog.Default(),
		Limits: config.SearchConfig{
			MinRadiusMiles:    1,
			MaxRadiusMiles:    25,
			MaxCriteria:       8,
			MaxExpansionMiles: 5,
		},
		Enricher: enricher,
		Origins:  []string{"*"},
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validRequest() map[string]any {
	return map[string]any{
		"location":     "Durham, NC",
		"radius_miles": 5,
		"criteria": []map[string]any{
			{"poi_type": "cafe", "mode": "distance", "value": 1.5},
		},
	}
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, testRouter(t, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestPOITypes(t *testing.T) {
	rec := doJSON(t, testRouter(t, nil), http.MethodGet, "/api/v1/poi-types", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["poi_types"], "grocery_store")
}

func TestValidateLocation(t *testing.T) {
	router := testRouter(t, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/validate-location?q=Durham%2C+NC", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var found map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Equal(t, true, found["found"])
	assert.Equal(t, "Durham, North Carolina", found["display_name"])

	rec = doJSON(t, router, http.MethodGet, "/api/v1/validate-location?q=Atlantis", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Equal(t, false, found["found"])

	rec = doJSON(t, router, http.MethodGet, "/api/v1/validate-location", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_Success(t *testing.T) {
	rec := doJSON(t, testRouter(t, nil), http.MethodPost, "/api/v1/analyze", validRequest())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Durham, North Carolina", resp.CenterName)
	assert.Greater(t, resp.InitialAreaSqMiles, resp.FinalAreaSqMiles)
	assert.Greater(t, resp.ReductionPercent, 0.0)
	assert.NotEmpty(t, resp.Geometry)
	require.Len(t, resp.Criteria, 1)
	assert.Equal(t, "cafe", resp.Criteria[0].Name)
	require.Len(t, resp.Criteria[0].Features, 1)
	assert.Equal(t, "Corner Cafe", resp.Criteria[0].Features[0].Name)
	assert.Zero(t, resp.Criteria[0].Features[0].Rating)
}

func TestAnalyze_Enrichment(t *testing.T) {
	body := validRequest()
	body["enrich"] = true
	rec := doJSON(t, testRouter(t, stubEnricher{}), http.MethodPost, "/api/v1/analyze", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Criteria[0].Features, 1)
	assert.InDelta(t, 4.2, resp.Criteria[0].Features[0].Rating, 1e-9)
	assert.Equal(t, 10, resp.Criteria[0].Features[0].NumReviews)
}

func TestAnalyze_Rejections(t *testing.T) {
	router := testRouter(t, nil)

	cases := map[string]func(map[string]any){
		"missing location":  func(b map[string]any) { b["location"] = "" },
		"radius too small":  func(b map[string]any) { b["radius_miles"] = 0.5 },
		"radius too large":  func(b map[string]any) { b["radius_miles"] = 26 },
		"no criteria":       func(b map[string]any) { b["criteria"] = []map[string]any{} },
		"unknown poi type":  func(b map[string]any) { b["criteria"] = []map[string]any{{"poi_type": "unicorn", "mode": "distance", "value": 1}} },
		"unknown mode":      func(b map[string]any) { b["criteria"] = []map[string]any{{"poi_type": "cafe", "mode": "teleport", "value": 1}} },
		"nonpositive value": func(b map[string]any) { b["criteria"] = []map[string]any{{"poi_type": "cafe", "mode": "walk", "value": 0}} },
	}
	for name, mutate := range cases {
		body := validRequest()
		mutate(body)
		rec := doJSON(t, router, http.MethodPost, "/api/v1/analyze", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}

	criteria := make([]map[string]any, 9)
	for i := range criteria {
		criteria[i] = map[string]any{"poi_type": "cafe", "mode": "distance", "value": 1}
	}
	body := validRequest()
	body["criteria"] = criteria
	rec := doJSON(t, router, http.MethodPost, "/api/v1/analyze", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_UnresolvableCenter(t *testing.T) {
	body := validRequest()
	body["location"] = "Atlantis"
	rec := doJSON(t, testRouter(t, nil), http.MethodPost, "/api/v1/analyze", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestAnalyze_RawTagFilter(t *testing.T) {
	body := validRequest()
	body["criteria"] = []map[string]any{
		{"name": "breweries", "tags": map[string]string{"craft": "brewery"}, "mode": "drive", "value": 10},
	}
	rec := doJSON(t, testRouter(t, nil), http.MethodPost, "/api/v1/analyze", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Criteria, 1)
	assert.Equal(t, "breweries", resp.Criteria[0].Name)
}
