// Package valhalla computes travel-time reachability polygons (isochrones)
// via a Valhalla routing instance. It is an optional upgrade over the
// engine's estimated buffers and is disabled unless an endpoint is
// configured.
package valhalla

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Costing models accepted by the isochrone endpoint.
const (
	CostingPedestrian = "pedestrian"
	CostingBicycle    = "bicycle"
	CostingAuto       = "auto"
)

// Client computes isochrones.
type Client interface {
	// Isochrone returns the polygon reachable from (lon, lat) within the
	// given minutes using a costing model.
	Isochrone(ctx context.Context, lon, lat, minutes float64, costing string) (geom.T, error)
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

type client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Client for a Valhalla instance at baseURL.
func NewClient(baseURL string, opts ...Option) (Client, error) {
	if baseURL == "" {
		return nil, eris.New("valhalla: base url required")
	}
	c := &client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type isochroneRequest struct {
	Locations []isochroneLocation `json:"locations"`
	Costing   string              `json:"costing"`
	Contours  []isochroneContour  `json:"contours"`
	Polygons  bool                `json:"polygons"`
}

type isochroneLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type isochroneContour struct {
	Time float64 `json:"time"`
}

// Isochrone requests a single filled contour and returns its polygon.
func (c *client) Isochrone(ctx context.Context, lon, lat, minutes float64, costing string) (geom.T, error) {
	if minutes <= 0 {
		return nil, eris.Errorf("valhalla: minutes must be positive, got %v", minutes)
	}
	switch costing {
	case CostingPedestrian, CostingBicycle, CostingAuto:
	default:
		return nil, eris.Errorf("valhalla: unknown costing %q", costing)
	}

	payload, err := json.Marshal(isochroneRequest{
		Locations: []isochroneLocation{{Lat: lat, Lon: lon}},
		Costing:   costing,
		Contours:  []isochroneContour{{Time: minutes}},
		Polygons:  true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "valhalla: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/isochrone", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "valhalla: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "valhalla: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("valhalla: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "valhalla: read body")
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, eris.Wrap(err, "valhalla: parse response")
	}
	for _, f := range fc.Features {
		switch f.Geometry.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
			return f.Geometry, nil
		}
	}
	return nil, eris.New("valhalla: response contains no polygon contour")
}
