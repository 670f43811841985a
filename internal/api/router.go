// Package api exposes the analysis engine over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/atashie/locationAnalyzer/internal/catalog"
	"github.com/atashie/locationAnalyzer/internal/config"
	"github.com/atashie/locationAnalyzer/internal/search"
	"github.com/atashie/locationAnalyzer/pkg/tripadvisor"
)

// Deps holds everything the handlers need. Enricher is optional.
type Deps struct {
	Engine   *search.Engine
	Geocoder search.Geocoder
	Catalog  *catalog.Catalog
	Limits   config.SearchConfig
	Enricher tripadvisor.Client
	Origins  []string
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &handlers{deps: deps}

	r.Get("/health", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/poi-types", h.poiTypes)
		r.Get("/validate-location", h.validateLocation)
		r.Post("/analyze", h.analyze)
	})
	return r
}

// requestLogger logs one line per request with the chi request ID.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
