package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/atashie/locationAnalyzer/internal/features"
	"github.com/atashie/locationAnalyzer/internal/model"
	"github.com/atashie/locationAnalyzer/internal/search"
	"github.com/atashie/locationAnalyzer/pkg/nominatim"
	"github.com/atashie/locationAnalyzer/pkg/overpass"
	"github.com/atashie/locationAnalyzer/pkg/tripadvisor"
	"github.com/atashie/locationAnalyzer/pkg/valhalla"
)

// env bundles the wired clients a command needs.
type env struct {
	Engine   *search.Engine
	Geocoder search.Geocoder
	Enricher tripadvisor.Client

	pool    *pgxpool.Pool
	rdb     *redis.Client
	taStore *tripadvisor.Store
}

// Close releases held connections.
func (e *env) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
	if e.rdb != nil {
		_ = e.rdb.Close()
	}
	if e.taStore != nil {
		_ = e.taStore.Close()
	}
}

// buildEnv wires providers from config.
func buildEnv(ctx context.Context) (*env, error) {
	e := &env{}

	geocoder := nominatim.NewClient(
		nominatim.WithBaseURL(cfg.Nominatim.BaseURL),
		nominatim.WithUserAgent(cfg.Nominatim.UserAgent),
		nominatim.WithRateLimit(cfg.Nominatim.RateLimitRPS),
		nominatim.WithCacheTTL(time.Duration(cfg.Nominatim.CacheTTLHours)*time.Hour),
	)
	e.Geocoder = geocoderAdapter{client: geocoder}

	provider, err := e.buildFeatureProvider(ctx)
	if err != nil {
		return nil, err
	}

	opts := []search.Option{
		search.WithMaxCriteria(cfg.Search.MaxCriteria),
		search.WithMaxExpansionMiles(cfg.Search.MaxExpansionMiles),
	}
	if cfg.Valhalla.BaseURL != "" {
		iso, err := valhalla.NewClient(cfg.Valhalla.BaseURL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, search.WithIsochrones(isochroneAdapter{client: iso}))
		zap.L().Info("isochrone provider enabled", zap.String("base_url", cfg.Valhalla.BaseURL))
	}
	e.Engine = search.NewEngine(e.Geocoder, provider, opts...)

	if cfg.TripAdvisor.Key != "" {
		store, err := tripadvisor.NewStore(cfg.TripAdvisor.CachePath)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		e.taStore = store
		e.Enricher = tripadvisor.NewClient(cfg.TripAdvisor.Key,
			tripadvisor.WithBaseURL(cfg.TripAdvisor.BaseURL),
			tripadvisor.WithStore(store),
			tripadvisor.WithMonthlyQuota(cfg.TripAdvisor.MonthlyQuota),
			tripadvisor.WithCacheTTL(time.Duration(cfg.TripAdvisor.CacheTTLDays)*24*time.Hour),
			tripadvisor.WithConcurrency(cfg.TripAdvisor.Concurrency),
		)
	}

	return e, nil
}

func (e *env) buildFeatureProvider(ctx context.Context) (features.Provider, error) {
	var provider features.Provider
	switch cfg.Features.Provider {
	case "postgis":
		pool, err := pgxpool.New(ctx, cfg.Features.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "connect postgis")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, eris.Wrap(err, "ping postgis")
		}
		e.pool = pool
		provider = features.NewPostGISProvider(pool)
	default:
		client := overpass.NewClient(
			overpass.WithBaseURL(cfg.Overpass.BaseURL),
			overpass.WithQueryTimeout(time.Duration(cfg.Overpass.QueryTimeoutSecs)*time.Second),
			overpass.WithRateLimit(cfg.Overpass.RateLimitRPS),
		)
		provider = features.NewOverpassProvider(client)
	}

	if cfg.Features.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.Features.RedisURL)
		if err != nil {
			return nil, eris.Wrap(err, "parse redis url")
		}
		e.rdb = redis.NewClient(redisOpts)
		ttl := time.Duration(cfg.Features.CacheTTLHours) * time.Hour
		provider = features.NewCachedProvider(provider, e.rdb, ttl)
		zap.L().Info("feature cache enabled", zap.Duration("ttl", ttl))
	}
	return provider, nil
}

// geocoderAdapter bridges the nominatim client to the engine interface.
type geocoderAdapter struct {
	client nominatim.Client
}

func (a geocoderAdapter) Geocode(ctx context.Context, query string) (*search.GeocodeResult, error) {
	place, err := a.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return &search.GeocodeResult{
		Lon:         place.Longitude,
		Lat:         place.Latitude,
		DisplayName: place.DisplayName,
		Matched:     place.Matched,
	}, nil
}

// isochroneAdapter bridges the valhalla client to the engine interface.
type isochroneAdapter struct {
	client valhalla.Client
}

func (a isochroneAdapter) Isochrone(ctx context.Context, lon, lat, minutes float64, mode model.Mode) (geom.T, error) {
	var costing string
	switch mode {
	case model.ModeWalk:
		costing = valhalla.CostingPedestrian
	case model.ModeBike:
		costing = valhalla.CostingBicycle
	case model.ModeDrive:
		costing = valhalla.CostingAuto
	default:
		return nil, eris.Errorf("no isochrone costing for mode %q", mode)
	}
	return a.client.Isochrone(ctx, lon, lat, minutes, costing)
}
