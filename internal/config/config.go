package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	Nominatim   NominatimConfig   `yaml:"nominatim" mapstructure:"nominatim"`
	Overpass    OverpassConfig    `yaml:"overpass" mapstructure:"overpass"`
	Features    FeaturesConfig    `yaml:"features" mapstructure:"features"`
	TripAdvisor TripAdvisorConfig `yaml:"tripadvisor" mapstructure:"tripadvisor"`
	Valhalla    ValhallaConfig    `yaml:"valhalla" mapstructure:"valhalla"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// SearchConfig bounds what a single analysis session accepts.
type SearchConfig struct {
	MinRadiusMiles    float64 `yaml:"min_radius_miles" mapstructure:"min_radius_miles"`
	MaxRadiusMiles    float64 `yaml:"max_radius_miles" mapstructure:"max_radius_miles"`
	MaxCriteria       int     `yaml:"max_criteria" mapstructure:"max_criteria"`
	MaxExpansionMiles float64 `yaml:"max_expansion_miles" mapstructure:"max_expansion_miles"`
}

// NominatimConfig configures the geocoding client.
type NominatimConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimitRPS  float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	CacheTTLHours int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// OverpassConfig configures the OSM feature client.
type OverpassConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	QueryTimeoutSecs int     `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// FeaturesConfig selects and tunes the feature provider stack.
type FeaturesConfig struct {
	// Provider is "overpass" (live OSM) or "postgis" (preloaded extract).
	Provider      string `yaml:"provider" mapstructure:"provider"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	RedisURL      string `yaml:"redis_url" mapstructure:"redis_url"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// TripAdvisorConfig configures result enrichment. An empty key disables it.
type TripAdvisorConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	CachePath    string `yaml:"cache_path" mapstructure:"cache_path"`
	CacheTTLDays int    `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
	MonthlyQuota int    `yaml:"monthly_quota" mapstructure:"monthly_quota"`
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// ValhallaConfig configures the optional isochrone provider. An empty base
// URL disables it and travel-time criteria use estimated buffers.
type ValhallaConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LOCATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("search.min_radius_miles", 1.0)
	v.SetDefault("search.max_radius_miles", 25.0)
	v.SetDefault("search.max_criteria", 8)
	v.SetDefault("search.max_expansion_miles", 5.0)
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "location-analyzer/1.0")
	v.SetDefault("nominatim.rate_limit_rps", 1.0)
	v.SetDefault("nominatim.cache_ttl_hours", 1)
	v.SetDefault("overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.query_timeout_secs", 30)
	v.SetDefault("overpass.rate_limit_rps", 1.0)
	v.SetDefault("features.provider", "overpass")
	v.SetDefault("features.cache_ttl_hours", 24)
	v.SetDefault("tripadvisor.base_url", "https://api.content.tripadvisor.com/api/v1")
	v.SetDefault("tripadvisor.cache_path", "tripadvisor.db")
	v.SetDefault("tripadvisor.cache_ttl_days", 7)
	v.SetDefault("tripadvisor.monthly_quota", 5000)
	v.SetDefault("tripadvisor.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	if c.Search.MinRadiusMiles <= 0 {
		return eris.New("config: search.min_radius_miles must be positive")
	}
	if c.Search.MaxRadiusMiles < c.Search.MinRadiusMiles {
		return eris.New("config: search.max_radius_miles below min_radius_miles")
	}
	if c.Search.MaxCriteria <= 0 {
		return eris.New("config: search.max_criteria must be positive")
	}
	if c.Search.MaxExpansionMiles <= 0 {
		return eris.New("config: search.max_expansion_miles must be positive")
	}
	switch c.Features.Provider {
	case "overpass":
	case "postgis":
		if c.Features.DatabaseURL == "" {
			return eris.New("config: features.database_url required for postgis provider")
		}
	default:
		return eris.Errorf("config: unknown features.provider %q", c.Features.Provider)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
