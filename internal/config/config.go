// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Portal   PortalConfig   `mapstructure:"portal"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Output   OutputConfig   `mapstructure:"output"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PortalConfig governs the municipal portal crawl.
type PortalConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	ListingPath        string `mapstructure:"listing_path"`
	UserAgent          string `mapstructure:"user_agent"`
	DelayMs            int    `mapstructure:"delay_ms"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	MaxListingPages    int    `mapstructure:"max_listing_pages"`
	CheckpointInterval int    `mapstructure:"checkpoint_interval"`
}

// GeocoderConfig governs the Nominatim client and the city bounding box.
type GeocoderConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	Email          string  `mapstructure:"email"`
	City           string  `mapstructure:"city"`
	Country        string  `mapstructure:"country"`
	CountryCode    string  `mapstructure:"country_code"`
	DelayMs        int     `mapstructure:"delay_ms"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MinLat         float64 `mapstructure:"min_lat"`
	MaxLat         float64 `mapstructure:"max_lat"`
	MinLng         float64 `mapstructure:"min_lng"`
	MaxLng         float64 `mapstructure:"max_lng"`
	CenterLat      float64 `mapstructure:"center_lat"`
	CenterLng      float64 `mapstructure:"center_lng"`
}

// OutputConfig sets where the pipeline writes its artifacts.
type OutputConfig struct {
	DataDir  string `mapstructure:"data_dir"`
	CacheDir string `mapstructure:"cache_dir"`
	SiteURL  string `mapstructure:"site_url"`
}

// ServerConfig controls the preview HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BUDZETMAPA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("portal.base_url", "https://budzetobywatelski.uml.lodz.pl")
	v.SetDefault("portal.listing_path", "/zlozone-projekty-2026")
	v.SetDefault("portal.user_agent", "budzetmapa/1.0 (+https://github.com/budzetlodz/budzetmapa)")
	v.SetDefault("portal.delay_ms", 500)
	v.SetDefault("portal.timeout_seconds", 30)
	v.SetDefault("portal.max_listing_pages", 50)
	v.SetDefault("portal.checkpoint_interval", 10)

	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.email", "admin@budzetobywatelski.pl")
	v.SetDefault("geocoder.city", "Łódź")
	v.SetDefault("geocoder.country", "Poland")
	v.SetDefault("geocoder.country_code", "pl")
	v.SetDefault("geocoder.delay_ms", 1000)
	v.SetDefault("geocoder.timeout_seconds", 10)
	// Rough bounding box for Łódź.
	v.SetDefault("geocoder.min_lat", 51.6)
	v.SetDefault("geocoder.max_lat", 51.9)
	v.SetDefault("geocoder.min_lng", 19.2)
	v.SetDefault("geocoder.max_lng", 19.7)
	v.SetDefault("geocoder.center_lat", 51.7592)
	v.SetDefault("geocoder.center_lng", 19.4560)

	v.SetDefault("output.data_dir", "data")
	v.SetDefault("output.cache_dir", "data/.cache")
	v.SetDefault("output.site_url", "https://mapa.budzetobywatelski.pl")

	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Portal.BaseURL == "" {
		return fmt.Errorf("portal.base_url must be set")
	}
	if c.Portal.DelayMs < 0 {
		return fmt.Errorf("portal.delay_ms must be >= 0")
	}
	if c.Portal.MaxListingPages <= 0 {
		return fmt.Errorf("portal.max_listing_pages must be > 0")
	}
	if c.Geocoder.DelayMs <= 0 {
		return fmt.Errorf("geocoder.delay_ms must be > 0")
	}
	if c.Geocoder.MinLat >= c.Geocoder.MaxLat || c.Geocoder.MinLng >= c.Geocoder.MaxLng {
		return fmt.Errorf("geocoder bounding box is empty")
	}
	if c.Output.DataDir == "" {
		return fmt.Errorf("output.data_dir must be set")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// PortalDelay returns the minimum interval between portal requests.
func (c Config) PortalDelay() time.Duration {
	return time.Duration(c.Portal.DelayMs) * time.Millisecond
}

// GeocoderDelay returns the minimum interval between geocoding requests.
func (c Config) GeocoderDelay() time.Duration {
	return time.Duration(c.Geocoder.DelayMs) * time.Millisecond
}

// PortalTimeout returns the per-request timeout for portal fetches.
func (c Config) PortalTimeout() time.Duration {
	return time.Duration(c.Portal.TimeoutSeconds) * time.Second
}

// GeocoderTimeout returns the per-request timeout for geocoding queries.
func (c Config) GeocoderTimeout() time.Duration {
	return time.Duration(c.Geocoder.TimeoutSeconds) * time.Second
}
