// Package config loads and sanitizes application configuration.
package config

import (
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"weatherwidget.app/errors"
)

// Documented fallbacks applied by Sanitize when a value is out of bounds.
const (
	FallbackLatitude        = 40.7128
	FallbackLongitude       = -74.0060
	FallbackLocationName    = "New York, NY"
	MinAutoRefreshSeconds   = 300
	MinCacheTTLSeconds      = 60
	DefaultRetryAttempts    = 3
	DefaultTimeoutSeconds   = 10
	DefaultMaxPerMinute     = 60
	DefaultMaxPerHour       = 1000
	TemperatureUnitCelsius  = "celsius"
	TemperatureUnitFahrenheit = "fahrenheit"
)

// Config represents the application configuration structure
type Config struct {
	Server  ServerConfig  `split_words:"true"`
	Weather WeatherConfig `split_words:"true"`
	Cache   CacheConfig   `split_words:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// WeatherConfig contains settings for the weather fetch pipeline
type WeatherConfig struct {
	APIKey                string          `envconfig:"WEATHER_API_KEY"`
	APIURL                string          `envconfig:"WEATHER_API_URL" default:"https://api.openweathermap.org/data/2.5"`
	DefaultLocation       LocationConfig  `split_words:"true"`
	Widget                WidgetConfig    `split_words:"true"`
	CacheTTLSeconds       int             `envconfig:"WEATHER_CACHE_TTL_SECONDS" default:"1800"`
	RetryAttempts         int             `envconfig:"WEATHER_RETRY_ATTEMPTS" default:"3"`
	RequestTimeoutSeconds int             `envconfig:"WEATHER_REQUEST_TIMEOUT_SECONDS" default:"10"`
	RateLimiting          RateLimitConfig `split_words:"true"`
}

// LocationConfig describes the location used when no coordinates are supplied
type LocationConfig struct {
	Lat  float64 `envconfig:"WEATHER_DEFAULT_LAT" default:"40.7128"`
	Lon  float64 `envconfig:"WEATHER_DEFAULT_LON" default:"-74.0060"`
	Name string  `envconfig:"WEATHER_DEFAULT_LOCATION_NAME" default:"New York, NY"`
}

// WidgetConfig contains client-facing widget settings
type WidgetConfig struct {
	Enabled                    bool   `envconfig:"WEATHER_WIDGET_ENABLED" default:"true"`
	AutoRefreshIntervalSeconds int    `envconfig:"WEATHER_WIDGET_REFRESH_SECONDS" default:"900"`
	TemperatureUnit            string `envconfig:"WEATHER_WIDGET_TEMPERATURE_UNIT" default:"celsius"`
}

// RateLimitConfig contains API rate limiting settings
type RateLimitConfig struct {
	Enabled      bool `envconfig:"WEATHER_RATE_LIMIT_ENABLED" default:"true"`
	MaxPerMinute int  `envconfig:"WEATHER_RATE_LIMIT_PER_MINUTE" default:"60"`
	MaxPerHour   int  `envconfig:"WEATHER_RATE_LIMIT_PER_HOUR" default:"1000"`
}

// CacheConfig selects and configures the cache backend
type CacheConfig struct {
	Type          string        `envconfig:"CACHE_TYPE" default:"memory"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RedisTimeout  time.Duration `envconfig:"REDIS_TIMEOUT" default:"5s"`
}

// CacheTTL returns the snapshot cache TTL as a duration.
func (w *WeatherConfig) CacheTTL() time.Duration {
	return time.Duration(w.CacheTTLSeconds) * time.Second
}

// RequestTimeout returns the per-request upstream timeout as a duration.
func (w *WeatherConfig) RequestTimeout() time.Duration {
	return time.Duration(w.RequestTimeoutSeconds) * time.Second
}

// LoadConfig loads configuration from environment variables and sanitizes it.
func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Sanitize(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Sanitize validates the configuration, replacing out-of-bounds values with
// documented fallbacks. Missing API credentials are fatal; every other
// correction is logged and substituted so the service can still run.
func (c *Config) Sanitize() error {
	if err := c.Server.Sanitize(); err != nil {
		return err
	}
	if err := c.Weather.Sanitize(); err != nil {
		return err
	}
	return c.Cache.Sanitize()
}

// Sanitize checks server configuration
func (s *ServerConfig) Sanitize() error {
	if s.Port < 1 || s.Port > 65535 {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	return nil
}

// Sanitize applies the weather pipeline bounds. The result always satisfies
// every field invariant; only absent API credentials abort.
func (w *WeatherConfig) Sanitize() error {
	if strings.TrimSpace(w.APIKey) == "" {
		return errors.NewConfigurationError("WEATHER_API_KEY is required", nil)
	}
	if strings.TrimSpace(w.APIURL) == "" {
		return errors.NewConfigurationError("WEATHER_API_URL is required", nil)
	}

	if math.IsNaN(w.DefaultLocation.Lat) || w.DefaultLocation.Lat < -90 || w.DefaultLocation.Lat > 90 {
		slog.Warn("invalid default latitude, using fallback",
			"value", w.DefaultLocation.Lat, "fallback", FallbackLatitude)
		w.DefaultLocation.Lat = FallbackLatitude
	}
	if math.IsNaN(w.DefaultLocation.Lon) || w.DefaultLocation.Lon < -180 || w.DefaultLocation.Lon > 180 {
		slog.Warn("invalid default longitude, using fallback",
			"value", w.DefaultLocation.Lon, "fallback", FallbackLongitude)
		w.DefaultLocation.Lon = FallbackLongitude
	}
	if strings.TrimSpace(w.DefaultLocation.Name) == "" {
		slog.Warn("empty default location name, using fallback", "fallback", FallbackLocationName)
		w.DefaultLocation.Name = FallbackLocationName
	}

	if w.Widget.AutoRefreshIntervalSeconds < MinAutoRefreshSeconds {
		slog.Warn("auto refresh interval below minimum, clamping",
			"value", w.Widget.AutoRefreshIntervalSeconds, "minimum", MinAutoRefreshSeconds)
		w.Widget.AutoRefreshIntervalSeconds = MinAutoRefreshSeconds
	}
	if w.Widget.TemperatureUnit != TemperatureUnitCelsius && w.Widget.TemperatureUnit != TemperatureUnitFahrenheit {
		slog.Warn("unknown temperature unit, forcing celsius", "value", w.Widget.TemperatureUnit)
		w.Widget.TemperatureUnit = TemperatureUnitCelsius
	}

	if w.CacheTTLSeconds < MinCacheTTLSeconds {
		slog.Warn("cache TTL below minimum, clamping",
			"value", w.CacheTTLSeconds, "minimum", MinCacheTTLSeconds)
		w.CacheTTLSeconds = MinCacheTTLSeconds
	}
	if w.RetryAttempts < 1 || w.RetryAttempts > 10 {
		slog.Warn("retry attempts out of range, using default",
			"value", w.RetryAttempts, "default", DefaultRetryAttempts)
		w.RetryAttempts = DefaultRetryAttempts
	}
	if w.RequestTimeoutSeconds < 1 || w.RequestTimeoutSeconds > 60 {
		slog.Warn("request timeout out of range, using default",
			"value", w.RequestTimeoutSeconds, "default", DefaultTimeoutSeconds)
		w.RequestTimeoutSeconds = DefaultTimeoutSeconds
	}

	if w.RateLimiting.MaxPerMinute < 1 {
		slog.Warn("rate limit per minute out of range, using default",
			"value", w.RateLimiting.MaxPerMinute, "default", DefaultMaxPerMinute)
		w.RateLimiting.MaxPerMinute = DefaultMaxPerMinute
	}
	if w.RateLimiting.MaxPerHour < 1 {
		slog.Warn("rate limit per hour out of range, using default",
			"value", w.RateLimiting.MaxPerHour, "default", DefaultMaxPerHour)
		w.RateLimiting.MaxPerHour = DefaultMaxPerHour
	}

	return nil
}

// Sanitize checks cache backend configuration
func (c *CacheConfig) Sanitize() error {
	switch c.Type {
	case "memory", "redis":
		return nil
	default:
		return errors.NewConfigurationError("CACHE_TYPE must be one of: memory, redis", nil)
	}
}
