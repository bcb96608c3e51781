// Package api exposes the local HTTP API consumed by the weather widget.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"weatherwidget.app/config"
	weathererr "weatherwidget.app/errors"
	"weatherwidget.app/models"
	"weatherwidget.app/providers"
)

// CacheStats supplies in-process cache counters for the debug endpoint.
type CacheStats interface {
	Stats() map[string]interface{}
}

// Server represents the HTTP server and API handler
type Server struct {
	router     *gin.Engine
	config     *config.Config
	weather    providers.WeatherProvider
	cacheStats CacheStats
}

// NewServer creates and configures a new HTTP server
func NewServer(cfg *config.Config, weather providers.WeatherProvider, cacheStats CacheStats) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())

	server := &Server{
		router:     router,
		config:     cfg,
		weather:    weather,
		cacheStats: cacheStats,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.Use(RateLimitMiddleware(&s.config.Weather.RateLimiting))
	{
		api.GET("/weather", s.getWeather)
		api.GET("/weather/config", s.getWidgetConfig)
		api.GET("/weather/debug", s.debugEndpoint)
	}

	s.router.GET("/healthz", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start begins the HTTP server
func (s *Server) Start() error {
	return s.router.Run(fmt.Sprintf(":%d", s.config.Server.Port))
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// RequestIDMiddleware tags every request with an id for log correlation.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// RateLimitMiddleware enforces the configured per-minute and per-hour
// budgets. Both limiters must admit the request.
func RateLimitMiddleware(cfg *config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	perMinute := rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.MaxPerMinute)), cfg.MaxPerMinute)
	perHour := rate.NewLimiter(rate.Every(time.Hour/time.Duration(cfg.MaxPerHour)), cfg.MaxPerHour)

	return func(c *gin.Context) {
		if !perMinute.Allow() || !perHour.Allow() {
			slog.Warn("rate limit exceeded", "path", c.Request.URL.Path, "client", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error: weathererr.New(weathererr.RateLimitExceeded, "rate limit exceeded").UserMessage,
			})
			return
		}
		c.Next()
	}
}

func (s *Server) getWeather(c *gin.Context) {
	var req models.WeatherRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			s.handleError(c, weathererr.NewInvalidCoordinates("Invalid latitude/longitude"))
			return
		}
		s.handleError(c, weathererr.Wrap(weathererr.InvalidCoordinates, "malformed coordinate parameters", err))
		return
	}

	lat := s.config.Weather.DefaultLocation.Lat
	lon := s.config.Weather.DefaultLocation.Lon
	switch {
	case req.Lat != nil && req.Lon != nil:
		lat, lon = *req.Lat, *req.Lon
	case req.Lat != nil || req.Lon != nil:
		s.handleError(c, weathererr.NewInvalidCoordinates("both lat and lon are required"))
		return
	}

	slog.Debug("fetching weather", "lat", lat, "lon", lon, "request_id", c.GetString("request_id"))

	snapshot, err := s.weather.CurrentWeather(c.Request.Context(), lat, lon)
	if err != nil {
		slog.Error("weather pipeline error", "error", err, "lat", lat, "lon", lon,
			"request_id", c.GetString("request_id"))
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// getWidgetConfig returns the client-facing configuration subset. The API
// key must never appear in this response.
func (s *Server) getWidgetConfig(c *gin.Context) {
	weather := &s.config.Weather
	c.JSON(http.StatusOK, models.WidgetConfigResponse{
		DefaultLocation: models.LocationInfo{
			Lat:  weather.DefaultLocation.Lat,
			Lon:  weather.DefaultLocation.Lon,
			Name: weather.DefaultLocation.Name,
		},
		Widget: models.WidgetSettings{
			Enabled:                    weather.Widget.Enabled,
			AutoRefreshIntervalSeconds: weather.Widget.AutoRefreshIntervalSeconds,
			TemperatureUnit:            weather.Widget.TemperatureUnit,
		},
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) debugEndpoint(c *gin.Context) {
	response := gin.H{
		"config": gin.H{
			"api_url":          s.config.Weather.APIURL,
			"cache_ttl":        s.config.Weather.CacheTTL().String(),
			"retry_attempts":   s.config.Weather.RetryAttempts,
			"request_timeout":  s.config.Weather.RequestTimeout().String(),
			"default_location": s.config.Weather.DefaultLocation.Name,
		},
	}
	if s.cacheStats != nil {
		response["cache"] = s.cacheStats.Stats()
	}

	c.JSON(http.StatusOK, response)
}

// handleError maps error taxonomy kinds to HTTP statuses. Statuses mirror
// the client-side FromHTTPStatus mapping so classifications survive the
// round trip through the local API.
func (s *Server) handleError(c *gin.Context, err error) {
	var weatherErr *weathererr.WeatherError
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	if errors.As(err, &weatherErr) {
		message = weatherErr.UserMessage
		switch weatherErr.Kind {
		case weathererr.InvalidCoordinates:
			statusCode = http.StatusBadRequest
		case weathererr.APIKeyInvalid:
			statusCode = http.StatusUnauthorized
		case weathererr.LocationNotFound:
			statusCode = http.StatusNotFound
		case weathererr.RateLimitExceeded:
			statusCode = http.StatusTooManyRequests
		case weathererr.ServiceUnavailable, weathererr.NetworkError, weathererr.ConnectionTimeout:
			statusCode = http.StatusServiceUnavailable
		case weathererr.DataParsingError, weathererr.InvalidResponse:
			statusCode = http.StatusBadGateway
		case weathererr.ConfigurationError:
			statusCode = http.StatusInternalServerError
		default:
			statusCode = http.StatusInternalServerError
		}
	}

	c.JSON(statusCode, models.ErrorResponse{Error: message})
}
