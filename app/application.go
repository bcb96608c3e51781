// Package app assembles the weather pipeline from its components and owns
// startup and shutdown.
package app

import (
	"fmt"
	"log/slog"

	"weatherwidget.app/api"
	"weatherwidget.app/config"
	"weatherwidget.app/providers"
	"weatherwidget.app/providers/cache"
)

// Application represents the assembled service with all its dependencies
type Application struct {
	config *config.Config
	store  cache.Store
	server *api.Server
}

// NewApplication creates and initializes a new application instance
func NewApplication() (*Application, error) {
	app := &Application{}

	if err := app.loadConfiguration(); err != nil {
		return nil, err
	}

	if err := app.initializeServices(); err != nil {
		return nil, err
	}

	return app, nil
}

func (app *Application) loadConfiguration() error {
	slog.Info("Loading configuration...")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("load application configuration: %w", err)
	}

	app.config = cfg
	slog.Info("Configuration loaded successfully")
	return nil
}

func (app *Application) initializeServices() error {
	slog.Info("Initializing services...")

	store, err := providers.NewStoreFromConfig(&app.config.Cache)
	if err != nil {
		slog.Error("Failed to initialize cache backend", "error", err)
		return fmt.Errorf("initialize cache backend: %w", err)
	}
	app.store = store

	pipeline := app.buildPipeline(store)

	var stats api.CacheStats
	if s, ok := store.(api.CacheStats); ok {
		stats = s
	}

	app.server = api.NewServer(app.config, pipeline, stats)

	slog.Info("Services initialized successfully",
		"cache_type", app.config.Cache.Type,
		"cache_ttl", app.config.Weather.CacheTTL(),
		"retry_attempts", app.config.Weather.RetryAttempts)
	return nil
}

// buildPipeline layers the fetch pipeline: cache proxy in front, bounded
// retry in the middle, the upstream HTTP provider at the bottom.
func (app *Application) buildPipeline(store cache.Store) providers.WeatherProvider {
	upstream := providers.NewOpenWeatherProvider(&app.config.Weather)
	retrying := providers.NewRetryingProvider(upstream, &app.config.Weather)
	return providers.NewWeatherCacheProxy(
		retrying,
		cache.NewSnapshotCache(store),
		app.config.Weather.CacheTTL(),
	)
}

// Start starts the HTTP server
func (app *Application) Start() error {
	slog.Info("Starting HTTP server", "port", app.config.Server.Port)
	return app.server.Start()
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	slog.Info("Shutting down application...")

	if closer, ok := app.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("Error closing cache backend", "error", err)
		}
	}

	slog.Info("Application shutdown complete")
	return nil
}

// Config returns the application configuration
func (app *Application) Config() *config.Config {
	return app.config
}
