package providers

import (
	"context"

	"weatherwidget.app/models"
)

// WeatherProvider defines the interface for weather data providers keyed by
// coordinates.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error)
}

// Invalidator removes a cached snapshot for one coordinate pair.
type Invalidator interface {
	Invalidate(ctx context.Context, lat, lon float64)
}
