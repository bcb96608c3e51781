package providers

import (
	"context"
	"log/slog"
	"math"
	"time"

	"weatherwidget.app/config"
	apperrors "weatherwidget.app/errors"
	"weatherwidget.app/models"
	"weatherwidget.app/retry"
)

// RetryingProvider wraps a WeatherProvider in the shared bounded retry loop.
// Coordinate validation happens before the first attempt; terminal
// classifications stop the loop regardless of remaining attempts.
type RetryingProvider struct {
	provider WeatherProvider
	policy   retry.Policy
}

// NewRetryingProvider builds the orchestrator from the sanitized
// configuration: RetryAttempts total attempts, exponential backoff starting
// at one second with up to one second of jitter.
func NewRetryingProvider(provider WeatherProvider, cfg *config.WeatherConfig) *RetryingProvider {
	return NewRetryingProviderWithPolicy(provider, retry.Policy{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   time.Second,
		MaxJitter:   time.Second,
	})
}

// NewRetryingProviderWithPolicy allows overriding the backoff schedule.
func NewRetryingProviderWithPolicy(provider WeatherProvider, policy retry.Policy) *RetryingProvider {
	return &RetryingProvider{
		provider: provider,
		policy:   policy,
	}
}

// ValidateCoordinates checks latitude/longitude bounds. Out-of-range values
// are a terminal validation error, never retried.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return apperrors.NewInvalidCoordinates("Invalid latitude/longitude").WithDetail("lat", lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return apperrors.NewInvalidCoordinates("Invalid latitude/longitude").WithDetail("lon", lon)
	}
	return nil
}

func (r *RetryingProvider) CurrentWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	start := time.Now()
	snapshot, err := retry.Do(ctx, r.policy, func(ctx context.Context) (*models.WeatherSnapshot, error) {
		return r.provider.CurrentWeather(ctx, lat, lon)
	})
	if err != nil {
		// Exhausting every attempt on transient failures collapses into a
		// single generic error; terminal errors pass through with their own
		// classification.
		if apperrors.IsRetryable(err) {
			err = apperrors.Wrap(apperrors.ServiceUnavailable, "weather service temporarily unavailable", err)
		}
		slog.Error("weather fetch failed",
			"lat", lat, "lon", lon, "elapsed", time.Since(start), "error", err)
		return nil, err
	}

	return snapshot, nil
}
