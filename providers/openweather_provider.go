package providers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"weatherwidget.app/config"
	apperrors "weatherwidget.app/errors"
	"weatherwidget.app/metrics"
	"weatherwidget.app/models"
)

// OpenWeatherProvider fetches current conditions from an OpenWeather-style
// endpoint. A call is exactly one HTTP attempt; retries live in
// RetryingProvider.
type OpenWeatherProvider struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	normalizer *Normalizer
	metrics    *metrics.FetchMetrics
}

// NewOpenWeatherProvider creates a provider with the request timeout taken
// from the sanitized configuration.
func NewOpenWeatherProvider(cfg *config.WeatherConfig) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.APIURL,
		client:     &http.Client{Timeout: cfg.RequestTimeout()},
		normalizer: NewNormalizer(),
		metrics:    metrics.NewFetchMetrics(),
	}
}

// CurrentWeather performs a single upstream GET and normalizes the response.
// Failures come back classified: 401/404/429 are terminal, everything else
// (5xx, transport errors) is retryable. Malformed success payloads are
// terminal.
func (p *OpenWeatherProvider) CurrentWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	start := time.Now()
	snapshot, err := p.fetch(ctx, lat, lon)
	p.metrics.RecordAttempt(outcomeOf(err), time.Since(start).Seconds())
	return snapshot, err
}

func (p *OpenWeatherProvider) fetch(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	endpoint := fmt.Sprintf("%s/weather?%s", p.baseURL, url.Values{
		"lat":   {fmt.Sprintf("%f", lat)},
		"lon":   {fmt.Sprintf("%f", lon)},
		"appid": {p.apiKey},
		"units": {"metric"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.UnknownError, "build upstream request", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperrors.Classify(err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, p.classifyStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.NetworkError, "read upstream response", err)
	}

	return p.normalizer.Normalize(body)
}

// classifyStatus maps upstream HTTP statuses to the taxonomy. Only 401, 404
// and 429 short-circuit the retry loop; any other non-200 status is treated
// as transient.
func (p *OpenWeatherProvider) classifyStatus(status int) *apperrors.WeatherError {
	switch status {
	case http.StatusUnauthorized:
		return apperrors.New(apperrors.APIKeyInvalid, "openweather: invalid API key").
			WithDetail("status", status)
	case http.StatusNotFound:
		return apperrors.New(apperrors.LocationNotFound, "openweather: location not found").
			WithDetail("status", status)
	case http.StatusTooManyRequests:
		return apperrors.New(apperrors.RateLimitExceeded, "openweather: rate limit exceeded").
			WithDetail("status", status)
	default:
		return apperrors.New(apperrors.ServiceUnavailable,
			fmt.Sprintf("openweather: HTTP %d", status)).WithDetail("status", status)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case apperrors.IsRetryable(err):
		return metrics.OutcomeTransient
	default:
		return metrics.OutcomeTerminal
	}
}
