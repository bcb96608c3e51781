// Package client implements the widget-side half of the weather pipeline:
// a thin HTTP client for the local API, geolocation resolution with default
// fallback, and a watcher that debounces coordinate changes and keeps the
// displayed snapshot fresh.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "weatherwidget.app/errors"
	"weatherwidget.app/models"
)

const defaultRequestTimeout = 10 * time.Second

// APIClient talks to the local weather API.
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient builds a client for the API served at baseURL, e.g.
// "http://localhost:8080".
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &APIClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchWeather requests the current snapshot for the given coordinates.
func (c *APIClient) FetchWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	var snapshot models.WeatherSnapshot
	if err := c.getJSON(ctx, "/api/weather?"+query.Encode(), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// DefaultWeather requests the snapshot for the server's configured default
// location by omitting coordinates entirely.
func (c *APIClient) DefaultWeather(ctx context.Context) (*models.WeatherSnapshot, error) {
	var snapshot models.WeatherSnapshot
	if err := c.getJSON(ctx, "/api/weather", &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// WidgetConfig fetches the client-facing widget configuration.
func (c *APIClient) WidgetConfig(ctx context.Context) (*models.WidgetConfigResponse, error) {
	var cfg models.WidgetConfigResponse
	if err := c.getJSON(ctx, "/api/weather/config", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *APIClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.UnknownError, "building request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.Classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.Classify(err)
	}

	if resp.StatusCode != http.StatusOK {
		message := fmt.Sprintf("weather API returned HTTP %d", resp.StatusCode)
		var errResp models.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			message = errResp.Error
		}
		return apperrors.FromHTTPStatus(resp.StatusCode, message)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Wrap(apperrors.DataParsingError, "decoding weather API response", err)
	}
	return nil
}
