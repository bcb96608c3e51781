package providers

import (
	"encoding/json"
	"math"
	"time"

	apperrors "weatherwidget.app/errors"
	"weatherwidget.app/models"
)

// openWeatherResponse mirrors the subset of the upstream schema the widget
// consumes. Pointers mark the required paths so absence is distinguishable
// from zero values.
type openWeatherResponse struct {
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        *string `json:"main"`
		Description *string `json:"description"`
		Icon        *string `json:"icon"`
	} `json:"weather"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
	Coord *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Name string `json:"name"`
}

// Normalizer validates upstream payloads and maps them into the stable
// WeatherSnapshot schema. Required fields fail hard; optional fields get
// documented fallbacks (wind speed 0, "Unknown Location", zero coordinates).
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize converts a raw upstream body into a snapshot. LastUpdated is the
// capture time, not the upstream observation time.
func (n *Normalizer) Normalize(body []byte) (*models.WeatherSnapshot, error) {
	var raw openWeatherResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperrors.NewMalformedData("invalid JSON in upstream response").
			WithDetail("body", truncate(string(body), 512))
	}

	if raw.Main == nil || raw.Main.Temp == nil {
		return nil, apperrors.NewMalformedData("missing required field main.temp")
	}
	if raw.Main.Humidity == nil {
		return nil, apperrors.NewMalformedData("missing required field main.humidity")
	}
	if len(raw.Weather) == 0 {
		return nil, apperrors.NewMalformedData("missing required field weather[0]")
	}
	condition := raw.Weather[0]
	if condition.Main == nil {
		return nil, apperrors.NewMalformedData("missing required field weather[0].main")
	}
	if condition.Description == nil {
		return nil, apperrors.NewMalformedData("missing required field weather[0].description")
	}
	if condition.Icon == nil {
		return nil, apperrors.NewMalformedData("missing required field weather[0].icon")
	}

	windSpeed := 0.0
	if raw.Wind != nil && raw.Wind.Speed != nil {
		windSpeed = math.Round(*raw.Wind.Speed*10) / 10
	}

	location := raw.Name
	if location == "" {
		location = "Unknown Location"
	}

	var coords models.Coordinates
	if raw.Coord != nil {
		coords = models.Coordinates{Lat: raw.Coord.Lat, Lon: raw.Coord.Lon}
	}

	return &models.WeatherSnapshot{
		Location:    location,
		Temperature: int(math.Round(*raw.Main.Temp)),
		Condition:   *condition.Main,
		Description: *condition.Description,
		Icon:        *condition.Icon,
		Humidity:    int(math.Round(*raw.Main.Humidity)),
		WindSpeed:   windSpeed,
		LastUpdated: n.now().UTC().Format(time.RFC3339),
		Coordinates: coords,
	}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
