// Package models defines data structures used throughout the application
package models

// Coordinates is a geographic point in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// WeatherSnapshot is the normalized weather payload served by the API and
// cached by the fetch pipeline. Immutable once constructed.
type WeatherSnapshot struct {
	Location    string      `json:"location"`
	Temperature int         `json:"temperature"`
	Condition   string      `json:"condition"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Humidity    int         `json:"humidity"`
	WindSpeed   float64     `json:"wind_speed"`
	LastUpdated string      `json:"last_updated"`
	Coordinates Coordinates `json:"coordinates"`
}

// WeatherRequest binds the coordinate query parameters. Pointers distinguish
// absent parameters from legitimate zero coordinates; omitting both falls
// back to the configured default location.
type WeatherRequest struct {
	Lat *float64 `form:"lat" binding:"omitempty,min=-90,max=90"`
	Lon *float64 `form:"lon" binding:"omitempty,min=-180,max=180"`
}

// LocationInfo describes a named default location exposed to the widget.
type LocationInfo struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name"`
}

// WidgetSettings is the client-facing subset of widget configuration.
type WidgetSettings struct {
	Enabled                    bool   `json:"enabled"`
	AutoRefreshIntervalSeconds int    `json:"auto_refresh_interval_seconds"`
	TemperatureUnit            string `json:"temperature_unit"`
}

// WidgetConfigResponse is returned by GET /api/weather/config. The API key
// never appears here.
type WidgetConfigResponse struct {
	DefaultLocation LocationInfo   `json:"default_location"`
	Widget          WidgetSettings `json:"widget"`
}

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}
