// Package errors defines the application error taxonomy shared by the
// server-side fetch pipeline and the client-side widget watcher.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Kind identifies a member of the closed error taxonomy. The set is fixed at
// compile time; retryability and user-facing messages are bound per kind.
type Kind string

// Transient failures - safe to retry with backoff
const (
	NetworkError       Kind = "NETWORK_ERROR"
	ConnectionTimeout  Kind = "CONNECTION_TIMEOUT"
	RateLimitExceeded  Kind = "RATE_LIMIT_EXCEEDED"
	ServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
	InvalidResponse    Kind = "INVALID_RESPONSE"
	DataParsingError   Kind = "DATA_PARSING_ERROR"
	UnknownError       Kind = "UNKNOWN_ERROR"
)

// Terminal failures - retrying cannot help
const (
	APIKeyInvalid      Kind = "API_KEY_INVALID"
	LocationNotFound   Kind = "LOCATION_NOT_FOUND"
	InvalidCoordinates Kind = "INVALID_COORDINATES"
	ConfigurationError Kind = "CONFIGURATION_ERROR"
)

// Geolocation failures - denied/unsupported are terminal, the rest transient
const (
	GeolocationDenied      Kind = "GEOLOCATION_DENIED"
	GeolocationUnsupported Kind = "GEOLOCATION_UNSUPPORTED"
	GeolocationUnavailable Kind = "GEOLOCATION_UNAVAILABLE"
	GeolocationTimeout     Kind = "GEOLOCATION_TIMEOUT"
)

type kindInfo struct {
	userMessage string
	retryable   bool
}

var kindCatalog = map[Kind]kindInfo{
	NetworkError:       {"Unable to connect to the weather service. Please check your connection.", true},
	ConnectionTimeout:  {"The request timed out. Please try again.", true},
	RateLimitExceeded:  {"Too many requests. Please wait a moment and try again.", true},
	ServiceUnavailable: {"Weather service is temporarily unavailable. Please try again later.", true},
	InvalidResponse:    {"Received an unexpected response from the weather service.", true},
	DataParsingError:   {"Unable to process weather data.", true},
	UnknownError:       {"Something went wrong. Please try again.", true},

	APIKeyInvalid:      {"Weather service configuration error. Please contact support.", false},
	LocationNotFound:   {"Weather data is not available for this location.", false},
	InvalidCoordinates: {"Invalid latitude/longitude.", false},
	ConfigurationError: {"Weather service is not configured correctly.", false},

	GeolocationDenied:      {"Location access was denied. Showing weather for the default location.", false},
	GeolocationUnsupported: {"Your browser does not support geolocation. Showing weather for the default location.", false},
	GeolocationUnavailable: {"Your location is currently unavailable. Showing weather for the default location.", true},
	GeolocationTimeout:     {"Determining your location took too long. Showing weather for the default location.", true},
}

// WeatherError is the single error type crossing component boundaries.
// Retryable is an explicit field so that retry decisions never depend on
// message contents.
type WeatherError struct {
	Kind        Kind
	Message     string
	UserMessage string
	Retryable   bool
	Details     map[string]any
	Timestamp   time.Time
	Cause       error
}

func (e *WeatherError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *WeatherError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a diagnostic key/value pair and returns the error for
// chaining. Details are for logging, never for control flow.
func (e *WeatherError) WithDetail(key string, value any) *WeatherError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Terminal returns a copy with Retryable forced off. Used where a normally
// transient kind is known not to self-heal, e.g. a malformed payload on an
// otherwise successful upstream response.
func (e *WeatherError) Terminal() *WeatherError {
	clone := *e
	clone.Retryable = false
	return &clone
}

func New(kind Kind, message string) *WeatherError {
	info := kindCatalog[kind]
	return &WeatherError{
		Kind:        kind,
		Message:     message,
		UserMessage: info.userMessage,
		Retryable:   info.retryable,
		Timestamp:   time.Now().UTC(),
	}
}

func Wrap(kind Kind, message string, cause error) *WeatherError {
	err := New(kind, message)
	err.Cause = cause
	return err
}

func NewConfigurationError(message string, cause error) *WeatherError {
	return Wrap(ConfigurationError, message, cause)
}

func NewInvalidCoordinates(message string) *WeatherError {
	return New(InvalidCoordinates, message)
}

func NewMalformedData(message string) *WeatherError {
	// Malformed data on a 2xx upstream response will not heal on retry.
	return New(DataParsingError, message).Terminal()
}

// IsRetryable reports whether err carries a retryable classification.
// Unclassified errors are treated as retryable, matching the generic
// "unknown" member of the taxonomy.
func IsRetryable(err error) bool {
	var weatherErr *WeatherError
	if errors.As(err, &weatherErr) {
		return weatherErr.Retryable
	}
	return true
}

// KindOf extracts the taxonomy kind from err, or UnknownError when err is not
// a classified error.
func KindOf(err error) Kind {
	var weatherErr *WeatherError
	if errors.As(err, &weatherErr) {
		return weatherErr.Kind
	}
	return UnknownError
}

// UserMessageOf returns the user-facing message for err.
func UserMessageOf(err error) string {
	var weatherErr *WeatherError
	if errors.As(err, &weatherErr) {
		return weatherErr.UserMessage
	}
	return kindCatalog[UnknownError].userMessage
}

// FromHTTPStatus maps an HTTP response status to a taxonomy member.
func FromHTTPStatus(status int, message string) *WeatherError {
	var kind Kind
	switch {
	case status == 400:
		kind = InvalidCoordinates
	case status == 401:
		kind = APIKeyInvalid
	case status == 404:
		kind = LocationNotFound
	case status == 429:
		kind = RateLimitExceeded
	case status >= 500:
		kind = ServiceUnavailable
	default:
		kind = UnknownError
	}
	return New(kind, message).WithDetail("status", status)
}

// Browser geolocation API error codes.
const (
	GeoCodePermissionDenied    = 1
	GeoCodePositionUnavailable = 2
	GeoCodeTimeout             = 3
)

// FromGeolocationCode maps a browser geolocation error code to a taxonomy
// member.
func FromGeolocationCode(code int, message string) *WeatherError {
	var kind Kind
	switch code {
	case GeoCodePermissionDenied:
		kind = GeolocationDenied
	case GeoCodePositionUnavailable:
		kind = GeolocationUnavailable
	case GeoCodeTimeout:
		kind = GeolocationTimeout
	default:
		kind = UnknownError
	}
	return New(kind, message).WithDetail("code", code)
}

// Classify converts a transport-level error into a taxonomy member by
// inspecting its type, not its message. Already-classified errors pass
// through unchanged.
func Classify(err error) *WeatherError {
	var weatherErr *WeatherError
	if errors.As(err, &weatherErr) {
		return weatherErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(ConnectionTimeout, "request deadline exceeded", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(ConnectionTimeout, "network timeout", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return Wrap(NetworkError, "network request failed", err)
	}

	return Wrap(UnknownError, "unexpected failure", err)
}
