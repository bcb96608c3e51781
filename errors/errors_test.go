package errors

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeatherError_Error(t *testing.T) {
	t.Run("WithoutCause", func(t *testing.T) {
		err := New(LocationNotFound, "no data for coordinates")
		assert.Equal(t, "LOCATION_NOT_FOUND: no data for coordinates", err.Error())
	})

	t.Run("WithCause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(NetworkError, "upstream request failed", cause)
		assert.Equal(t, "NETWORK_ERROR: upstream request failed (caused by: connection refused)", err.Error())
		assert.Equal(t, cause, errors.Unwrap(err))
	})
}

func TestKindCatalog_Retryability(t *testing.T) {
	retryable := []Kind{
		NetworkError, ConnectionTimeout, RateLimitExceeded, ServiceUnavailable,
		InvalidResponse, DataParsingError, UnknownError,
		GeolocationUnavailable, GeolocationTimeout,
	}
	terminal := []Kind{
		APIKeyInvalid, LocationNotFound, InvalidCoordinates, ConfigurationError,
		GeolocationDenied, GeolocationUnsupported,
	}

	for _, kind := range retryable {
		t.Run(string(kind), func(t *testing.T) {
			err := New(kind, "test")
			assert.True(t, err.Retryable)
			assert.True(t, IsRetryable(err))
			assert.NotEmpty(t, err.UserMessage)
		})
	}

	for _, kind := range terminal {
		t.Run(string(kind), func(t *testing.T) {
			err := New(kind, "test")
			assert.False(t, err.Retryable)
			assert.False(t, IsRetryable(err))
			assert.NotEmpty(t, err.UserMessage)
		})
	}
}

func TestTerminal_OverridesRetryability(t *testing.T) {
	err := NewMalformedData("missing required field main.temp")
	assert.Equal(t, DataParsingError, err.Kind)
	assert.False(t, err.Retryable)

	// The original kind default is untouched.
	assert.True(t, New(DataParsingError, "test").Retryable)
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   Kind
	}{
		{400, InvalidCoordinates},
		{401, APIKeyInvalid},
		{404, LocationNotFound},
		{429, RateLimitExceeded},
		{500, ServiceUnavailable},
		{502, ServiceUnavailable},
		{503, ServiceUnavailable},
		{418, UnknownError},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("Status%d", tc.status), func(t *testing.T) {
			err := FromHTTPStatus(tc.status, "upstream response")
			assert.Equal(t, tc.kind, err.Kind)
			assert.Equal(t, tc.status, err.Details["status"])
		})
	}
}

func TestFromGeolocationCode(t *testing.T) {
	tests := []struct {
		code int
		kind Kind
	}{
		{GeoCodePermissionDenied, GeolocationDenied},
		{GeoCodePositionUnavailable, GeolocationUnavailable},
		{GeoCodeTimeout, GeolocationTimeout},
		{99, UnknownError},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("Code%d", tc.code), func(t *testing.T) {
			err := FromGeolocationCode(tc.code, "geolocation failed")
			assert.Equal(t, tc.kind, err.Kind)
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("PassThroughClassified", func(t *testing.T) {
		original := New(LocationNotFound, "no data")
		classified := Classify(fmt.Errorf("wrapped: %w", original))
		assert.Equal(t, LocationNotFound, classified.Kind)
	})

	t.Run("DeadlineExceeded", func(t *testing.T) {
		classified := Classify(context.DeadlineExceeded)
		assert.Equal(t, ConnectionTimeout, classified.Kind)
		assert.True(t, classified.Retryable)
	})

	t.Run("URLError", func(t *testing.T) {
		classified := Classify(&url.Error{Op: "Get", URL: "http://example.com", Err: errors.New("connection refused")})
		assert.Equal(t, NetworkError, classified.Kind)
		assert.True(t, classified.Retryable)
	})

	t.Run("UnknownError", func(t *testing.T) {
		classified := Classify(errors.New("something odd"))
		assert.Equal(t, UnknownError, classified.Kind)
		assert.True(t, classified.Retryable)
	})
}

func TestKindOf_UnclassifiedError(t *testing.T) {
	assert.Equal(t, UnknownError, KindOf(errors.New("plain")))
	assert.Equal(t, APIKeyInvalid, KindOf(New(APIKeyInvalid, "bad key")))
}
