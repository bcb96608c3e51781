package client

import (
	"context"
	"log/slog"

	apperrors "weatherwidget.app/errors"
)

// Position is a resolved geographic location.
type Position struct {
	Lat float64
	Lon float64
}

// LocationSource resolves the viewer's current position. Implementations wrap
// whatever positioning facility the host environment offers; errors should be
// classified via the errors package geolocation kinds.
type LocationSource interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// ResolveLocation asks source for the current position and degrades to
// fallback on any failure. The returned position is always usable; the
// returned error, when non-nil, carries the user-facing notice explaining why
// the default location is shown. A nil source means geolocation is
// unsupported.
func ResolveLocation(ctx context.Context, source LocationSource, fallback Position) (Position, error) {
	if source == nil {
		err := apperrors.New(apperrors.GeolocationUnsupported, "no location source available")
		slog.Info("geolocation unsupported, using default location",
			"lat", fallback.Lat, "lon", fallback.Lon)
		return fallback, err
	}

	pos, err := source.CurrentPosition(ctx)
	if err != nil {
		classified := apperrors.Classify(err)
		slog.Warn("geolocation failed, using default location",
			"kind", classified.Kind, "error", err,
			"lat", fallback.Lat, "lon", fallback.Lon)
		return fallback, classified
	}

	return pos, nil
}
