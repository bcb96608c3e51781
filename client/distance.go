package client

import "math"

const earthRadiusMeters = 6371000

// HaversineMeters returns the great-circle distance between two positions.
// Used by the watcher to suppress fetches for coordinate jitter that would
// not change the displayed weather.
func HaversineMeters(a, b Position) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
