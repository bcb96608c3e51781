package providers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"weatherwidget.app/models"
	"weatherwidget.app/providers/cache"
)

// CacheKey renders coordinates to four decimal places so sub-10⁻⁴-degree
// noise maps to the same entry.
func CacheKey(lat, lon float64) string {
	return fmt.Sprintf("weather_data_%.4f_%.4f", lat, lon)
}

// WeatherCacheProxy fronts a provider with a TTL cache. Concurrent misses
// for the same key are coalesced into a single upstream fetch.
type WeatherCacheProxy struct {
	provider WeatherProvider
	cache    *cache.SnapshotCache
	ttl      time.Duration
	group    singleflight.Group
}

func NewWeatherCacheProxy(provider WeatherProvider, snapshots *cache.SnapshotCache, ttl time.Duration) *WeatherCacheProxy {
	return &WeatherCacheProxy{
		provider: provider,
		cache:    snapshots,
		ttl:      ttl,
	}
}

func (p *WeatherCacheProxy) CurrentWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	key := CacheKey(lat, lon)

	if snapshot, found := p.cache.Get(ctx, key); found {
		slog.Debug("cache hit", "key", key)
		return snapshot, nil
	}

	slog.Debug("cache miss", "key", key)

	result, err, shared := p.group.Do(key, func() (interface{}, error) {
		snapshot, err := p.provider.CurrentWeather(ctx, lat, lon)
		if err != nil {
			return nil, err
		}
		p.cache.Set(ctx, key, snapshot, p.ttl)
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("coalesced concurrent fetch", "key", key)
	}

	return result.(*models.WeatherSnapshot), nil
}

// Invalidate removes exactly one cached entry keyed the same way as reads.
func (p *WeatherCacheProxy) Invalidate(ctx context.Context, lat, lon float64) {
	key := CacheKey(lat, lon)
	p.cache.Delete(ctx, key)
	slog.Debug("cache invalidated", "key", key)
}
