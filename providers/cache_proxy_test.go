package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "weatherwidget.app/errors"
	"weatherwidget.app/models"
	"weatherwidget.app/providers/cache"
	"weatherwidget.app/retry"
)

func TestCacheKey(t *testing.T) {
	t.Run("FourDecimalPlaces", func(t *testing.T) {
		assert.Equal(t, "weather_data_40.7128_-74.0060", CacheKey(40.7128, -74.0060))
	})

	t.Run("SubNoiseCollapses", func(t *testing.T) {
		assert.Equal(t, CacheKey(40.7128, -74.0060), CacheKey(40.712812, -74.006015))
	})

	t.Run("DistinctCoordinatesDistinctKeys", func(t *testing.T) {
		assert.NotEqual(t, CacheKey(40.7128, -74.0060), CacheKey(40.7129, -74.0060))
	})
}

type countingProvider struct {
	calls    atomic.Int64
	snapshot *models.WeatherSnapshot
	err      error
	delay    time.Duration
}

func (p *countingProvider) CurrentWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.snapshot, nil
}

func newTestProxy(t *testing.T, provider WeatherProvider) *WeatherCacheProxy {
	t.Helper()
	store := cache.NewMemoryStore()
	t.Cleanup(store.Close)
	return NewWeatherCacheProxy(provider, cache.NewSnapshotCache(store), time.Minute)
}

func TestWeatherCacheProxy_CurrentWeather(t *testing.T) {
	snapshot := &models.WeatherSnapshot{Location: "New York", Temperature: 21}

	t.Run("MissThenHit", func(t *testing.T) {
		provider := &countingProvider{snapshot: snapshot}
		proxy := newTestProxy(t, provider)

		first, err := proxy.CurrentWeather(context.Background(), 40.7128, -74.0060)
		require.NoError(t, err)
		assert.Equal(t, snapshot, first)

		second, err := proxy.CurrentWeather(context.Background(), 40.7128, -74.0060)
		require.NoError(t, err)
		assert.Equal(t, snapshot, second)

		assert.Equal(t, int64(1), provider.calls.Load())
	})

	t.Run("CoordinateNoiseSharesEntry", func(t *testing.T) {
		provider := &countingProvider{snapshot: snapshot}
		proxy := newTestProxy(t, provider)

		_, err := proxy.CurrentWeather(context.Background(), 40.7128, -74.0060)
		require.NoError(t, err)
		_, err = proxy.CurrentWeather(context.Background(), 40.712812, -74.006015)
		require.NoError(t, err)

		assert.Equal(t, int64(1), provider.calls.Load())
	})

	t.Run("ErrorsAreNotCached", func(t *testing.T) {
		provider := &countingProvider{err: apperrors.New(apperrors.ServiceUnavailable, "upstream down")}
		proxy := newTestProxy(t, provider)

		_, err := proxy.CurrentWeather(context.Background(), 40.0, -74.0)
		assert.Error(t, err)

		_, err = proxy.CurrentWeather(context.Background(), 40.0, -74.0)
		assert.Error(t, err)

		assert.Equal(t, int64(2), provider.calls.Load())
	})

	t.Run("ConcurrentMissesCoalesce", func(t *testing.T) {
		provider := &countingProvider{snapshot: snapshot, delay: 50 * time.Millisecond}
		proxy := newTestProxy(t, provider)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := proxy.CurrentWeather(context.Background(), 40.7128, -74.0060)
				assert.NoError(t, err)
				assert.Equal(t, snapshot, result)
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), provider.calls.Load())
	})

	t.Run("Invalidate", func(t *testing.T) {
		provider := &countingProvider{snapshot: snapshot}
		proxy := newTestProxy(t, provider)

		_, err := proxy.CurrentWeather(context.Background(), 40.7128, -74.0060)
		require.NoError(t, err)

		proxy.Invalidate(context.Background(), 40.712812, -74.006015)

		_, err = proxy.CurrentWeather(context.Background(), 40.7128, -74.0060)
		require.NoError(t, err)

		assert.Equal(t, int64(2), provider.calls.Load())
	})
}

// End-to-end: cache proxy over retrying provider over the real HTTP client
// against a scripted upstream.
func TestPipeline_RetriesThenCaches(t *testing.T) {
	var upstreamCalls atomic.Int64
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := upstreamCalls.Add(1)
		if call < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(validUpstreamBody))
		require.NoError(t, err)
	}))
	defer mockServer.Close()

	upstream := NewOpenWeatherProvider(providerConfig(mockServer.URL))
	retrying := NewRetryingProviderWithPolicy(upstream, retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxJitter:   time.Millisecond,
	})
	proxy := newTestProxy(t, retrying)

	snapshot, err := proxy.CurrentWeather(context.Background(), 40.7128, -74.0060)
	require.NoError(t, err)
	assert.Equal(t, "New York", snapshot.Location)
	assert.Equal(t, int64(3), upstreamCalls.Load())

	// Second read is served from cache.
	_, err = proxy.CurrentWeather(context.Background(), 40.7128, -74.0060)
	require.NoError(t, err)
	assert.Equal(t, int64(3), upstreamCalls.Load())
}
