package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "weatherwidget.app/errors"
	"weatherwidget.app/models"
	"weatherwidget.app/retry"
)

type recordingFetcher struct {
	mu    sync.Mutex
	calls []Position
	fn    func(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error)
}

func (f *recordingFetcher) FetchWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Position{Lat: lat, Lon: lon})
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx, lat, lon)
	}
	return &models.WeatherSnapshot{Location: "Test"}, nil
}

func (f *recordingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *recordingFetcher) lastCall() Position {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func fastOptions() Options {
	return Options{
		Retry:             retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxJitter: time.Millisecond},
		DebounceDelay:     80 * time.Millisecond,
		MinDistanceMeters: 500,
	}
}

func waitUpdate(t *testing.T, w *Watcher) Update {
	t.Helper()
	select {
	case update, ok := <-w.Updates():
		require.True(t, ok, "updates channel closed unexpectedly")
		return update
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return Update{}
	}
}

func assertNoUpdate(t *testing.T, w *Watcher, within time.Duration) {
	t.Helper()
	select {
	case update := <-w.Updates():
		t.Fatalf("unexpected update: %+v", update)
	case <-time.After(within):
	}
}

func TestWatcher_DebounceCollapsesUpdates(t *testing.T) {
	fetcher := &recordingFetcher{}
	watcher := NewWatcher(fetcher, fastOptions())
	defer watcher.Close()

	watcher.UpdateCoordinates(Position{Lat: 40.0, Lon: -74.0})
	time.Sleep(30 * time.Millisecond)
	watcher.UpdateCoordinates(Position{Lat: 51.5072, Lon: -0.1276})

	update := waitUpdate(t, watcher)
	require.NoError(t, update.Err)

	// Only the last reported position is fetched.
	assert.Equal(t, 1, fetcher.callCount())
	assert.Equal(t, Position{Lat: 51.5072, Lon: -0.1276}, fetcher.lastCall())

	assertNoUpdate(t, watcher, 200*time.Millisecond)
}

func TestWatcher_DistanceGateSkipsSmallMoves(t *testing.T) {
	fetcher := &recordingFetcher{}
	watcher := NewWatcher(fetcher, fastOptions())
	defer watcher.Close()

	watcher.UpdateCoordinates(Position{Lat: 40.7128, Lon: -74.0060})
	waitUpdate(t, watcher)
	require.Equal(t, 1, fetcher.callCount())

	// Roughly a hundred meters north, well under the 500m threshold.
	watcher.UpdateCoordinates(Position{Lat: 40.7137, Lon: -74.0060})
	assertNoUpdate(t, watcher, 250*time.Millisecond)
	assert.Equal(t, 1, fetcher.callCount())

	// A genuinely different position fetches again.
	watcher.UpdateCoordinates(Position{Lat: 41.8781, Lon: -87.6298})
	waitUpdate(t, watcher)
	assert.Equal(t, 2, fetcher.callCount())
}

func TestWatcher_RefreshBypassesDebounceAndDistance(t *testing.T) {
	fetcher := &recordingFetcher{}
	watcher := NewWatcher(fetcher, fastOptions())
	defer watcher.Close()

	watcher.UpdateCoordinates(Position{Lat: 40.7128, Lon: -74.0060})
	waitUpdate(t, watcher)
	require.Equal(t, 1, fetcher.callCount())

	// Same position: the distance gate would suppress this, a manual refresh
	// must not.
	watcher.Refresh()
	waitUpdate(t, watcher)
	assert.Equal(t, 2, fetcher.callCount())
	assert.Equal(t, Position{Lat: 40.7128, Lon: -74.0060}, fetcher.lastCall())
}

func TestWatcher_StaleFetchIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	fetcher := &recordingFetcher{}
	fetcher.fn = func(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
		if lat == 40.7128 {
			// First position: block until cancelled.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-release:
			}
		}
		return &models.WeatherSnapshot{Location: "Chicago"}, nil
	}
	defer close(release)

	watcher := NewWatcher(fetcher, fastOptions())
	defer watcher.Close()

	watcher.UpdateCoordinates(Position{Lat: 40.7128, Lon: -74.0060})
	time.Sleep(150 * time.Millisecond) // first fetch is now in flight

	watcher.UpdateCoordinates(Position{Lat: 41.8781, Lon: -87.6298})

	update := waitUpdate(t, watcher)
	require.NoError(t, update.Err)
	assert.Equal(t, "Chicago", update.Snapshot.Location)

	assertNoUpdate(t, watcher, 150*time.Millisecond)
}

func TestWatcher_AutoRefresh(t *testing.T) {
	fetcher := &recordingFetcher{}
	opts := fastOptions()
	opts.AutoRefreshInterval = 120 * time.Millisecond
	watcher := NewWatcher(fetcher, opts)
	defer watcher.Close()

	watcher.UpdateCoordinates(Position{Lat: 40.7128, Lon: -74.0060})
	waitUpdate(t, watcher)
	require.Equal(t, 1, fetcher.callCount())

	// The next fetch arrives without any further input.
	waitUpdate(t, watcher)
	assert.GreaterOrEqual(t, fetcher.callCount(), 2)
	assert.Equal(t, Position{Lat: 40.7128, Lon: -74.0060}, fetcher.lastCall())
}

func TestWatcher_RetriesTransientFailures(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	fetcher := &recordingFetcher{}
	fetcher.fn = func(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			return nil, apperrors.New(apperrors.ServiceUnavailable, "upstream down")
		}
		return &models.WeatherSnapshot{Location: "Recovered"}, nil
	}

	opts := fastOptions()
	opts.Retry = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxJitter: time.Millisecond}
	watcher := NewWatcher(fetcher, opts)
	defer watcher.Close()

	watcher.UpdateCoordinates(Position{Lat: 40.7128, Lon: -74.0060})

	update := waitUpdate(t, watcher)
	require.NoError(t, update.Err)
	assert.Equal(t, "Recovered", update.Snapshot.Location)
	assert.Equal(t, 3, fetcher.callCount())
}

func TestWatcher_TerminalErrorSurfacesOnce(t *testing.T) {
	fetcher := &recordingFetcher{}
	fetcher.fn = func(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
		return nil, apperrors.New(apperrors.LocationNotFound, "no data here")
	}

	opts := fastOptions()
	opts.Retry = retry.Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxJitter: time.Millisecond}
	watcher := NewWatcher(fetcher, opts)
	defer watcher.Close()

	watcher.UpdateCoordinates(Position{Lat: 40.7128, Lon: -74.0060})

	update := waitUpdate(t, watcher)
	require.Error(t, update.Err)
	assert.Equal(t, apperrors.LocationNotFound, apperrors.KindOf(update.Err))
	assert.Equal(t, 1, fetcher.callCount())
}

func TestWatcher_CloseShutsDownUpdates(t *testing.T) {
	watcher := NewWatcher(&recordingFetcher{}, fastOptions())
	watcher.Close()

	select {
	case _, ok := <-watcher.Updates():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("updates channel not closed")
	}

	// Calls after Close are no-ops.
	watcher.UpdateCoordinates(Position{Lat: 1, Lon: 1})
	watcher.Refresh()
	watcher.Close()
}
