package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"weatherwidget.app/models"
	"weatherwidget.app/retry"
)

// WeatherFetcher is the slice of APIClient the watcher needs.
type WeatherFetcher interface {
	FetchWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error)
}

// Update is delivered on the watcher's update channel after every completed
// fetch. Exactly one of Snapshot and Err is set.
type Update struct {
	Snapshot *models.WeatherSnapshot
	Err      error
}

// Options tunes the watcher. Zero values fall back to the documented
// defaults.
type Options struct {
	Retry               retry.Policy
	AutoRefreshInterval time.Duration
	DebounceDelay       time.Duration
	MinDistanceMeters   float64
}

const (
	defaultDebounceDelay     = 300 * time.Millisecond
	defaultMinDistanceMeters = 500
)

func (o Options) withDefaults() Options {
	if o.Retry.MaxAttempts == 0 {
		o.Retry = retry.DefaultPolicy()
	}
	if o.DebounceDelay <= 0 {
		o.DebounceDelay = defaultDebounceDelay
	}
	if o.MinDistanceMeters <= 0 {
		o.MinDistanceMeters = defaultMinDistanceMeters
	}
	return o
}

// Watcher keeps a weather snapshot current for a moving position. Coordinate
// updates are debounced and distance-gated; a manual refresh bypasses both.
// All state lives in a single goroutine, so no locking is needed; callers
// interact exclusively through channels.
type Watcher struct {
	fetcher WeatherFetcher
	opts    Options

	coords  chan Position
	refresh chan struct{}
	updates chan Update
	done    chan struct{}

	closeOnce sync.Once
}

// NewWatcher starts a watcher. The first fetch happens one debounce delay
// after the first coordinate update. Close releases the goroutine.
func NewWatcher(fetcher WeatherFetcher, opts Options) *Watcher {
	w := &Watcher{
		fetcher: fetcher,
		opts:    opts.withDefaults(),
		coords:  make(chan Position),
		refresh: make(chan struct{}),
		updates: make(chan Update, 8),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// UpdateCoordinates reports a new position. Rapid successive calls collapse
// into a single fetch at the last reported position.
func (w *Watcher) UpdateCoordinates(pos Position) {
	select {
	case w.coords <- pos:
	case <-w.done:
	}
}

// Refresh forces an immediate fetch at the last position, skipping the
// debounce delay and the minimum-distance gate.
func (w *Watcher) Refresh() {
	select {
	case w.refresh <- struct{}{}:
	case <-w.done:
	}
}

// Updates returns the channel on which fetch outcomes are delivered. The
// channel is closed when the watcher shuts down.
func (w *Watcher) Updates() <-chan Update {
	return w.updates
}

// Close stops the watcher and cancels any in-flight fetch.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
}

type fetchResult struct {
	generation uint64
	snapshot   *models.WeatherSnapshot
	err        error
}

func (w *Watcher) run() {
	results := make(chan fetchResult, 1)
	debounce := newStoppedTimer()
	autoRefresh := newStoppedTimer()

	var (
		pending     Position
		hasPending  bool
		lastFetched Position
		everFetched bool
		hasSnapshot bool
		generation  uint64
		cancelFetch context.CancelFunc
	)

	defer func() {
		if cancelFetch != nil {
			cancelFetch()
		}
		debounce.Stop()
		autoRefresh.Stop()
		close(w.updates)
	}()

	// A superseded fetch is cancelled and its result discarded by generation
	// number, so a slow stale response can never overwrite a newer one.
	startFetch := func(pos Position) {
		if cancelFetch != nil {
			cancelFetch()
		}
		generation++
		gen := generation

		ctx, cancel := context.WithCancel(context.Background())
		cancelFetch = cancel
		lastFetched = pos
		everFetched = true

		go func() {
			snapshot, err := retry.Do(ctx, w.opts.Retry, func(ctx context.Context) (*models.WeatherSnapshot, error) {
				return w.fetcher.FetchWeather(ctx, pos.Lat, pos.Lon)
			})
			select {
			case results <- fetchResult{generation: gen, snapshot: snapshot, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	emit := func(update Update) {
		select {
		case w.updates <- update:
		case <-w.done:
		}
	}

	for {
		select {
		case <-w.done:
			return

		case pos := <-w.coords:
			pending = pos
			hasPending = true
			resetTimer(debounce, w.opts.DebounceDelay)

		case <-debounce.C:
			if !hasPending {
				continue
			}
			hasPending = false
			if hasSnapshot {
				if d := HaversineMeters(pending, lastFetched); d < w.opts.MinDistanceMeters {
					slog.Debug("position change below distance threshold, keeping current snapshot",
						"distance_m", d, "threshold_m", w.opts.MinDistanceMeters)
					continue
				}
			}
			startFetch(pending)

		case <-w.refresh:
			switch {
			case everFetched:
				startFetch(lastFetched)
			case hasPending:
				hasPending = false
				startFetch(pending)
			}

		case res := <-results:
			if res.generation != generation {
				continue
			}
			if res.err != nil {
				slog.Warn("weather fetch failed", "error", res.err)
				emit(Update{Err: res.err})
				continue
			}
			hasSnapshot = true
			emit(Update{Snapshot: res.snapshot})
			if w.opts.AutoRefreshInterval > 0 {
				resetTimer(autoRefresh, w.opts.AutoRefreshInterval)
			}

		case <-autoRefresh.C:
			if everFetched {
				startFetch(lastFetched)
			}
		}
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
