package providers

import (
	"context"
	"log/slog"
	"time"

	"weatherwidget.app/metrics"
	"weatherwidget.app/providers/cache"
)

// InstrumentedStore decorates a cache.Store with prometheus hit/miss and
// latency metrics.
type InstrumentedStore struct {
	store   cache.Store
	metrics *metrics.CacheMetrics
}

func NewInstrumentedStore(store cache.Store, cacheType string) *InstrumentedStore {
	return &InstrumentedStore{
		store:   store,
		metrics: metrics.NewCacheMetrics(cacheType),
	}
}

func (c *InstrumentedStore) measureLatency(operation string, fn func()) {
	start := time.Now()
	fn()
	c.metrics.RecordLatency(operation, time.Since(start).Seconds())
}

func (c *InstrumentedStore) Get(ctx context.Context, key string) ([]byte, bool) {
	var data []byte
	var found bool

	c.measureLatency("get", func() {
		data, found = c.store.Get(ctx, key)
	})

	if found {
		c.metrics.RecordHit()
	} else {
		c.metrics.RecordMiss()
	}

	return data, found
}

func (c *InstrumentedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.measureLatency("set", func() {
		c.store.Set(ctx, key, value, ttl)
	})
	slog.Debug("cache set", "key", key, "ttl", ttl)
}

func (c *InstrumentedStore) Delete(ctx context.Context, key string) {
	c.store.Delete(ctx, key)
}

func (c *InstrumentedStore) Clear(ctx context.Context) {
	c.store.Clear(ctx)
}

// Stats exposes the in-process counters for the debug endpoint.
func (c *InstrumentedStore) Stats() map[string]interface{} {
	return c.metrics.Stats()
}

// Close releases the underlying store's resources.
func (c *InstrumentedStore) Close() error {
	switch s := c.store.(type) {
	case interface{ Close() error }:
		return s.Close()
	case interface{ Close() }:
		s.Close()
	}
	return nil
}
