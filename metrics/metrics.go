// Package metrics exposes prometheus instrumentation for the weather fetch
// pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type collectors struct {
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	cacheRequests *prometheus.CounterVec
	cacheLatency  *prometheus.HistogramVec
	cacheHitRatio *prometheus.GaugeVec

	fetchAttempts *prometheus.CounterVec
	fetchDuration prometheus.Histogram
}

var (
	global     *collectors
	globalOnce sync.Once
)

func getCollectors() *collectors {
	globalOnce.Do(func() {
		global = &collectors{
			cacheHits: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weather_cache_hits_total",
					Help: "The total number of cache hits",
				},
				[]string{"cache_type"},
			),
			cacheMisses: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weather_cache_misses_total",
					Help: "The total number of cache misses",
				},
				[]string{"cache_type"},
			),
			cacheRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weather_cache_requests_total",
					Help: "The total number of cache requests",
				},
				[]string{"cache_type"},
			),
			cacheLatency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "weather_cache_duration_seconds",
					Help:    "Cache operation duration in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"cache_type", "operation"},
			),
			cacheHitRatio: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "weather_cache_hit_ratio",
					Help: "Cache hit ratio (hits/total requests)",
				},
				[]string{"cache_type"},
			),
			fetchAttempts: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "weather_upstream_attempts_total",
					Help: "Upstream fetch attempts by outcome",
				},
				[]string{"outcome"},
			),
			fetchDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "weather_upstream_duration_seconds",
					Help:    "Upstream fetch duration in seconds",
					Buckets: prometheus.DefBuckets,
				},
			),
		}
	})
	return global
}

// CacheMetrics tracks hit/miss counters for one cache backend.
type CacheMetrics struct {
	cacheType string
	hits      int64
	misses    int64
	total     int64
	col       *collectors
	mu        sync.RWMutex
}

func NewCacheMetrics(cacheType string) *CacheMetrics {
	return &CacheMetrics{
		cacheType: cacheType,
		col:       getCollectors(),
	}
}

func (m *CacheMetrics) RecordHit() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hits++
	m.total++
	m.col.cacheHits.WithLabelValues(m.cacheType).Inc()
	m.col.cacheRequests.WithLabelValues(m.cacheType).Inc()
	m.updateHitRatio()
}

func (m *CacheMetrics) RecordMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.misses++
	m.total++
	m.col.cacheMisses.WithLabelValues(m.cacheType).Inc()
	m.col.cacheRequests.WithLabelValues(m.cacheType).Inc()
	m.updateHitRatio()
}

func (m *CacheMetrics) RecordLatency(operation string, seconds float64) {
	m.col.cacheLatency.WithLabelValues(m.cacheType, operation).Observe(seconds)
}

// updateHitRatio updates the prometheus hit ratio gauge.
// Must be called while holding the mutex.
func (m *CacheMetrics) updateHitRatio() {
	if m.total > 0 {
		ratio := float64(m.hits) / float64(m.total)
		m.col.cacheHitRatio.WithLabelValues(m.cacheType).Set(ratio)
	}
}

// Stats returns a snapshot of the in-process counters for the debug endpoint.
func (m *CacheMetrics) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var hitRatio float64
	if m.total > 0 {
		hitRatio = float64(m.hits) / float64(m.total)
	}

	return map[string]interface{}{
		"cache_type": m.cacheType,
		"hits":       m.hits,
		"misses":     m.misses,
		"total":      m.total,
		"hit_ratio":  hitRatio,
	}
}

// Upstream fetch outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomeTerminal  = "terminal"
)

// FetchMetrics tracks upstream fetch attempts and durations.
type FetchMetrics struct {
	col *collectors
}

func NewFetchMetrics() *FetchMetrics {
	return &FetchMetrics{col: getCollectors()}
}

func (m *FetchMetrics) RecordAttempt(outcome string, seconds float64) {
	m.col.fetchAttempts.WithLabelValues(outcome).Inc()
	m.col.fetchDuration.Observe(seconds)
}
