package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"weatherwidget.app/models"
)

// Store defines generic byte-level cache operations. Implementations must be
// safe for concurrent use; individual operations are atomic, compound
// read-then-write sequences are not.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
}

type memoryEntry struct {
	Data      []byte
	ExpiresAt time.Time
}

// MemoryStore is an in-process Store with lazy expiry on read and a periodic
// janitor sweep.
type MemoryStore struct {
	data   map[string]memoryEntry
	mutex  sync.RWMutex
	ticker *time.Ticker
	stopCh chan struct{}
}

func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		data:   make(map[string]memoryEntry),
		ticker: time.NewTicker(5 * time.Minute),
		stopCh: make(chan struct{}),
	}

	go store.cleanup()
	return store
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, exists := s.data[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		return nil, false
	}

	return entry.Data, true
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if value == nil {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[key] = memoryEntry{
		Data:      value,
		ExpiresAt: time.Now().Add(ttl),
	}
}

func (s *MemoryStore) Delete(ctx context.Context, key string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, key)
}

func (s *MemoryStore) Clear(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data = make(map[string]memoryEntry)
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() {
	close(s.stopCh)
}

func (s *MemoryStore) cleanup() {
	for {
		select {
		case <-s.ticker.C:
			s.removeExpiredEntries()
		case <-s.stopCh:
			s.ticker.Stop()
			return
		}
	}
}

func (s *MemoryStore) removeExpiredEntries() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	for key, entry := range s.data {
		if now.After(entry.ExpiresAt) {
			delete(s.data, key)
		}
	}
}

// SnapshotCache wraps a Store with weather snapshot serialization.
type SnapshotCache struct {
	store Store
}

func NewSnapshotCache(store Store) *SnapshotCache {
	return &SnapshotCache{store: store}
}

func (c *SnapshotCache) Get(ctx context.Context, key string) (*models.WeatherSnapshot, bool) {
	data, found := c.store.Get(ctx, key)
	if !found {
		return nil, false
	}

	var snapshot models.WeatherSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false
	}

	return &snapshot, true
}

func (c *SnapshotCache) Set(ctx context.Context, key string, snapshot *models.WeatherSnapshot, ttl time.Duration) {
	if snapshot == nil {
		return
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}

	c.store.Set(ctx, key, data, ttl)
}

func (c *SnapshotCache) Delete(ctx context.Context, key string) {
	c.store.Delete(ctx, key)
}

func (c *SnapshotCache) Clear(ctx context.Context) {
	c.store.Clear(ctx)
}
