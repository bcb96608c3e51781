package providers

import (
	"fmt"

	"weatherwidget.app/config"
	"weatherwidget.app/providers/cache"
)

// NewStoreFromConfig selects the cache backend. The returned store is already
// wrapped with metrics instrumentation.
func NewStoreFromConfig(cfg *config.CacheConfig) (cache.Store, error) {
	switch cfg.Type {
	case "memory":
		return NewInstrumentedStore(cache.NewMemoryStore(), "memory"), nil
	case "redis":
		store, err := cache.NewRedisStore(&cache.RedisConfig{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  cfg.RedisTimeout,
			ReadTimeout:  cfg.RedisTimeout,
			WriteTimeout: cfg.RedisTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return NewInstrumentedStore(store, "redis"), nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}
