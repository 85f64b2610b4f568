package aggregator

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// DefaultCacheTTL bounds how long prices and gas quotes are reused.
const DefaultCacheTTL = 30 * time.Second

type responseCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func newResponseCache(ttl time.Duration) (*responseCache, error) {
	if ttl <= 0 {
		return nil, nil
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        10_000,
		MaxCost:            1_000,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &responseCache{cache: cache, ttl: ttl}, nil
}

func (c *responseCache) get(key string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *responseCache) set(key string, value interface{}) {
	if c == nil {
		return
	}
	c.cache.SetWithTTL(key, value, 1, c.ttl)
	c.cache.Wait()
}

func (c *responseCache) close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
