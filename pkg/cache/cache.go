package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTTL      = 60 * time.Second
	CleanupInterval = 120 * time.Second
)

// Cache is an in-process TTL cache.
type Cache struct {
	store *gocache.Cache
}

func New(defaultTTL, cleanup time.Duration) *Cache {
	return &Cache{store: gocache.New(defaultTTL, cleanup)}
}

func (c *Cache) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

// Set stores value; ttl 0 means the default TTL.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(key, value, ttl)
}

// GetOrFetch returns the cached value or calls fetch and caches its result.
// Errors are not cached.
func (c *Cache) GetOrFetch(key string, ttl time.Duration, fetch func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.store.Get(key); ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return nil, err
	}
	c.Set(key, v, ttl)
	logrus.WithField("key", key).Debug("Cache filled")
	return v, nil
}

func (c *Cache) Invalidate(key string) {
	c.store.Delete(key)
}

func (c *Cache) Flush() {
	c.store.Flush()
}
