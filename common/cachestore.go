package common

import (
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	DefaultExpiration = 5 * time.Minute
	cleanupInterval   = 7 * time.Minute
)

var _ CacheRepository = (*cacheStore)(nil)

type cacheStore struct {
	cache *cache.Cache
}

// NewCacheStore returns an in-memory CacheRepository used for GET responses
// on the statistics endpoints.
func NewCacheStore() CacheRepository {
	return &cacheStore{
		cache: cache.New(DefaultExpiration, cleanupInterval),
	}
}

func (c *cacheStore) Get(key string) ([]byte, bool) {
	value, found := c.cache.Get(key)
	if found {
		return value.([]byte), true
	}
	return nil, false
}

func (c *cacheStore) Set(key string, value []byte, expiration time.Duration) {
	c.cache.Set(key, value, expiration)
}

func (c *cacheStore) Delete(key string) {
	c.cache.Delete(key)
}

func (c *cacheStore) Flush() {
	c.cache.Flush()
}
