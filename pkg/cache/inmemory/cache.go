package inmemory

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/tidwall/match"
)

// ErrKeyNotFound is returned by Get when the key is absent or expired
var ErrKeyNotFound = errors.New("key not found")

// InMemoryCache holds the handler for the in-memory cache using go-cache
type InMemoryCache struct {
	client *gocache.Cache
}

// Config is the configuration for the in-memory cache.
// A negative DefaultExpiration keeps entries forever, a non-positive
// CleanupInterval disables the janitor.
type Config struct {
	DefaultExpiration time.Duration
	CleanupInterval   time.Duration
}

// NewCache returns a go-cache backed cache, using defaults when config is nil
func NewCache(config *Config) (*InMemoryCache, error) {
	if config == nil {
		config = getDefaultConfig()
	}

	client := gocache.New(config.DefaultExpiration, config.CleanupInterval)

	return &InMemoryCache{
		client: client,
	}, nil
}

// Set implements Cache. A zero ttl uses the configured default expiration.
func (imc *InMemoryCache) Set(
	ctx context.Context,
	key string,
	value string,
	ttl time.Duration,
) error {
	imc.client.Set(key, value, ttl)
	return nil
}

// Get implements Cache.
func (imc *InMemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	val, found := imc.client.Get(key)
	if !found {
		return "", ErrKeyNotFound
	}
	return val, nil
}

// GetByPattern implements Cache. Patterns use Redis SCAN MATCH style wildcards:
// * matches any run of characters, '/' included, and ? a single character.
func (imc *InMemoryCache) GetByPattern(ctx context.Context, keyPattern string) (map[string]interface{}, error) {
	values := make(map[string]interface{})
	for key, item := range imc.client.Items() {
		if match.Match(key, keyPattern) {
			values[key] = item.Object
		}
	}
	return values, nil
}

// Delete implements Cache.
func (imc *InMemoryCache) Delete(ctx context.Context, key string) error {
	imc.client.Delete(key)
	return nil
}

// getDefaultConfig returns the default configuration for the in-memory cache
func getDefaultConfig() *Config {
	return &Config{
		DefaultExpiration: gocache.NoExpiration,
		CleanupInterval:   -1,
	}
}
