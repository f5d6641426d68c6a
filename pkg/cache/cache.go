package cache

import (
	"context"
	"errors"
	"time"

	"github.com/apprenticelog/apprenticelog/pkg/cache/inmemory"
	"github.com/apprenticelog/apprenticelog/pkg/cache/redis"
)

var (
	// ErrInvalidCacheDriver is returned when an invalid cache driver is provided
	ErrInvalidCacheDriver = errors.New("invalid cache driver")
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"

	NoExpiration = -1 * time.Second
)

// Cache implements a generic interface for cache clients
type Cache interface {
	// Get returns the value for the given key
	// returns an error matching IsNotFound if the key was not found
	Get(ctx context.Context, key string) (interface{}, error)

	// GetByPattern returns all values whose keys match the glob pattern
	// returns an empty map if nothing matches
	GetByPattern(ctx context.Context, keyPattern string) (map[string]interface{}, error)

	// Set sets the value for the given key
	// returns an error if the key was not set successfully
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Delete deletes the value for the given key
	// deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// Config is the configuration for the cache client
type Config struct {
	// Driver is the type of cache client
	Driver string

	// InMemory is the configuration for the inmemory cache client
	InMemory *inmemory.Config

	// Redis is the configuration for the redis client
	Redis *redis.Config
}

// New returns a new cache client
func New(config *Config) (Cache, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	switch config.Driver {
	case DriverMemory:
		return inmemory.NewCache(config.InMemory)
	case DriverRedis:
		rc, err := redis.NewCache(config.Redis)
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, ErrInvalidCacheDriver
	}
}

// IsNotFound reports whether err means the key is missing, whichever driver produced it
func IsNotFound(err error) bool {
	return errors.Is(err, inmemory.ErrKeyNotFound) || errors.Is(err, redis.ErrKeyNotFound)
}
