// Package cache stores fetched platform payloads (metadata documents,
// caption bodies) keyed by URL so that rewrites registered from the same
// intercept never hit the backend twice for the same resource.
package cache

import (
	"fmt"
	"sync"
	"time"
)

// Cache is a bounded key-value store with TTL semantics. Backends may be
// in-memory or shared (Redis) when several proxy instances run behind one
// load balancer.
type Cache interface {
	// Get retrieves a value by key. Returns the value and true on a hit.
	Get(key string) ([]byte, bool)

	// Set stores a value, overwriting any previous entry for the key.
	Set(key string, value []byte)

	// Len returns the number of entries currently stored.
	Len() int

	// Close releases backend resources. In-memory caches are a no-op.
	Close() error
}

// ProviderConfig carries everything a provider needs to build a cache.
type ProviderConfig struct {
	// Size is the maximum number of entries for LRU-bounded backends.
	Size int

	// TTL is the time-to-live for entries.
	TTL time.Duration

	RedisAddress  string
	RedisPassword string
	RedisDB       int
}

// Provider builds a Cache from config.
type Provider func(cfg ProviderConfig) (Cache, error)

var (
	mu        sync.RWMutex
	providers = make(map[string]Provider)
)

// Register registers a provider under the given name. It panics on a nil
// provider or a duplicate name; registration happens from init functions.
func Register(name string, p Provider) {
	mu.Lock()
	defer mu.Unlock()

	if p == nil {
		panic("cache: Register provider is nil")
	}
	if _, exists := providers[name]; exists {
		panic(fmt.Sprintf("cache: provider %q already registered", name))
	}
	providers[name] = p
}

// New creates a Cache using the named provider, wrapped with hit/miss
// metric instrumentation.
func New(name string, cfg ProviderConfig) (Cache, error) {
	mu.RLock()
	p, ok := providers[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("cache: unknown provider %q", name)
	}

	inner, err := p(cfg)
	if err != nil {
		return nil, err
	}
	return &instrumentedCache{inner: inner, provider: name}, nil
}
