package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrRegistryNotFound is returned when the native core has no registry with
// the requested name
var ErrRegistryNotFound = errors.New("registry not found")

// RegistryEntry is one element of a native registry
type RegistryEntry struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// Registry is the decoded registry document
type Registry struct {
	Entries []RegistryEntry     `json:"entries"`
	Tags    map[string][]string `json:"tags"`
}

// Lookup returns the entry with the given name
func (r *Registry) Lookup(name string) (RegistryEntry, bool) {
	for _, e := range r.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return RegistryEntry{}, false
}

// RegistrySource fetches raw registry JSON
type RegistrySource interface {
	GetRegistryData(registry string) (string, bool, error)
}

// RegistryCache memoizes decoded registries. Registries do not change during a
// session, the TTL only bounds memory held for rarely used ones.
type RegistryCache struct {
	source RegistrySource
	cache  *lru.LRU[string, *Registry]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRegistryCache creates a cache in front of source
func NewRegistryCache(source RegistrySource, size int, ttl time.Duration) *RegistryCache {
	if size < 1 {
		size = 1
	}
	return &RegistryCache{
		source: source,
		cache:  lru.NewLRU[string, *Registry](size, nil, ttl),
	}
}

// Get returns the named registry, fetching it on a miss. Missing registries
// are not cached.
func (c *RegistryCache) Get(name string) (*Registry, error) {
	if reg, ok := c.cache.Get(name); ok {
		c.hits.Add(1)
		return reg, nil
	}
	c.misses.Add(1)

	raw, ok, err := c.source.GetRegistryData(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRegistryNotFound, name)
	}

	var reg Registry
	if err := json.Unmarshal([]byte(raw), &reg); err != nil {
		return nil, fmt.Errorf("decoding registry %s: %w", name, err)
	}
	c.cache.Add(name, &reg)
	return &reg, nil
}

// Stats returns hit and miss counts
func (c *RegistryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge drops every cached registry
func (c *RegistryCache) Purge() {
	c.cache.Purge()
}
