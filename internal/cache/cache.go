// Package cache keeps recent scan results in memory, keyed by file content.
package cache

import (
	"fmt"
	"sync/atomic"

	"github.com/maypok86/otter"
	"github.com/mvp-joe/concept-lens/internal/concepts"
)

// DefaultCapacity is the number of results kept when no capacity is
// configured.
const DefaultCapacity = 1024

// ResultCache is a bounded, concurrency-safe cache of scan results.
// Results are cloned on the way in and out, so callers may mutate them.
type ResultCache struct {
	results otter.Cache[string, *concepts.ScanResult]
	hits    atomic.Int64
	misses  atomic.Int64
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// New creates a cache holding up to capacity results.
// A non-positive capacity uses DefaultCapacity.
func New(capacity int) (*ResultCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	results, err := otter.MustBuilder[string, *concepts.ScanResult](capacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build result cache: %w", err)
	}
	return &ResultCache{results: results}, nil
}

// Get returns a copy of the cached result for key.
func (c *ResultCache) Get(key string) (*concepts.ScanResult, bool) {
	r, ok := c.results.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return r.Clone(), true
}

// Set stores a copy of result under key.
func (c *ResultCache) Set(key string, result *concepts.ScanResult) {
	c.results.Set(key, result.Clone())
}

// Stats returns hit, miss and size counters.
func (c *ResultCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.results.Size(),
	}
}

// Clear drops every cached result.
func (c *ResultCache) Clear() {
	c.results.Clear()
}

// Close releases the cache's background resources.
func (c *ResultCache) Close() {
	c.results.Close()
}
