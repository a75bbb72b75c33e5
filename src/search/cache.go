package search

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultCacheCapacity bounds the result cache.
const DefaultCacheCapacity = 4096

// ResultCache is a bounded least-recently-used cache of query results.
// A single mutex guards the O(1) bookkeeping; the lock is never held
// across I/O, deserialization or tree evaluation.
type ResultCache struct {
	mu      sync.Mutex
	entries *simplelru.LRU[Query, []MatchedCVE]
}

// NewResultCache creates a cache holding at most capacity entries.
func NewResultCache(capacity int) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	entries, err := simplelru.NewLRU[Query, []MatchedCVE](capacity, nil)
	if err != nil {
		// simplelru only fails on a non-positive size
		panic(err)
	}
	return &ResultCache{entries: entries}
}

// Get returns the cached result and marks the entry most-recently-used.
func (c *ResultCache) Get(query Query) ([]MatchedCVE, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(query)
}

// Put inserts a result, evicting the least-recently-used entry when at
// capacity.
func (c *ResultCache) Put(query Query, cves []MatchedCVE) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(query, cves)
}

// Purge drops every entry. Called after an ingest run: entries never
// expire by age.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
