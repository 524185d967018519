package manufacturer

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// CompanyCache implements an LRU (Least Recently Used) cache for company lookups
type CompanyCache struct {
	capacity int
	cache    map[uint16]*list.Element
	lru      *list.List
	mu       sync.Mutex

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	key   uint16
	value string
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits   int64
	Misses int64
	Size   int
}

// NewCompanyCache creates a new LRU cache with the specified capacity
func NewCompanyCache(capacity int) *CompanyCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &CompanyCache{
		capacity: capacity,
		cache:    make(map[uint16]*list.Element),
		lru:      list.New(),
	}
}

// Get retrieves a value from the cache. A hit also refreshes recency,
// so it takes the write lock.
func (c *CompanyCache) Get(key uint16) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		c.hits.Add(1)
		return elem.Value.(*cacheEntry).value, true
	}
	c.misses.Add(1)
	return "", false
}

// Set adds or updates a value in the cache
func (c *CompanyCache) Set(key uint16, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key, value})
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the current number of items in the cache
func (c *CompanyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns hit/miss counters and the current size.
func (c *CompanyCache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.Len(),
	}
}

// Clear removes all items from the cache
func (c *CompanyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[uint16]*list.Element)
	c.lru = list.New()
}

// Close drops all entries; the cache stays usable.
func (c *CompanyCache) Close() {
	c.Clear()
}
