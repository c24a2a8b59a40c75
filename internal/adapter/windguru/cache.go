package windguru

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kitewatch/wind-archive/internal/domain"
	"github.com/kitewatch/wind-archive/internal/observability"
)

// CachedSearcher wraps a SpotSearcher with an in-memory LRU cache. Spot
// names change rarely, so repeated queries skip the backend entirely.
type CachedSearcher struct {
	inner   domain.SpotSearcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedSearcher creates a cache decorator around a searcher.
func NewCachedSearcher(inner domain.SpotSearcher, maxEntries int, metrics *observability.Metrics) *CachedSearcher {
	return &CachedSearcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedSearcher) SearchSpots(ctx context.Context, query string, limit int) (domain.SpotSearchResult, error) {
	key := searchKey(query, limit)
	if result, ok := c.cache.get(key); ok {
		c.metrics.SpotSearches.WithLabelValues("hit").Inc()
		return result, nil
	}
	result, err := c.inner.SearchSpots(ctx, query, limit)
	if err != nil {
		c.metrics.SpotSearches.WithLabelValues("error").Inc()
		return result, err
	}
	c.metrics.SpotSearches.WithLabelValues("miss").Inc()
	// Only cache non-empty results so transient empty responses can be retried.
	if len(result.Spots) > 0 {
		c.cache.put(key, result)
	}
	return result, nil
}

func searchKey(query string, limit int) string {
	return fmt.Sprintf("%s|%d", strings.ToLower(strings.TrimSpace(query)), limit)
}

// lruCache is a simple thread-safe LRU cache for spot search results.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.SpotSearchResult
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.SpotSearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.SpotSearchResult{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.SpotSearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
