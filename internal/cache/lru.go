package cache

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/meteo-labs/weather-gateway/providers"
)

// MaxCapacity is the hard ceiling on cache size. Requested capacities above
// it are silently clamped; the bound keeps upstream API usage predictable no
// matter what a caller configures.
const MaxCapacity = 10

type lruItem struct {
	key   string
	entry Entry
}

// LRU is a thread-safe, access-ordered cache with a fixed maximum entry
// count. Inserting a new key at capacity evicts exactly the
// least-recently-touched key, where both Get and Put count as touches.
type LRU struct {
	mu        sync.Mutex
	capacity  int
	items     map[string]*list.Element
	evictList *list.List
}

// NewLRU creates an LRU cache holding at most min(capacity, MaxCapacity)
// entries. A capacity below 1 is a configuration error.
func NewLRU(capacity int) (*LRU, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: cache capacity must be at least 1, got %d", providers.ErrConfiguration, capacity)
	}
	if capacity > MaxCapacity {
		capacity = MaxCapacity
	}
	return &LRU{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
	}, nil
}

// Get returns a copy of the stored entry for key, or false if missing.
// It does not consult the entry's age; freshness is the caller's policy.
func (c *LRU) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return Entry{}, false
	}
	c.evictList.MoveToFront(elem)
	return elem.Value.(*lruItem).entry, true
}

// Put inserts or overwrites the entry for key and refreshes its recency.
// Overwriting never changes the cache size; inserting beyond capacity evicts
// the least-recently-used key.
func (c *LRU) Put(key string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.evictList.MoveToFront(elem)
		elem.Value.(*lruItem).entry = entry
		return
	}

	if c.evictList.Len() >= c.capacity {
		c.removeOldest()
	}
	elem := c.evictList.PushFront(&lruItem{key: key, entry: entry})
	c.items[key] = elem
}

// Keys returns a point-in-time copy of the cached keys, most recently used
// first. The snapshot lets the refresher iterate without holding the lock
// across its fetch I/O.
func (c *LRU) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.evictList.Len())
	for elem := c.evictList.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*lruItem).key)
	}
	return keys
}

// Len returns the number of entries currently in the cache.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Clear removes all entries from the cache.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.evictList.Init()
}

func (c *LRU) removeOldest() {
	elem := c.evictList.Back()
	if elem == nil {
		return
	}
	c.evictList.Remove(elem)
	delete(c.items, elem.Value.(*lruItem).key)
}
