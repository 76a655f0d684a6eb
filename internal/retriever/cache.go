// File path: internal/retriever/cache.go
package retriever

import (
	"container/list"
	"sync"

	"github.com/nicodishanthj/Katral_insight/internal/kb"
)

type cacheEntry struct {
	key  string
	hits []kb.Hit
}

// hitCache is an LRU of ranked hit lists keyed by query and topK. Knowledge
// is read-only, so entries only go stale when Purge is called after a
// reload.
type hitCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	ll       *list.List
}

func newHitCache(size int) *hitCache {
	if size <= 0 {
		return nil
	}
	return &hitCache{
		capacity: size,
		items:    make(map[string]*list.Element, size),
		ll:       list.New(),
	}
}

func (c *hitCache) Get(key string) ([]kb.Hit, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(elem)
	return elem.Value.(cacheEntry).hits, true
}

func (c *hitCache) Set(key string, hits []kb.Hit) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		elem.Value = cacheEntry{key: key, hits: hits}
		c.ll.MoveToFront(elem)
		return
	}
	c.items[key] = c.ll.PushFront(cacheEntry{key: key, hits: hits})
	if c.ll.Len() > c.capacity {
		tail := c.ll.Back()
		c.ll.Remove(tail)
		delete(c.items, tail.Value.(cacheEntry).key)
	}
}

func (c *hitCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *hitCache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.capacity)
	c.ll = list.New()
}
