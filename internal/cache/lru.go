// Package cache provides the bounded in-memory LRU tiers the catalog runtime
// keeps between requests: raw file text, parsed row tables and built scene
// indexes. Tiers are small by entry count, not bytes; entries are whole
// files or whole indexes, so a handful is plenty.
package cache

import (
	"container/list"
	"sync"
)

// LRU is a mutex-guarded least-recently-used map with a fixed entry bound.
// Reads refresh recency. The zero value is unusable; use New.
type LRU[V any] struct {
	mu      sync.Mutex
	maxSize int
	ll      *list.List
	items   map[string]*list.Element
	stats   Statistics
	metrics *Metrics
}

type entry[V any] struct {
	key string
	val V
}

// New returns an LRU bounded to maxSize entries. maxSize below 1 is
// clamped to 1.
func New[V any](maxSize int) *LRU[V] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRU[V]{
		maxSize: maxSize,
		ll:      list.New(),
		items:   make(map[string]*list.Element),
	}
}

// WithMetrics attaches prometheus instrumentation. Call once, before use.
func (c *LRU[V]) WithMetrics(m *Metrics) *LRU[V] {
	c.metrics = m
	return c
}

// Get returns the cached value and refreshes its recency.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		c.stats.hit()
		c.metrics.hit()
		return el.Value.(*entry[V]).val, true
	}
	var zero V
	c.stats.miss()
	c.metrics.miss()
	return zero, false
}

// Set inserts or replaces key, evicting the least recently used entry when
// over the bound.
func (c *LRU[V]) Set(key string, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*entry[V]).val = val
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(&entry[V]{key: key, val: val})
	c.stats.set(len(c.items))
	c.metrics.set(len(c.items))
	for c.ll.Len() > c.maxSize {
		c.evictOldest()
	}
}

func (c *LRU[V]) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
	c.stats.evict(len(c.items))
	c.metrics.evict(len(c.items))
}

// Len reports the current entry count.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Reset drops every entry. Statistics survive the reset.
func (c *LRU[V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	clear(c.items)
	c.stats.resize(0)
	c.metrics.resize(0)
}

// Stats returns a snapshot of the counters.
func (c *LRU[V]) Stats() StatsSnapshot {
	return c.stats.snapshot()
}
