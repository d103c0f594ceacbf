package cache

import (
	"golang.org/x/sync/singleflight"
)

// Group pairs an LRU tier with request coalescing: concurrent misses on the
// same key share one build instead of racing to do the same work.
type Group[V any] struct {
	lru *LRU[V]
	sf  singleflight.Group
}

// NewGroup wraps lru. The LRU must not be shared with another Group.
func NewGroup[V any](lru *LRU[V]) *Group[V] {
	return &Group[V]{lru: lru}
}

// GetOrBuild returns the cached value for key, or runs build exactly once
// across concurrent callers and caches its result. Build errors are not
// cached.
func (g *Group[V]) GetOrBuild(key string, build func() (V, error)) (V, error) {
	if v, ok := g.lru.Get(key); ok {
		return v, nil
	}
	v, err, _ := g.sf.Do(key, func() (any, error) {
		// Re-check: an earlier flight may have filled it between our miss
		// and acquiring the flight.
		if v, ok := g.lru.Get(key); ok {
			return v, nil
		}
		v, err := build()
		if err != nil {
			return nil, err
		}
		g.lru.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Reset drops the underlying tier and forgets in-flight keys.
func (g *Group[V]) Reset() {
	g.lru.Reset()
}

// Stats exposes the underlying tier's counters.
func (g *Group[V]) Stats() StatsSnapshot { return g.lru.Stats() }
