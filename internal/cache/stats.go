package cache

import "sync/atomic"

// Statistics tracks cache effectiveness with lock-free counters so hot
// paths never serialize on stats.
type Statistics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
	size      atomic.Int64
	maxSize   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Evictions int64 `json:"evictions"`
	Size      int64 `json:"size"`
	MaxSize   int64 `json:"max_size"`
}

// HitRate reports hits over lookups, 0 when nothing was looked up.
func (s StatsSnapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s *Statistics) hit()  { s.hits.Add(1) }
func (s *Statistics) miss() { s.misses.Add(1) }

func (s *Statistics) set(size int) {
	s.sets.Add(1)
	s.resize(size)
}

func (s *Statistics) evict(size int) {
	s.evictions.Add(1)
	s.resize(size)
}

func (s *Statistics) resize(size int) {
	s.size.Store(int64(size))
	for {
		max := s.maxSize.Load()
		if int64(size) <= max || s.maxSize.CompareAndSwap(max, int64(size)) {
			return
		}
	}
}

func (s *Statistics) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Sets:      s.sets.Load(),
		Evictions: s.evictions.Load(),
		Size:      s.size.Load(),
		MaxSize:   s.maxSize.Load(),
	}
}
