package catalog

import "sync"

// Holder is a thread-safe slot for a value that gets rebuilt and swapped in
// whole while readers keep using the previous one.
type Holder[T any] struct {
	mu      sync.RWMutex
	current T
	set     bool
}

// NewHolder returns a holder seeded with initial.
func NewHolder[T any](initial T) *Holder[T] {
	return &Holder[T]{current: initial, set: true}
}

// Get returns the current value; ok is false while nothing was ever set.
func (h *Holder[T]) Get() (T, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current, h.set
}

// Swap atomically replaces the current value.
func (h *Holder[T]) Swap(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = v
	h.set = true
}

// Clear empties the slot.
func (h *Holder[T]) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	var zero T
	h.current = zero
	h.set = false
}
