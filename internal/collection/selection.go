package collection

import (
	"cmp"
	"maps"
	"slices"
	"sync"
)

// Selection is a set of chosen keys, each carrying a value such as a
// planned action. Removing a key discards its value.
type Selection[K cmp.Ordered, V any] struct {
	items map[K]V
	mu    sync.RWMutex
}

// NewSelection creates an empty selection.
func NewSelection[K cmp.Ordered, V any]() *Selection[K, V] {
	return &Selection[K, V]{items: make(map[K]V)}
}

// Toggle adds key with value v or removes it, returning whether it is now
// selected.
func (s *Selection[K, V]) Toggle(key K, v V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; ok {
		delete(s.items, key)
		return false
	}
	s.items[key] = v
	return true
}

// ToggleAll deselects keys when all are selected, otherwise selects the
// missing ones with value v and keeps existing values.
func (s *Selection[K, V]) ToggleAll(keys []K, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := len(keys) > 0
	for _, k := range keys {
		if _, ok := s.items[k]; !ok {
			all = false
			break
		}
	}
	for _, k := range keys {
		if all {
			delete(s.items, k)
		} else if _, ok := s.items[k]; !ok {
			s.items[k] = v
		}
	}
}

// Set changes the value of a selected key. Unselected keys are ignored.
func (s *Selection[K, V]) Set(key K, v V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		return false
	}
	s.items[key] = v
	return true
}

// Get returns the value of a key and whether it is selected.
func (s *Selection[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Has reports whether key is selected.
func (s *Selection[K, V]) Has(key K) bool {
	_, ok := s.Get(key)
	return ok
}

// Len returns the number of selected keys.
func (s *Selection[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Keys returns the selected keys in ascending order.
func (s *Selection[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.items))
}

// Clear deselects everything.
func (s *Selection[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[K]V)
}
