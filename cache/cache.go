// Package cache provides an insertion-ordered map with a size bound.
package cache

import (
	"container/list"
	"sync"
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Store is a map that remembers insertion order. Once Limit entries are held,
// inserting a new key evicts the oldest inserted one. Replacing an existing
// key keeps its position.
//
// Store is safe for concurrent use.
type Store[K comparable, V any] struct {
	mu      sync.RWMutex
	limit   int
	order   *list.List
	entries map[K]*list.Element
	onEvict func(K, V)
}

// New returns a Store holding at most limit entries. A limit <= 0 means no bound.
func New[K comparable, V any](limit int) *Store[K, V] {
	return &Store[K, V]{
		limit:   limit,
		order:   list.New(),
		entries: make(map[K]*list.Element),
	}
}

// OnEvict registers f to be called with every entry dropped to make room.
// f runs with the store locked and must not call back into it.
func (s *Store[K, V]) OnEvict(f func(K, V)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onEvict = f
}

func (s *Store[K, V]) Limit() int {
	return s.limit
}

func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if el, ok := s.entries[key]; ok {
		return el.Value.(*entry[K, V]).value, true
	}

	var zero V
	return zero, false
}

func (s *Store[K, V]) Has(key K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[key]
	return ok
}

// Set inserts or replaces the value stored under key.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		el.Value.(*entry[K, V]).value = value
		return
	}

	if s.limit > 0 {
		for s.order.Len() >= s.limit {
			s.evictOldest()
		}
	}

	s.entries[key] = s.order.PushBack(&entry[K, V]{key: key, value: value})
}

func (s *Store[K, V]) evictOldest() {
	el := s.order.Front()
	if el == nil {
		return
	}

	e := s.order.Remove(el).(*entry[K, V])
	delete(s.entries, e.key)

	if s.onEvict != nil {
		s.onEvict(e.key, e.value)
	}
}

// Delete removes key and returns the value it held.
func (s *Store[K, V]) Delete(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	delete(s.entries, key)
	return s.order.Remove(el).(*entry[K, V]).value, true
}

func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Keys returns the keys oldest first.
func (s *Store[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]K, 0, len(s.entries))
	for el := s.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}

// Values returns the values oldest first.
func (s *Store[K, V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]V, 0, len(s.entries))
	for el := s.order.Front(); el != nil; el = el.Next() {
		values = append(values, el.Value.(*entry[K, V]).value)
	}
	return values
}

// Each calls f for every entry, oldest first, until f returns false.
// f must not modify the store.
func (s *Store[K, V]) Each(f func(K, V) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for el := s.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[K, V])
		if !f(e.key, e.value) {
			return
		}
	}
}

// Clear removes every entry without calling the eviction callback.
func (s *Store[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order.Init()
	clear(s.entries)
}

// Clone returns a shallow copy with the same limit and order. The eviction
// callback is not copied.
func (s *Store[K, V]) Clone() *Store[K, V] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := New[K, V](s.limit)
	for el := s.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[K, V])
		c.entries[e.key] = c.order.PushBack(&entry[K, V]{key: e.key, value: e.value})
	}
	return c
}
