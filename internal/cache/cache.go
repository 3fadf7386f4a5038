// Package cache provides a small in-memory TTL store used by the
// orchestration layer. Extraction and resolution stay cache-free; this
// keeps repeated requests for the same week off the upstream sites.
package cache

import (
	"sync"
	"time"

	"github.com/Tifany-Devil/Billboard-Minerva/internal/clock"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// Store is a mutex-guarded TTL map, safe for concurrent handlers.
type Store[V any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock clock.Clock
	items map[string]entry[V]
}

// New builds a Store with the given TTL. A nil clk uses the system
// clock; ttl <= 0 disables caching entirely.
func New[V any](ttl time.Duration, clk clock.Clock) *Store[V] {
	if clk == nil {
		clk = clock.System{}
	}
	return &Store[V]{
		ttl:   ttl,
		clock: clk,
		items: make(map[string]entry[V]),
	}
}

// Get returns the cached value for key if it has not expired.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V
	if s.ttl <= 0 {
		return zero, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		return zero, false
	}
	if s.clock.Now().After(item.expires) {
		delete(s.items, key)
		return zero, false
	}
	return item.value, true
}

// Put stores value under key for the store's TTL.
func (s *Store[V]) Put(key string, value V) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = entry[V]{value: value, expires: s.clock.Now().Add(s.ttl)}
}

// Len reports the number of stored items, expired or not.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
