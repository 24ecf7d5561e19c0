// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package shardmap provides a concurrent map keyed by strings and split into
// independently locked shards selected by an xxh3 hash of the key.
package shardmap

import (
	"sync"

	"github.com/zeebo/xxh3"
)

const defaultShardCount = 32

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// Map is a sharded concurrent map. The zero value is not usable; use New.
type Map[V any] struct {
	shards []*shard[V]
}

// New creates a Map with shardCount shards. A non-positive count falls back to 32.
func New[V any](shardCount int) *Map[V] {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	shards := make([]*shard[V], shardCount)
	for i := range shards {
		shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return &Map[V]{shards: shards}
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	return m.shards[xxh3.HashString(key)%uint64(len(m.shards))]
}

// Load returns the value stored under key
func (m *Map[V]) Load(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	value, ok := s.items[key]
	s.mu.RUnlock()
	return value, ok
}

// Store sets the value for key
func (m *Map[V]) Store(key string, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
}

// LoadOrStore returns the existing value for key if present. Otherwise it
// stores value and returns it. loaded reports whether the value was present.
func (m *Map[V]) LoadOrStore(key string, value V) (actual V, loaded bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok {
		return existing, true
	}
	s.items[key] = value
	return value, false
}

// Delete removes key
func (m *Map[V]) Delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// CompareAndDelete removes key only when match returns true for its current value.
func (m *Map[V]) CompareAndDelete(key string, match func(V) bool) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.items[key]
	if !ok || !match(value) {
		return false
	}
	delete(s.items, key)
	return true
}

// Len returns the number of entries
func (m *Map[V]) Len() int {
	total := 0
	for _, s := range m.shards {
		s.mu.RLock()
		total += len(s.items)
		s.mu.RUnlock()
	}
	return total
}

// Range calls fn for every entry until fn returns false. Each shard is
// snapshotted before fn is called, so fn may safely modify the map.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		keys := make([]string, 0, len(s.items))
		values := make([]V, 0, len(s.items))
		for k, v := range s.items {
			keys = append(keys, k)
			values = append(values, v)
		}
		s.mu.RUnlock()

		for i := range keys {
			if !fn(keys[i], values[i]) {
				return
			}
		}
	}
}

// Values returns a snapshot of every value
func (m *Map[V]) Values() []V {
	out := make([]V, 0, m.Len())
	m.Range(func(_ string, value V) bool {
		out = append(out, value)
		return true
	})
	return out
}

// Reset removes every entry
func (m *Map[V]) Reset() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.items = make(map[string]V)
		s.mu.Unlock()
	}
}
