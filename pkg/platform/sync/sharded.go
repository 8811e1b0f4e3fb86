package sync

import (
	"sync"
)

const shardCount = 32

// ShardedMap spreads per-key state across independently locked shards, so
// callers working on different keys rarely contend on the same mutex.
// Values are owned by the map; callers only touch them inside With/Range.
type ShardedMap[V any] struct {
	shards [shardCount]shard[V]
}

type shard[V any] struct {
	mu     sync.Mutex
	values map[string]V
}

// NewShardedMap creates an empty map with 32 shards.
func NewShardedMap[V any]() *ShardedMap[V] {
	m := &ShardedMap[V]{}
	for i := range m.shards {
		m.shards[i].values = make(map[string]V)
	}
	return m
}

// With runs fn with the key's shard locked. fn receives the current value
// (zero value and false when absent) and returns the value to store; returning
// keep=false deletes the key.
func (m *ShardedMap[V]) With(key string, fn func(v V, ok bool) (next V, keep bool)) {
	s := &m.shards[shardFor(key)]
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	next, keep := fn(v, ok)
	if keep {
		s.values[key] = next
		return
	}
	delete(s.values, key)
}

// Sweep visits every entry shard by shard and deletes those for which evict
// returns true. Returns the number of deleted entries.
func (m *ShardedMap[V]) Sweep(evict func(key string, v V) bool) int {
	removed := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for k, v := range s.values {
			if evict(k, v) {
				delete(s.values, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of keys across all shards.
func (m *ShardedMap[V]) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		n += len(s.values)
		s.mu.Unlock()
	}
	return n
}

// shardFor returns the shard index for the given key.
// Empty keys default to shard 0.
func shardFor(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % shardCount)
}

// hashString provides a simple hash for shard selection.
// Uses djb2-style hashing for good distribution.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
