package cache

import (
	"errors"
	"math"
	"sync"

	"github.com/hashicorp/golang-lru/simplelru"
)

// ManagedBytes is implemented by keys and values whose memory footprint is tracked
type ManagedBytes interface {
	ManagedBytes() int64
}

// Key is a comparable cache key with a byte footprint
type Key interface {
	comparable
	ManagedBytes
}

// MemoryBoundLRU is a least-recently-used map bounded by the bytes of its keys and
// values rather than by entry count. An optional entry cap applies on top.
type MemoryBoundLRU[K Key, V ManagedBytes] struct {
	mu            sync.Mutex
	lru           *simplelru.LRU
	capacityBytes int64
	managedBytes  int64
}

// NewMemoryBoundLRU creates a cache holding at most capacityBytes. maxItems <= 0
// leaves the entry count unbounded.
func NewMemoryBoundLRU[K Key, V ManagedBytes](capacityBytes int64, maxItems int) (*MemoryBoundLRU[K, V], error) {
	if capacityBytes < 0 {
		return nil, errors.New("cache: negative byte capacity")
	}
	if maxItems <= 0 {
		maxItems = math.MaxInt32
	}

	c := &MemoryBoundLRU[K, V]{capacityBytes: capacityBytes}
	lru, err := simplelru.NewLRU(maxItems, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.lru = lru
	return c, nil
}

// onEvict runs for every entry leaving the underlying LRU, under c.mu
func (c *MemoryBoundLRU[K, V]) onEvict(key, value interface{}) {
	c.managedBytes -= key.(K).ManagedBytes() + value.(V).ManagedBytes()
}

// Put stores value under key, then evicts the eldest entries until the cache is
// back under its byte capacity. An entry larger than the capacity evicts everything,
// itself included.
func (c *MemoryBoundLRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Remove(key)
	c.lru.Add(key, value)
	c.managedBytes += key.ManagedBytes() + value.ManagedBytes()

	for c.managedBytes > c.capacityBytes && c.lru.Len() > 0 {
		c.lru.RemoveOldest()
	}
}

// Get returns the value under key and marks it most recently used
func (c *MemoryBoundLRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Remove drops key, reporting whether it was present
func (c *MemoryBoundLRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(key)
}

// Purge drops every entry
func (c *MemoryBoundLRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len returns the number of entries
func (c *MemoryBoundLRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// ManagedBytes returns the bytes currently accounted to keys and values
func (c *MemoryBoundLRU[K, V]) ManagedBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.managedBytes
}

// Bytes is a byte slice value that reports its length as its footprint
type Bytes []byte

// ManagedBytes implements ManagedBytes
func (b Bytes) ManagedBytes() int64 { return int64(len(b)) }

// String is a string key that reports its length as its footprint
type String string

// ManagedBytes implements ManagedBytes
func (s String) ManagedBytes() int64 { return int64(len(s)) }
