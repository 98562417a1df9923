// Package cache holds generated file bodies between generation and write.
//
// Cache evicts a random quarter of its entries once it is full. There is no
// recency bookkeeping: a hit costs one map lookup and eviction is a single
// partial shuffle of the key set.
package cache

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
)

var ErrInvalidCapacity = errors.New("cache capacity must be positive")

type (
	Cache struct {
		mu       sync.Mutex
		capacity int
		entries  map[string]string
		rng      *rand.Rand

		hits      int64
		misses    int64
		evictions int64
	}

	Stats struct {
		Capacity  int   `json:"capacity"`
		Size      int   `json:"size"`
		Hits      int64 `json:"hits"`
		Misses    int64 `json:"misses"`
		Evictions int64 `json:"evictions"`
	}
)

// New returns an empty cache holding at most capacity entries.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity %d: %w", capacity, ErrInvalidCapacity)
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]string, capacity),
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}, nil
}

// Key builds the cache key for one file of one folder.
func Key(folder string, fileNum int) string {
	return folder + ":" + strconv.Itoa(fileNum)
}

func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Put stores value under key. When the cache is full and key is new, a random
// max(1, capacity/4) entries are dropped first.
func (c *Cache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictLocked(max(1, c.capacity/4))
	}
	c.entries[key] = value
}

func (c *Cache) evictLocked(n int) {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	n = min(n, len(keys))
	// partial Fisher-Yates: the first n slots end up a uniform sample
	for i := range n {
		j := i + c.rng.IntN(len(keys)-i)
		keys[i], keys[j] = keys[j], keys[i]
		delete(c.entries, keys[i])
	}
	c.evictions += int64(n)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Capacity:  c.capacity,
		Size:      len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
