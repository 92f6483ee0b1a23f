package ui

import (
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"
)

// RenderCache memoizes rendered blocks by content hash. Card bodies and
// glamour output are re-rendered only when something in their key
// changes, not on every paint of the update loop.
type RenderCache struct {
	cache   sync.Map
	size    atomic.Int64
	maxSize int64
}

type cacheEntry struct {
	content string
}

// NewRenderCache creates a cache that holds at most maxSize entries.
// Overflow drops the whole cache; entries are cheap to recompute and a
// dashboard cycles through far fewer keys than the cap.
func NewRenderCache(maxSize int) *RenderCache {
	return &RenderCache{maxSize: int64(maxSize)}
}

// DefaultRenderCache is the process-wide cache the pages share.
var DefaultRenderCache = NewRenderCache(256)

// computeHash computes a FNV-1a hash over the key inputs. Supported
// types are intentionally limited to what keys actually carry.
func computeHash(inputs ...any) uint64 {
	h := fnv.New64a()
	var b [8]byte

	writeUint := func(u uint64) {
		b[0] = byte(u)
		b[1] = byte(u >> 8)
		b[2] = byte(u >> 16)
		b[3] = byte(u >> 24)
		b[4] = byte(u >> 32)
		b[5] = byte(u >> 40)
		b[6] = byte(u >> 48)
		b[7] = byte(u >> 56)
		h.Write(b[:])
	}

	for _, input := range inputs {
		switch v := input.(type) {
		case string:
			h.Write([]byte(v))
			h.Write([]byte{0})
		case int:
			writeUint(uint64(v))
		case int64:
			writeUint(uint64(v))
		case float64:
			writeUint(math.Float64bits(v))
		case bool:
			if v {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		}
	}
	return h.Sum64()
}

// Get retrieves cached content if available.
func (rc *RenderCache) Get(key uint64) (string, bool) {
	if val, ok := rc.cache.Load(key); ok {
		return val.(*cacheEntry).content, true
	}
	return "", false
}

// Set stores rendered content in the cache.
func (rc *RenderCache) Set(key uint64, content string) {
	if _, loaded := rc.cache.Swap(key, &cacheEntry{content: content}); !loaded {
		if rc.size.Add(1) > rc.maxSize {
			rc.Clear()
		}
	}
}

// Clear empties the cache.
func (rc *RenderCache) Clear() {
	rc.cache.Range(func(k, _ any) bool {
		rc.cache.Delete(k)
		return true
	})
	rc.size.Store(0)
}

// GetOrCompute retrieves from cache or computes and stores.
func (rc *RenderCache) GetOrCompute(key uint64, compute func() string) string {
	if content, ok := rc.Get(key); ok {
		return content
	}
	content := compute()
	rc.Set(key, content)
	return content
}

// ComputeKey generates a cache key from multiple inputs.
func ComputeKey(inputs ...any) uint64 {
	return computeHash(inputs...)
}
