package base

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oxhq/rulefx/source"
	"github.com/oxhq/rulefx/syntax"
)

// TreeCache is a lock-free cache of converted trees keyed by file name and
// content. Trees are read-only, so a hit hands out the shared instance.
//
// Once the cache holds more than maxEntries trees, the oldest are evicted
// until a quarter of the room is free again.
type TreeCache struct {
	cache      sync.Map
	size       atomic.Int64
	hits       atomic.Int64
	misses     atomic.Int64
	evictions  atomic.Int64
	lastPrune  atomic.Int64
	trimming   atomic.Bool
	maxAge     time.Duration
	maxEntries int
}

type cachedTree struct {
	tree      *syntax.Tree
	timestamp time.Time
}

// DefaultMaxEntries bounds GlobalCache.
const DefaultMaxEntries = 1024

// GlobalCache is the cache shared by providers built with New.
var GlobalCache = NewTreeCache(5*time.Minute, DefaultMaxEntries)

// NewTreeCache creates a cache whose entries expire after maxAge and that
// holds at most maxEntries trees. Zero disables either limit.
func NewTreeCache(maxAge time.Duration, maxEntries int) *TreeCache {
	return &TreeCache{maxAge: maxAge, maxEntries: maxEntries}
}

// GetOrBuild returns the cached tree for buf or builds and stores a new one.
// Build errors are not cached.
func (c *TreeCache) GetOrBuild(buf *source.Buffer, build func() (*syntax.Tree, error)) (*syntax.Tree, error) {
	key := c.key(buf)

	if cached, ok := c.cache.Load(key); ok {
		entry := cached.(*cachedTree)
		if c.maxAge <= 0 || time.Since(entry.timestamp) <= c.maxAge {
			c.hits.Add(1)
			return entry.tree, nil
		}
		c.evict(key)
	}

	c.misses.Add(1)
	tree, err := build()
	if err != nil {
		return nil, err
	}

	actual, loaded := c.cache.LoadOrStore(key, &cachedTree{tree: tree, timestamp: time.Now()})
	if !loaded {
		c.size.Add(1)
	}
	c.pruneExpired()
	c.trim()
	return actual.(*cachedTree).tree, nil
}

// Len returns the number of cached trees.
func (c *TreeCache) Len() int {
	return int(c.size.Load())
}

func (c *TreeCache) evict(key any) {
	if _, ok := c.cache.LoadAndDelete(key); ok {
		c.size.Add(-1)
		c.evictions.Add(1)
	}
}

func (c *TreeCache) trim() {
	if c.maxEntries <= 0 || c.Len() <= c.maxEntries || !c.trimming.CompareAndSwap(false, true) {
		return
	}
	defer c.trimming.Store(false)

	type entry struct {
		key any
		at  time.Time
	}
	var entries []entry
	c.cache.Range(func(key, value any) bool {
		entries = append(entries, entry{key, value.(*cachedTree).timestamp})
		return true
	})
	slices.SortFunc(entries, func(a, b entry) int { return a.at.Compare(b.at) })

	excess := len(entries) - c.maxEntries*3/4
	for _, e := range entries[:max(excess, 0)] {
		c.evict(e.key)
	}
}

func (c *TreeCache) key(buf *source.Buffer) string {
	h := sha256.New()
	h.Write([]byte(buf.Name()))
	h.Write([]byte{0})
	h.Write(buf.Bytes())
	return hex.EncodeToString(h.Sum(nil))
}

func (c *TreeCache) pruneExpired() {
	if c.maxAge <= 0 {
		return
	}
	now := time.Now()
	last := c.lastPrune.Load()
	if now.UnixNano()-last < int64(c.maxAge) || !c.lastPrune.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	c.cache.Range(func(key, value any) bool {
		if now.Sub(value.(*cachedTree).timestamp) > c.maxAge {
			c.evict(key)
		}
		return true
	})
}

// Counts returns cache hits and misses.
func (c *TreeCache) Counts() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Stats returns cache statistics
func (c *TreeCache) Stats() map[string]int64 {
	return map[string]int64{
		"hits":      c.hits.Load(),
		"misses":    c.misses.Load(),
		"evictions": c.evictions.Load(),
		"hit_rate":  c.hits.Load() * 100 / (c.hits.Load() + c.misses.Load() + 1),
	}
}
