package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/mmseq/resource"
)

// LRU keeps recently used buckets up to a byte capacity.
//
// Decoding happens outside the lock; two goroutines missing the same bucket
// may both decode it, and the second insert simply refreshes the entry.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[int]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	bucket int
	lines  []string
	size   int64
}

// NewLRU creates a new LRU cache with the given capacity in bytes.
// If rc is provided, it will be used to track memory usage.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[int]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get implements BucketCache.
func (c *LRU) Get(bucket int, decode DecodeFunc) ([]string, error) {
	if lines, ok := c.lookup(bucket); ok {
		return lines, nil
	}

	lines, err := decode(bucket)
	if err != nil {
		return nil, err
	}
	c.set(bucket, lines)
	return lines, nil
}

func (c *LRU) lookup(bucket int) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[bucket]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).lines, true
	}
	c.misses.Add(1)
	return nil, false
}

func (c *LRU) set(bucket int, lines []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[bucket]; ok {
		// A concurrent miss already filled the slot.
		c.evictList.MoveToFront(ent)
		return
	}

	itemSize := sizeOf(lines)
	if itemSize > c.capacity {
		return
	}

	// Evict locally first so memory is handed back before asking for more.
	for c.size+itemSize > c.capacity {
		ent := c.evictList.Back()
		if ent == nil {
			break
		}
		c.removeElement(ent)
	}

	if c.rc != nil && !c.rc.ReserveCache(itemSize) {
		// The global budget wins over local capacity.
		return
	}

	element := c.evictList.PushFront(&entry{bucket: bucket, lines: lines, size: itemSize})
	c.items[bucket] = element
	c.size += itemSize
}

// Purge drops every entry and releases its memory.
func (c *LRU) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.evictList.Len() > 0 {
		c.removeElement(c.evictList.Back())
	}
}

func (c *LRU) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*entry)
	delete(c.items, kv.bucket)
	c.size -= kv.size
	if c.rc != nil {
		c.rc.ReleaseCache(kv.size)
	}
}

// Stats implements BucketCache.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the current size of the cache in bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of cached buckets.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}
