package adapters

import (
	"context"
	"sync"
	"time"

	ports "github.com/hexlane/convomart/cmart/engine/ports"
)

// LRUCache is an in-process LRU cache with per-entry TTL.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*cacheEntry
	head     *cacheEntry // most recently used
	tail     *cacheEntry // least recently used
}

type cacheEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
	prev      *cacheEntry
	next      *cacheEntry
}

func NewLRUCache(capacity int) *LRUCache {
	return &LRUCache{
		capacity: capacity,
		items:    make(map[string]*cacheEntry),
	}
}

func (c *LRUCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.unlink(entry)
		delete(c.items, key)
		return nil, false
	}

	c.touch(entry)
	return entry.value, true
}

func (c *LRUCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(time.Duration(ttlSeconds) * time.Second)

	if entry, ok := c.items[key]; ok {
		entry.value = value
		entry.expiresAt = expiresAt
		c.touch(entry)
		return nil
	}

	entry := &cacheEntry{key: key, value: value, expiresAt: expiresAt}
	c.pushFront(entry)
	c.items[key] = entry

	if len(c.items) > c.capacity && c.tail != nil {
		evicted := c.tail
		c.unlink(evicted)
		delete(c.items, evicted.key)
	}
	return nil
}

func (c *LRUCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.unlink(entry)
		delete(c.items, key)
	}
	return nil
}

func (c *LRUCache) touch(entry *cacheEntry) {
	if entry == c.head {
		return
	}
	c.unlink(entry)
	c.pushFront(entry)
}

func (c *LRUCache) pushFront(entry *cacheEntry) {
	entry.prev = nil
	entry.next = c.head
	if c.head != nil {
		c.head.prev = entry
	}
	c.head = entry
	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRUCache) unlink(entry *cacheEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
	entry.prev = nil
	entry.next = nil
}

var _ ports.Cache = (*LRUCache)(nil)
