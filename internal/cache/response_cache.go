// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

// Package cache provides the in-memory TTL'd response cache used by the
// edge proxy. Camera streams tolerate short staleness, so a small TTL cuts
// upstream load dramatically under fan-out from many viewers.
package cache

import (
	"net/http"
	"sync"
	"time"
)

// Response is a cached upstream response: the final form served to clients,
// already rewritten and CORS-normalized.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Clone returns a copy safe to mutate. The body slice is shared (callers
// must not modify it); headers are deep-copied.
func (r *Response) Clone() *Response {
	return &Response{
		Status: r.Status,
		Header: r.Header.Clone(),
		Body:   r.Body,
	}
}

type entry struct {
	key       string
	value     *Response
	prev      *entry
	next      *entry
	expiresAt time.Time
}

// ResponseCache is a thread-safe LRU cache with TTL and lazy expiration.
// O(1) Get, Add, and eviction via a doubly-linked list plus a hashmap.
type ResponseCache struct {
	mu sync.RWMutex

	capacity int
	ttl      time.Duration
	// maxBody bounds the size of a single cached body; larger responses
	// bypass the cache entirely.
	maxBody int64

	items map[string]*entry

	// head.next is the most recently used, tail.prev the least.
	head *entry
	tail *entry

	hits   int64
	misses int64
}

// NewResponseCache creates a cache holding at most capacity entries, each
// alive for ttl, with bodies no larger than maxBody bytes.
func NewResponseCache(capacity int, ttl time.Duration, maxBody int64) *ResponseCache {
	if capacity <= 0 {
		capacity = 512
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if maxBody <= 0 {
		maxBody = 4 << 20
	}

	c := &ResponseCache{
		capacity: capacity,
		ttl:      ttl,
		maxBody:  maxBody,
		items:    make(map[string]*entry, capacity),
		head:     &entry{},
		tail:     &entry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get retrieves a cached response. Found entries move to the front.
func (c *ResponseCache) Get(key string) (*Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.items[key]; exists {
		if time.Now().After(e.expiresAt) {
			c.removeEntry(e)
			c.misses++
			return nil, false
		}
		c.moveToFront(e)
		c.hits++
		return e.value, true
	}

	c.misses++
	return nil, false
}

// Add stores a response. Bodies over the size bound are silently skipped.
// At capacity, the least recently used entry is evicted.
func (c *ResponseCache) Add(key string, resp *Response) {
	if resp == nil || int64(len(resp.Body)) > c.maxBody {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if e, exists := c.items[key]; exists {
		e.value = resp
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: resp, expiresAt: expiresAt}
	c.addToFront(e)
	c.items[key] = e

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

// Len returns the current number of entries.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// CleanupExpired removes all expired entries, returning how many were
// dropped. Intended for a periodic janitor; Get also expires lazily.
func (c *ResponseCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	for e := c.tail.prev; e != c.head; {
		prev := e.prev
		if now.After(e.expiresAt) {
			c.removeEntry(e)
			removed++
		}
		e = prev
	}
	return removed
}

// Stats returns hit/miss counters and the current size.
func (c *ResponseCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.items)
}

// Internal methods (must be called with lock held)

func (c *ResponseCache) addToFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *ResponseCache) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *ResponseCache) removeEntry(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}

func (c *ResponseCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
