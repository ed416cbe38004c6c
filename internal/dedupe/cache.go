// ABOUTME: TTL cache for dropping re-sent attendance command nonces.
// ABOUTME: Bounds memory with insertion-order eviction; safe for concurrent use.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// entry stores the timestamp and list element for a cached nonce.
type entry struct {
	seenAt  time.Time
	element *list.Element
}

// Cache tracks recently seen command nonces so a re-sent frame is accepted
// at most once within the TTL window. It is size-bounded: when full, the
// oldest nonce is evicted.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]*entry
	order   *list.List // nonces in insertion order, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a nonce cache with the given TTL and maximum size. A
// background goroutine sweeps expired entries once a minute until Close.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Seen atomically checks whether the nonce was seen within the TTL and
// marks it if not. Returns true for a duplicate that must be dropped.
func (c *Cache) Seen(nonce string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.seen[nonce]; ok && time.Since(e.seenAt) < c.ttl {
		return true
	}

	now := time.Now()
	if e, ok := c.seen[nonce]; ok {
		// Expired entry for the same nonce: refresh in place.
		e.seenAt = now
		c.order.MoveToBack(e.element)
		return false
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(nonce)
	c.seen[nonce] = &entry{seenAt: now, element: elem}
	return false
}

// evictOldest removes the oldest nonce. Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	nonce, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, nonce)
}

// sweepLoop periodically removes expired entries.
func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep removes all expired entries.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for nonce, e := range c.seen {
		if now.Sub(e.seenAt) > c.ttl {
			c.order.Remove(e.element)
			delete(c.seen, nonce)
		}
	}
}

// Len returns the number of nonces currently tracked.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// Close stops the background sweeper. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
