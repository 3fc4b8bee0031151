// ABOUTME: Thread-safe TTL cache for suppressing webhook retry storms
// ABOUTME: A fast per-instance path in front of handlers that are idempotent anyway

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// Cache tracks recently seen event keys (carrier MessageSids, provider
// event ids) so a burst of upstream retries short-circuits before touching
// the store. It is per-instance only: correctness does not depend on it,
// because every handler behind it is idempotent.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]*entry
	order   *list.List // insertion order, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

type entry struct {
	stamp   time.Time
	element *list.Element
}

// New creates a cache with the given TTL and size bound. A background
// goroutine sweeps expired keys; call Close to stop it.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// CheckAndMark atomically reports whether key was already seen and, if not,
// marks it. Returns true for a duplicate.
func (c *Cache) CheckAndMark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.seen[key]; ok && time.Since(e.stamp) < c.ttl {
		return true
	}
	c.mark(key)
	return false
}

// mark records key, evicting the oldest entry at capacity. Caller holds mu.
func (c *Cache) mark(key string) {
	now := time.Now()
	if e, ok := c.seen[key]; ok {
		e.stamp = now
		c.order.MoveToBack(e.element)
		return
	}
	if len(c.seen) >= c.maxSize {
		if front := c.order.Front(); front != nil {
			oldest, _ := front.Value.(string)
			c.order.Remove(front)
			delete(c.seen, oldest)
		}
	}
	c.seen[key] = &entry{stamp: now, element: c.order.PushBack(key)}
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, e := range c.seen {
				if now.Sub(e.stamp) > c.ttl {
					c.order.Remove(e.element)
					delete(c.seen, key)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

// Close stops the sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
