// Package cache provides the TTL caches behind port.Cache: an in-process
// map for single-instance deployments and a Redis-backed one shared across instances.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

// TreeKey is the key of an assembled questionnaire tree. Trees differ per
// typology, language and biosecurity flag.
func TreeKey(typologyID int64, lang domain.Language, biosecurity bool) string {
	return fmt.Sprintf("tree:%d:%s:%t", typologyID, lang, biosecurity)
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory is a thread-safe in-memory cache with TTL.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	stop  chan struct{}
}

// New creates a new in-memory cache with the given TTL.
func New[T any](ttl time.Duration) *InMemory[T] {
	if ttl <= 0 {
		ttl = time.Minute
	}
	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	// Background cleanup goroutine
	go c.cleanup()
	return c
}

// Get retrieves a value from the cache. Returns false if not found or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value in the cache with the configured TTL.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes a value from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len returns the number of stored entries, expired ones included until the next sweep.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the background sweeper.
func (c *InMemory[T]) Close() {
	close(c.stop)
}

// cleanup periodically removes expired entries.
func (c *InMemory[T]) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for k, v := range c.items {
				if now.After(v.expiresAt) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
