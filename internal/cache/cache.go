// Package cache provides a TTL-aware LRU cache and a manager that
// sweeps expired entries in the background.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is the read/write surface shared by cache implementations.
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager owns the background sweep for a set of registered caches.
type Manager struct {
	caches   []Cleaner
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	started  bool
}

func NewManager() *Manager {
	return &Manager{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Register adds a cache to the sweep. Call before StartCleanup.
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins the periodic sweep of all registered caches.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.sweep(interval)
}

func (m *Manager) sweep(interval time.Duration) {
	defer close(m.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, cache := range m.caches {
				cleaned += cache.CleanExpired()
			}
			if cleaned > 0 {
				slog.Debug("Cleaned expired cache entries", "count", cleaned)
			}
		case <-m.stopCh:
			return
		}
	}
}

// Stop halts the sweep and waits for it to finish. Safe to call twice.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		if m.started {
			<-m.doneCh
		}
	})
}
