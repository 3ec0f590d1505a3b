// Package cache provides an in-process TTL-LRU cache for materialized
// responses, plus a manager that sweeps expired entries in the background.
package cache

import (
	"log/slog"
	"time"
)

// Cleaner is any cache that can evict its expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager owns the background sweep for its registered caches. Register all
// caches before calling StartCleanup; registration is not safe afterwards.
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup sweeps expired entries from every registered cache on the
// given interval until Stop is called.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.sweep(interval)
}

func (m *Manager) sweep(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, c := range m.caches {
				cleaned += c.CleanExpired()
			}
			if cleaned > 0 {
				slog.Debug("Evicted expired cache entries", "count", cleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop halts the sweep and waits for it to finish.
func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}
