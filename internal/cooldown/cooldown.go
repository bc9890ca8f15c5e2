// Package cooldown tracks per-key cooldown windows in memory. The map is
// bounded: expired entries are swept opportunistically so it never grows
// past the set of keys seen within roughly one window.
package cooldown

import (
	"sync"
	"time"
)

type Map struct {
	mu        sync.Mutex
	window    time.Duration
	entries   map[string]time.Time
	lastSweep time.Time

	now func() time.Time
}

func New(window time.Duration) *Map {
	return &Map{
		window:  window,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether key is outside its cooldown window and, when it
// is, starts a new window for it.
func (m *Map) Allow(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	if last, ok := m.entries[key]; ok && now.Sub(last) < m.window {
		return false
	}
	m.entries[key] = now
	return true
}

// Remaining returns how long key stays on cooldown; zero when it is free.
func (m *Map) Remaining(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	last, ok := m.entries[key]
	if !ok {
		return 0
	}
	left := m.window - m.now().Sub(last)
	if left < 0 {
		return 0
	}
	return left
}

// Len reports the number of live entries.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Map) sweepLocked(now time.Time) {
	if now.Sub(m.lastSweep) < m.window {
		return
	}
	m.lastSweep = now
	for key, last := range m.entries {
		if now.Sub(last) >= m.window {
			delete(m.entries, key)
		}
	}
}
