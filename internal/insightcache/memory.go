package insightcache

import "sync"

type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: map[string]entry{}}
}

func (m *memoryStore) get(vehicleID string) (entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[vehicleID]
	return e, ok
}

func (m *memoryStore) replace(vehicleID string, e entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[vehicleID] = e
}
