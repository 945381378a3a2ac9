// Package prefs holds small key/value preferences that must survive process
// restarts, such as the last-chosen role. It is the application-side analog
// of browser local storage: the backend never sees these values.
package prefs

import "sync"

// KeyPreferredRole stores the last role the user explicitly selected.
const KeyPreferredRole = "preferred_role"

// Store reads and writes preference keys. Writes must be durable for file
// backed implementations; reads never fail, absence is reported via ok.
type Store interface {
	Get(key string) (value string, ok bool)
	Put(key, value string) error
}

// Memory is a Store for tests and demo mode.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Put(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
