package kvstore

import "sync"

// Memory is an in-process Store. Writes are announced to its subscribers.
type Memory struct {
	hub

	mu   sync.RWMutex
	data map[string]string

	// FailWrites, when set, is returned by Set and Remove without touching
	// the data. Tests use it to simulate a full or read-only store.
	FailWrites error
	// FailReads is returned by Get when set.
	FailReads error
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads != nil {
		return "", false, m.FailReads
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	if m.FailWrites != nil {
		err := m.FailWrites
		m.mu.Unlock()
		return err
	}
	m.data[key] = value
	m.mu.Unlock()

	m.publish(key)
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	if m.FailWrites != nil {
		err := m.FailWrites
		m.mu.Unlock()
		return err
	}
	delete(m.data, key)
	m.mu.Unlock()

	m.publish(key)
	return nil
}

// Put writes without notifying, the way another process's write would look
// before its change event arrives.
func (m *Memory) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Touch announces a change to key without writing it.
func (m *Memory) Touch(key string) {
	m.publish(key)
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *Memory) Close() error { return nil }
