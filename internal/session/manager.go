package session

import "sync"

// Manager keeps one Tracker per learner for the life of the process.
type Manager struct {
	index ConditionIndex

	mu       sync.Mutex
	trackers map[int64]*Tracker
}

func NewManager(index ConditionIndex) *Manager {
	return &Manager{index: index, trackers: make(map[int64]*Tracker)}
}

func (m *Manager) For(userID int64) *Tracker {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trackers[userID]
	if !ok {
		t = NewTracker(m.index)
		m.trackers[userID] = t
	}
	return t
}
