package quiz

import (
	"sync"

	"github.com/abx-learn/backend/internal/kvstore"
)

// Manager hands out one Tracker per learner, each over its own key prefix.
// Trackers live for the life of the process.
type Manager struct {
	store      kvstore.Store
	notifier   kvstore.Notifier
	historyKey string
	clock      Clock

	mu       sync.Mutex
	trackers map[int64]*Tracker
}

// NewManager creates a Manager. notifier may be nil.
func NewManager(store kvstore.Store, notifier kvstore.Notifier, historyKey string) *Manager {
	return &Manager{
		store:      store,
		notifier:   notifier,
		historyKey: historyKey,
		clock:      realClock{},
		trackers:   make(map[int64]*Tracker),
	}
}

func (m *Manager) For(userID int64) *Tracker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.trackers[userID]; ok {
		return t
	}
	prefix := kvstore.UserPrefix(userID)
	t := NewTrackerWithClock(kvstore.Prefixed(m.store, prefix), m.historyKey, m.clock)
	if m.notifier != nil {
		t.Watch(kvstore.PrefixedNotifier(m.notifier, prefix))
	}
	m.trackers[userID] = t
	return t
}
