package bookmarks

import (
	"sync"

	"github.com/abx-learn/backend/internal/kvstore"
)

// Manager hands out one Store per learner, each over its own key prefix.
type Manager struct {
	kv       kvstore.Store
	notifier kvstore.Notifier
	key      string
	clock    Clock

	mu     sync.Mutex
	stores map[int64]*Store
}

// NewManager creates a Manager. notifier may be nil.
func NewManager(kv kvstore.Store, notifier kvstore.Notifier, key string) *Manager {
	return &Manager{
		kv:       kv,
		notifier: notifier,
		key:      key,
		clock:    realClock{},
		stores:   make(map[int64]*Store),
	}
}

func (m *Manager) For(userID int64) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[userID]; ok {
		return s
	}
	prefix := kvstore.UserPrefix(userID)
	s := NewStoreWithClock(kvstore.Prefixed(m.kv, prefix), m.key, m.clock)
	if m.notifier != nil {
		s.Watch(kvstore.PrefixedNotifier(m.notifier, prefix))
	}
	m.stores[userID] = s
	return s
}
