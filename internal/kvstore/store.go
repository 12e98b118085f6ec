// Package kvstore is the string key/value persistence used for learner data.
//
// Every backend implements Store. Backends that can observe writes made by
// other processes (postgres LISTEN/NOTIFY, redis pub/sub) also implement
// Notifier; the in-process backends notify their own subscribers.
package kvstore

import (
	"errors"
	"strconv"
	"strings"
	"sync"
)

var ErrUnknownBackend = errors.New("unknown kv backend")

// Store reads and writes string values. A missing key is reported with
// ok == false and a nil error.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Notifier delivers the keys of values changed outside the caller.
type Notifier interface {
	Subscribe(fn func(key string)) (unsubscribe func())
}

// Backend is a Store that can be watched and must be closed.
type Backend interface {
	Store
	Notifier
	Close() error
}

// hub fans key changes out to subscribers.
type hub struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(string)
}

func (h *hub) Subscribe(fn func(key string)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(string))
	}
	id := h.next
	h.next++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *hub) publish(key string) {
	h.mu.RLock()
	fns := make([]func(string), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(key)
	}
}

// ── Prefixing ───────────────────────────────────────────

type prefixedStore struct {
	store  Store
	prefix string
}

// Prefixed namespaces every key of store under prefix.
func Prefixed(store Store, prefix string) Store {
	return &prefixedStore{store: store, prefix: prefix}
}

func (p *prefixedStore) Get(key string) (string, bool, error) {
	return p.store.Get(p.prefix + key)
}

func (p *prefixedStore) Set(key, value string) error {
	return p.store.Set(p.prefix+key, value)
}

func (p *prefixedStore) Remove(key string) error {
	return p.store.Remove(p.prefix + key)
}

type prefixedNotifier struct {
	notifier Notifier
	prefix   string
}

// PrefixedNotifier forwards only keys under prefix, with the prefix removed.
func PrefixedNotifier(n Notifier, prefix string) Notifier {
	return &prefixedNotifier{notifier: n, prefix: prefix}
}

func (p *prefixedNotifier) Subscribe(fn func(key string)) func() {
	return p.notifier.Subscribe(func(key string) {
		if rest, ok := strings.CutPrefix(key, p.prefix); ok {
			fn(rest)
		}
	})
}

// UserPrefix is the key namespace for one learner.
func UserPrefix(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":"
}
