// Package persist keeps a typed value in memory and mirrors it to a
// kvstore.Store as JSON.
//
// Storage problems never surface to callers. A missing or malformed stored
// value yields the initial value, and a failed write is logged and counted
// while the in-memory value still changes, so memory and storage can
// diverge until the next successful write.
//
// Change notifications that arrive while a write is in progress are held
// back and the value is re-read from storage once the write is done, so a
// reload never lands between the read and the write of an Update. Across
// processes the last writer to reach storage wins.
package persist

import (
	"bytes"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/abx-learn/backend/internal/kvstore"
	"github.com/abx-learn/backend/internal/logging"
	"github.com/abx-learn/backend/internal/metrics"
)

type Value[T any] struct {
	store   kvstore.Store
	key     string
	initial func() T
	log     zerolog.Logger

	wmu sync.Mutex // serializes writers

	mu      sync.RWMutex
	current T
	encoded []byte
	writing bool
	stale   bool   // a change arrived while writing
	gen     uint64 // bumped when a write starts
}

// New loads key from store, falling back to initial() when the key is
// absent, unreadable or not valid JSON for T.
func New[T any](store kvstore.Store, key string, initial func() T) *Value[T] {
	v := &Value[T]{
		store:   store,
		key:     key,
		initial: initial,
		log:     logging.WithComponent("persist").With().Str("key", key).Logger(),
	}
	if loaded, raw, ok := v.load(); ok {
		v.current, v.encoded = loaded, raw
	} else {
		v.current = initial()
		v.encoded, _ = json.Marshal(v.current)
	}
	return v
}

func (v *Value[T]) Key() string { return v.key }

// Get returns the in-memory value. Callers must not mutate slices or maps
// inside it; use Update.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Set replaces the value and writes it unless its JSON is unchanged.
func (v *Value[T]) Set(next T) {
	v.wmu.Lock()
	defer v.wmu.Unlock()
	v.begin()
	defer v.finish()
	v.write(next)
}

// Update applies fn to the current value and stores the result.
func (v *Value[T]) Update(fn func(T) T) {
	v.wmu.Lock()
	defer v.wmu.Unlock()
	v.begin()
	defer v.finish()
	v.write(fn(v.Get()))
}

// Clear removes the stored value and resets memory to the initial value.
func (v *Value[T]) Clear() {
	v.wmu.Lock()
	defer v.wmu.Unlock()
	v.begin()
	defer v.finish()

	reset := v.initial()
	raw, _ := json.Marshal(reset)

	v.mu.Lock()
	v.current = reset
	v.encoded = raw
	v.mu.Unlock()

	if err := v.store.Remove(v.key); err != nil {
		metrics.KVWriteFailures.WithLabelValues(v.key).Inc()
		v.log.Warn().Err(err).Msg("remove failed")
	}
}

func (v *Value[T]) begin() {
	v.mu.Lock()
	v.writing = true
	v.gen++
	v.mu.Unlock()
}

// finish ends a write and re-reads storage if a change was held back.
func (v *Value[T]) finish() {
	v.mu.Lock()
	v.writing = false
	stale := v.stale
	v.stale = false
	v.mu.Unlock()

	if stale {
		v.reload()
	}
}

func (v *Value[T]) write(next T) {
	raw, err := json.Marshal(next)
	if err != nil {
		v.log.Error().Err(err).Msg("encoding value")
		return
	}

	v.mu.Lock()
	v.current = next
	unchanged := bytes.Equal(raw, v.encoded)
	v.encoded = raw
	v.mu.Unlock()

	if unchanged {
		return
	}
	if err := v.store.Set(v.key, string(raw)); err != nil {
		metrics.KVWriteFailures.WithLabelValues(v.key).Inc()
		v.log.Warn().Err(err).Msg("write failed, keeping in-memory value")
		// forget the encoding so the next Set retries the write
		v.mu.Lock()
		if bytes.Equal(v.encoded, raw) {
			v.encoded = nil
		}
		v.mu.Unlock()
	}
}

// HasValue reports whether the store currently holds the key.
func (v *Value[T]) HasValue() bool {
	_, ok, err := v.store.Get(v.key)
	return err == nil && ok
}

// HandleChange reloads the value when key is this value's key. A removed or
// malformed stored value leaves memory untouched. During a write the reload
// is postponed until the write finishes.
func (v *Value[T]) HandleChange(key string) {
	if key != v.key {
		return
	}
	v.mu.Lock()
	if v.writing {
		v.stale = true
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()
	v.reload()
}

// reload replaces memory with the stored value unless a write started
// while it was being read. A write still in flight gets the reload
// postponed to its end instead.
func (v *Value[T]) reload() {
	v.mu.RLock()
	gen := v.gen
	v.mu.RUnlock()

	loaded, raw, ok := v.load()
	if !ok {
		return
	}
	v.mu.Lock()
	switch {
	case v.writing:
		v.stale = true
	case v.gen == gen:
		v.current = loaded
		v.encoded = raw
	}
	v.mu.Unlock()
}

// Watch subscribes to n and returns the unsubscribe function.
func (v *Value[T]) Watch(n kvstore.Notifier) func() {
	return n.Subscribe(v.HandleChange)
}

func (v *Value[T]) load() (T, []byte, bool) {
	var zero T
	s, ok, err := v.store.Get(v.key)
	if err != nil {
		v.log.Warn().Err(err).Msg("read failed, using default")
		return zero, nil, false
	}
	if !ok {
		return zero, nil, false
	}
	var out T
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		metrics.KVMalformedValues.WithLabelValues(v.key).Inc()
		v.log.Warn().Err(err).Msg("malformed stored value, ignoring")
		return zero, nil, false
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return zero, nil, false
	}
	return out, raw, true
}
