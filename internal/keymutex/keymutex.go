// Package keymutex provides mutual exclusion scoped to a string key. It is
// used to serialize all mutations touching one user's cart, so concurrent
// requests from the same user (double-click, multiple tabs) cannot interleave
// their read-then-write cycles.
package keymutex

import "sync"

type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key and returns the matching unlock function.
// Entries are reference-counted and removed once the last holder unlocks, so
// the map does not grow with the number of users ever seen.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
