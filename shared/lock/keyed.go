package lock

import "sync"

// Keyed provides mutual exclusion per string key. Holders of different keys
// never block each other; entries are dropped once the last holder releases,
// so the map does not grow with the key space.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyed() *Keyed {
	return &Keyed{
		entries: make(map[string]*entry),
	}
}

// Lock blocks until the critical section for key is acquired.
func (k *Keyed) Lock(key string) {
	k.mu.Lock()

	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}

	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the critical section for key. Calling Unlock for a key that
// is not held is a programming error and panics, same as sync.Mutex.
func (k *Keyed) Unlock(key string) {
	k.mu.Lock()

	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()

		panic("lock: unlock of unheld key " + key)
	}

	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}

	k.mu.Unlock()

	e.mu.Unlock()
}
