package keymutex

import "sync"

// KeyMutex serializes critical sections per string key. Sections for
// distinct keys proceed fully in parallel. Entries are reference counted
// and released once no goroutine holds or waits on the key, so the
// internal map does not grow with the key space.
type KeyMutex struct {
	mx      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mx       sync.Mutex
	refCount int
}

// New creates an empty KeyMutex.
func New() *KeyMutex {
	return &KeyMutex{
		entries: make(map[string]*entry),
	}
}

// Lock acquires the mutex for the key, blocking while another goroutine
// holds it.
func (k *KeyMutex) Lock(key string) {
	k.mx.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refCount++
	k.mx.Unlock()

	e.mx.Lock()
}

// Unlock releases the mutex for the key. Must pair with a prior Lock for
// the same key.
func (k *KeyMutex) Unlock(key string) {
	k.mx.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mx.Unlock()
		panic("keymutex: unlock of unlocked key " + key)
	}
	e.refCount--
	if e.refCount == 0 {
		delete(k.entries, key)
	}
	k.mx.Unlock()

	e.mx.Unlock()
}
