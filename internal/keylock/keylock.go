// Package keylock provides per-key mutual exclusion for in-process serialization.
package keylock

import (
	"context"
	"sync"
)

// entry is one key's lock. refs counts holders plus waiters so the entry
// can be dropped from the map as soon as nobody needs it.
type entry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex serializes work per key. Different keys never block each other.
// The zero value is not usable; call New.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// acquire returns the entry for key, creating it if needed, with one more reference.
func (km *KeyedMutex) acquire(key string) *entry {
	km.mu.Lock()
	defer km.mu.Unlock()

	e, ok := km.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		km.entries[key] = e
	}
	e.refs++
	return e
}

// release drops one reference and deletes the entry when it reaches zero.
func (km *KeyedMutex) release(key string, e *entry) {
	km.mu.Lock()
	defer km.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(km.entries, key)
	}
}

// Lock blocks until the key is held or ctx is done.
// On success the returned function releases the key; it must be called exactly once.
func (km *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	e := km.acquire(key)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		km.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			km.release(key, e)
		})
	}, nil
}

// Len returns the number of keys currently held or waited on.
func (km *KeyedMutex) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.entries)
}
