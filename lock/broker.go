// Package lock is the Go-native stand-in for the platform's named mutual
// exclusion primitive (the Web Locks API in a browser): any number of
// nodes sharing an Origin may race to acquire a lock by name, exactly one
// holds it at a time, and waiters queue rather than fail.
//
// Maps each name to a per-key synchronization entry, reference-counted so
// the entry can be reclaimed once nobody holds or waits on it. Uses a
// one-token buffered channel per entry rather than a bare sync.Mutex so
// Acquire can honor context cancellation while queued.
package lock

import (
	"context"
	"sync"
)

// Broker hands out named exclusive locks. The zero value is not usable;
// construct with NewBroker.
type Broker struct {
	mu     sync.Mutex
	byName map[string]*entry
}

type entry struct {
	token chan struct{} // buffered 1; holds a token when unlocked
	refs  int           // live holders + waiters, guarded by Broker.mu
}

// NewBroker returns an empty Broker.
func NewBroker() *Broker {
	return &Broker{byName: make(map[string]*entry)}
}

// Acquire blocks until the named lock is held exclusively, or ctx is
// done. On success it returns a release function that must be called
// exactly once to relinquish the lock.
func (b *Broker) Acquire(ctx context.Context, name string) (func(), error) {
	var e = b.ref(name)

	select {
	case <-e.token:
		return func() { b.unref(name, e, true) }, nil
	case <-ctx.Done():
		b.unref(name, e, false)
		return nil, ctx.Err()
	}
}

// ref returns the entry for name, creating it (with its token already
// filled, i.e. unlocked) on first use, and increments its reference
// count under Broker.mu.
func (b *Broker) ref(name string) *entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var e, ok = b.byName[name]
	if !ok {
		e = &entry{token: make(chan struct{}, 1)}
		e.token <- struct{}{}
		b.byName[name] = e
	}
	e.refs++
	return e
}

// unref decrements the entry's reference count, returning the token to
// the channel if held is true (the caller was holding the lock and is
// releasing it), and deletes the entry once nobody references it.
func (b *Broker) unref(name string, e *entry, held bool) {
	if held {
		e.token <- struct{}{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(b.byName, name)
	}
}
