package userlock

import (
	"context"
	"errors"
	"sync"
)

// InProcessLocker implements Locker with one semaphore per key.
// Entries are reference counted and removed once the last holder or
// waiter is gone, so the registry does not grow with the reader base.
// Suitable for single-instance deployments.
type InProcessLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// NewInProcessLocker creates an empty in-process lock registry.
func NewInProcessLocker() *InProcessLocker {
	return &InProcessLocker{entries: make(map[string]*lockEntry)}
}

// Acquire blocks until the key's semaphore is free or ctx is done.
// A cancelled or expired context yields ErrBusy.
func (l *InProcessLocker) Acquire(ctx context.Context, key string) (func(), error) {
	entry := l.retain(key)

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-entry.sem
				l.put(key)
			})
		}

		return release, nil

	case <-ctx.Done():
		l.put(key)
		return nil, errors.Join(ErrBusy, ctx.Err())
	}
}

func (l *InProcessLocker) retain(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++

	return entry
}

func (l *InProcessLocker) put(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return
	}

	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}
