// Package userlock serializes order commands per reader. Concurrent
// requests for the same reader ticket run one at a time; requests for
// different readers do not block each other.
package userlock

import (
	"context"
	"errors"
	"time"
)

// ErrBusy is returned when a lock cannot be acquired before the context
// deadline. Callers should treat it as retryable.
var ErrBusy = errors.New("another request for this reader is in progress")

// Locker grants exclusive access to a key until the returned release
// function is called. Acquire blocks until the lock is free or ctx is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type timeoutLocker struct {
	inner   Locker
	timeout time.Duration
}

// WithTimeout bounds how long Acquire waits for its turn. A lock still
// held when the timeout elapses yields ErrBusy instead of blocking the
// request for its full deadline.
func WithTimeout(inner Locker, timeout time.Duration) Locker {
	if timeout <= 0 {
		return inner
	}

	return &timeoutLocker{inner: inner, timeout: timeout}
}

func (l *timeoutLocker) Acquire(ctx context.Context, key string) (func(), error) {
	acquireCtx, cancel := context.WithTimeout(ctx, l.timeout)

	release, err := l.inner.Acquire(acquireCtx, key)
	if err != nil {
		cancel()
		return nil, err
	}

	return func() {
		release()
		cancel()
	}, nil
}
