package userlock

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/jackc/pgx/v5/pgxpool"
)

const advisoryKeyPrefix = "orderdesk:user:"

// Logger interface for lock diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// AdvisoryLocker implements Locker on top of Postgres session-level
// advisory locks, so multiple service instances sharing one database
// serialize commands for the same reader. Each held lock pins one pooled
// connection; the connection is given back on release.
type AdvisoryLocker struct {
	pool   *pgxpool.Pool
	logger Logger
}

// NewAdvisoryLocker creates a Locker backed by Postgres advisory locks.
// The logger may be nil.
func NewAdvisoryLocker(pool *pgxpool.Pool, logger Logger) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool, logger: logger}
}

// Acquire blocks on pg_advisory_lock until the lock is granted or ctx is
// done. The key is hashed to the bigint keyspace advisory locks use.
func (l *AdvisoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockID := advisoryLockID(key)

	conn, acquireErr := l.pool.Acquire(ctx)
	if acquireErr != nil {
		return nil, errors.Join(ErrBusy, acquireErr)
	}

	if _, execErr := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", lockID); execErr != nil {
		conn.Release()

		if ctx.Err() != nil {
			return nil, errors.Join(ErrBusy, ctx.Err())
		}

		return nil, execErr
	}

	release := func() {
		// Unlock with a fresh context: the request context may already
		// be cancelled when the handler returns.
		if _, unlockErr := conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", lockID); unlockErr != nil {
			if l.logger != nil {
				l.logger.Warn("failed to release advisory lock", "error", unlockErr.Error(), "key", key)
			}
		}

		// Releasing the connection ends the session scope of the lock
		// even if the explicit unlock failed.
		conn.Release()
	}

	return release, nil
}

// advisoryLockID hashes a lock key into the signed 64-bit keyspace of
// Postgres advisory locks.
func advisoryLockID(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(advisoryKeyPrefix + key))

	return int64(h.Sum64())
}
