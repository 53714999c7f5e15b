// Package distlock provides the per-store mutual exclusion scope that every
// event handler runs under. The record store has no transactional isolation,
// so two overlapping events could otherwise both append tracking columns or
// read a stale notification count.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Factory creates a fresh lock instance for a key. Handlers call it once per
// event so each invocation owns its own token.
type Factory func(key string) DistLock

// NewFactory picks the best available backend: Redis when a client is given,
// PostgreSQL advisory locks when only a database is given, and an in-process
// mutex otherwise.
func NewFactory(redisClient *redis.Client, db *sql.DB, ttl time.Duration) Factory {
	switch {
	case redisClient != nil:
		return func(key string) DistLock { return NewRedisLock(redisClient, key, ttl) }
	case db != nil:
		return func(key string) DistLock { return NewPGAdvisoryLock(db, key) }
	}
	locals := &localRegistry{locks: make(map[string]*LocalLock)}
	return locals.get
}

// ErrNotAcquired is returned by Do when the context ends before the lock is obtained.
var ErrNotAcquired = errors.New("lock not acquired")

// Do acquires lock, polling every retry until it succeeds or ctx is done,
// runs fn and releases the lock. fn's error is returned unchanged.
func Do(ctx context.Context, lock DistLock, retry time.Duration, fn func(ctx context.Context) error) error {
	if retry <= 0 {
		retry = 100 * time.Millisecond
	}
	for {
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrNotAcquired, ctx.Err())
		case <-time.After(retry):
		}
	}
	defer func() {
		// release with a fresh context so a cancelled handler still unlocks
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lock.Release(relCtx)
	}()
	return fn(ctx)
}

// PGAdvisoryLock implements DistLock using PostgreSQL advisory locks.
// pg_try_advisory_lock is session-scoped, so a dropped connection releases it.
type PGAdvisoryLock struct {
	db     *sql.DB
	conn   *sql.Conn
	lockID int64
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to acquire the advisory lock on a dedicated connection so the
// unlock runs on the same session.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("advisory lock conn: %w", err)
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("advisory lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release releases the advisory lock.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

// LocalLock is an in-process lock used when no shared backend is configured.
type LocalLock struct {
	mu   sync.Mutex
	held bool
}

// Acquire implements DistLock.
func (l *LocalLock) Acquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

// Release implements DistLock.
func (l *LocalLock) Release(context.Context) error {
	l.mu.Lock()
	l.held = false
	l.mu.Unlock()
	return nil
}

type localRegistry struct {
	mu    sync.Mutex
	locks map[string]*LocalLock
}

func (r *localRegistry) get(key string) DistLock {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		l = &LocalLock{}
		r.locks[key] = l
	}
	return l
}
