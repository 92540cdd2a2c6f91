package store

import (
	"context"
	"sync"
	"time"
)

// keyedLock serializes writers per item. SQLite gives us transactions but
// not row-level locks, so version allocation and the current-pointer flip
// are protected by an in-process semaphore keyed by item identity, held
// across the whole allocate-and-insert transaction.
type keyedLock struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newKeyedLock() *keyedLock {
	return &keyedLock{slots: make(map[string]chan struct{})}
}

func (l *keyedLock) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[key] = s
	}
	return s
}

// acquire blocks until the per-key slot is free, the wait deadline passes,
// or ctx is done. Losing the wait is ErrContention: the caller may retry
// the whole write.
func (l *keyedLock) acquire(ctx context.Context, key string, wait time.Duration) (release func(), err error) {
	s := l.slot(key)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case s <- struct{}{}:
		return func() { <-s }, nil
	case <-timer.C:
		return nil, ErrContention
	case <-ctx.Done():
		return nil, ErrContention
	}
}
