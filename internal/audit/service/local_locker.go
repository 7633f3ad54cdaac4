package service

import (
	"context"
	"sync"
)

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// LocalAppendLocker is an in-process keyed mutex. Entries are dropped once no goroutine
// holds or waits for them, so memory stays proportional to active organizations.
type LocalAppendLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

// NewLocalAppendLocker creates a LocalAppendLocker.
func NewLocalAppendLocker() *LocalAppendLocker {
	return &LocalAppendLocker{locks: make(map[string]*keyedLock)}
}

func (l *LocalAppendLocker) Lock(ctx context.Context, organizationID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[organizationID]
	if !ok {
		lock = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[organizationID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(organizationID, lock)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lock.ch
			l.release(organizationID, lock)
		})
	}, nil
}

func (l *LocalAppendLocker) release(organizationID string, lock *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, organizationID)
	}
}

// size returns the number of tracked organizations.
func (l *LocalAppendLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
