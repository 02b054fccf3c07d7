package service

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// sessionLocks serializes work per session id. Entries are dropped once no
// caller holds or waits for them.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[string]*lockEntry)}
}

// acquire blocks until id is free or ctx is done.
func (l *sessionLocks) acquire(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.unref(id, e)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.unref(id, e)
		})
	}, nil
}

func (l *sessionLocks) unref(id string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
