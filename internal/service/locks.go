package service

import (
	"context"
	"sync"
)

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// threadLocks serializes cycles per thread. Waiting respects the caller's
// context, and entries are dropped once nobody holds or waits for them.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*lockEntry)}
}

func (l *threadLocks) Lock(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(id, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(id, e)
		})
	}, nil
}

func (l *threadLocks) release(id string, e *lockEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()
}

func (l *threadLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
