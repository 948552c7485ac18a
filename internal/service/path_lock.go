package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// PathLocks: serializes writers per document path
// ─────────────────────────────────────────────────────────────

// PathLocks hands out one mutex per key. The desktop layer takes the lock of
// a canvas around each load, mutate, save cycle; the key is released from
// the map once nobody holds or waits for it.
type PathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
	wg    sync.WaitGroup
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func (l *PathLocks) acquire(key string) *pathLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*pathLock)
	}
	pl, ok := l.locks[key]
	if !ok {
		pl = &pathLock{}
		l.locks[key] = pl
	}
	pl.refs++
	l.wg.Add(1)
	return pl
}

func (l *PathLocks) release(key string, pl *pathLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pl.refs--
	if pl.refs == 0 {
		delete(l.locks, key)
	}
	l.wg.Done()
}

// Lock blocks until key is free and returns the matching unlock function.
func (l *PathLocks) Lock(key string) (unlock func()) {
	pl := l.acquire(key)
	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.release(key, pl)
	}
}

// TryLock takes key only if it is free. ok is false when another holder has
// it, in which case unlock is nil.
func (l *PathLocks) TryLock(key string) (unlock func(), ok bool) {
	pl := l.acquire(key)
	if !pl.mu.TryLock() {
		l.release(key, pl)
		return nil, false
	}
	return func() {
		pl.mu.Unlock()
		l.release(key, pl)
	}, true
}

// WaitAll blocks until every held lock is released or ctx is cancelled.
func (l *PathLocks) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
