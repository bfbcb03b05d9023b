package table

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// writerWeight is taken by structural changes; row operations take 1.
const writerWeight = 1 << 30

type tableLock struct {
	sem  *semaphore.Weighted
	refs int
}

// lockSet is a reader/writer lock per table name. Waiters are served in
// FIFO order, so a queued writer holds back readers that arrive after it.
type lockSet struct {
	mu    sync.Mutex
	locks map[string]*tableLock
}

func newLockSet() *lockSet {
	return &lockSet{locks: make(map[string]*tableLock)}
}

// Lock takes the exclusive side for name.
func (l *lockSet) Lock(ctx context.Context, name string) (func(), error) {
	return l.acquire(ctx, name, writerWeight)
}

// RLock takes the shared side for name.
func (l *lockSet) RLock(ctx context.Context, name string) (func(), error) {
	return l.acquire(ctx, name, 1)
}

func (l *lockSet) acquire(ctx context.Context, name string, weight int64) (func(), error) {
	l.mu.Lock()
	tl, ok := l.locks[name]
	if !ok {
		tl = &tableLock{sem: semaphore.NewWeighted(writerWeight)}
		l.locks[name] = tl
	}
	tl.refs++
	l.mu.Unlock()

	if err := tl.sem.Acquire(ctx, weight); err != nil {
		l.unref(name, tl)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			tl.sem.Release(weight)
			l.unref(name, tl)
		})
	}, nil
}

func (l *lockSet) unref(name string, tl *tableLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tl.refs--
	if tl.refs == 0 {
		delete(l.locks, name)
	}
}

// size returns the number of names with a held or awaited lock.
func (l *lockSet) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
