// Package lock serializes work on a string key. The booking engine takes one
// lock per (court, date) so that checking availability and inserting a
// reservation cannot interleave with another booking for the same key,
// while different keys proceed in parallel.
package lock

import (
	"context"
	"sync"
)

// Locker acquires an exclusive lock on key. The returned release function
// must be called exactly once; calling it more than once is a no-op.
// Lock returns ctx.Err() if ctx ends while waiting.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// Local is an in-process Locker. Entries are reference counted and removed
// as soon as nobody holds or waits for them.
type Local struct {
	mu   sync.Mutex
	keys map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{keys: make(map[string]*entry)}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.unref(key, e)
		})
	}, nil
}

func (l *Local) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
