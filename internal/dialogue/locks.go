package dialogue

import "sync"

// CallLocks serializes work per call id. Entries are dropped once no holder
// or waiter remains.
type CallLocks struct {
	mu    sync.Mutex
	locks map[string]*callLock
}

type callLock struct {
	mu   sync.Mutex
	refs int
}

// NewCallLocks creates an empty lock table.
func NewCallLocks() *CallLocks {
	return &CallLocks{locks: make(map[string]*callLock)}
}

// Lock blocks until callID is free and returns the matching unlock func.
func (l *CallLocks) Lock(callID string) (unlock func()) {
	l.mu.Lock()
	cl, ok := l.locks[callID]
	if !ok {
		cl = &callLock{}
		l.locks[callID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, callID)
		}
		l.mu.Unlock()
	}
}

// Len reports how many call ids are currently held or awaited.
func (l *CallLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
