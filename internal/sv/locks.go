package sv

import "sync"

// lockTable hands out a reader/writer lock per object ID. Entries are
// reference counted and dropped once no goroutine holds or waits on them.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*objectLock
}

type objectLock struct {
	sync.RWMutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*objectLock)}
}

func (t *lockTable) acquire(id string) *objectLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		l = &objectLock{}
		t.locks[id] = l
	}
	l.refs++
	return l
}

func (t *lockTable) release(id string, l *objectLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, id)
	}
}

// Lock takes the exclusive lock for id and returns its unlock function.
func (t *lockTable) Lock(id string) func() {
	l := t.acquire(id)
	l.Lock()
	return func() {
		l.Unlock()
		t.release(id, l)
	}
}

// RLock takes the shared lock for id and returns its unlock function.
func (t *lockTable) RLock(id string) func() {
	l := t.acquire(id)
	l.RLock()
	return func() {
		l.RUnlock()
		t.release(id, l)
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
